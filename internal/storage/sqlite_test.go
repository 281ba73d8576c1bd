package storage

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/vovakirdan/padclash/internal/config"
	"github.com/vovakirdan/padclash/internal/game"
	"github.com/vovakirdan/padclash/internal/multiplayer"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreOpenClose(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "test.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestMatchLifecycle(t *testing.T) {
	store := openTestStore(t)

	info := MatchInfo{
		MatchID:     "m-1",
		Mode:        "local",
		Fingerprint: 0xfedcba9876543210,
		Player1:     "alice",
		Player2:     "bob",
	}
	if err := store.CreateMatch(info); err != nil {
		t.Fatalf("CreateMatch() failed: %v", err)
	}

	r, err := store.Match("m-1")
	if err != nil {
		t.Fatalf("Match() failed: %v", err)
	}
	if r.Finished() {
		t.Error("new match should not be finished")
	}
	if r.Fingerprint != info.Fingerprint || r.Player1 != "alice" || r.Mode != "local" {
		t.Errorf("Match() = %+v, want fields from %+v", r, info)
	}

	out := MatchOutcome{
		EndReason: "completed",
		Rounds:    4,
		Ticks:     3600,
		FinalHash: ^uint64(0),
		Score1:    2,
		Score2:    1,
	}
	if err := store.FinishMatch("m-1", out); err != nil {
		t.Fatalf("FinishMatch() failed: %v", err)
	}

	r, err = store.Match("m-1")
	if err != nil {
		t.Fatalf("Match() failed: %v", err)
	}
	if !r.Finished() {
		t.Error("match should be finished")
	}
	if r.FinalHash != out.FinalHash || r.Ticks != 3600 || r.Rounds != 4 || r.Score1 != 2 {
		t.Errorf("Match() = %+v, want outcome %+v", r, out)
	}
}

func TestUnknownMatch(t *testing.T) {
	store := openTestStore(t)

	if _, err := store.Match("nope"); !errors.Is(err, ErrMatchNotFound) {
		t.Errorf("Match() error = %v, want ErrMatchNotFound", err)
	}
	if err := store.FinishMatch("nope", MatchOutcome{}); !errors.Is(err, ErrMatchNotFound) {
		t.Errorf("FinishMatch() error = %v, want ErrMatchNotFound", err)
	}
}

func TestDuplicateMatchID(t *testing.T) {
	store := openTestStore(t)
	if err := store.CreateMatch(MatchInfo{MatchID: "dup", Mode: "local"}); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateMatch(MatchInfo{MatchID: "dup", Mode: "local"}); err == nil {
		t.Error("CreateMatch() accepted a duplicate id")
	}
}

func TestCommandsKeepOrder(t *testing.T) {
	store := openTestStore(t)
	if err := store.CreateMatch(MatchInfo{MatchID: "m", Mode: "simulate"}); err != nil {
		t.Fatal(err)
	}

	want := []TimedCommand{
		{0, game.Input(game.Player1, game.FieldRight, true)},
		{0, game.Input(game.Player2, game.FieldLeft, true)},
		{3, game.Input(game.Player1, game.FieldAction, true)},
		{3, game.Input(game.Player1, game.FieldAction, false)},
		{10, game.Input(game.Player2, game.FieldLeft, false)},
	}
	// Record out of tick order: replay order is by tick, then insertion.
	if err := store.RecordCommand("m", want[4].Tick, want[4].Command); err != nil {
		t.Fatal(err)
	}
	if err := store.RecordCommands("m", want[:4]); err != nil {
		t.Fatalf("RecordCommands() failed: %v", err)
	}

	got, err := store.Commands("m")
	if err != nil {
		t.Fatalf("Commands() failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Commands() = %v, want %v", got, want)
	}
}

func TestKeyframesRoundTrip(t *testing.T) {
	store := openTestStore(t)
	if err := store.CreateMatch(MatchInfo{MatchID: "m", Mode: "simulate"}); err != nil {
		t.Fatal(err)
	}

	w := game.MustNew(config.DefaultArena())
	var want []game.Snapshot
	for i := 0; i < 3; i++ {
		for j := 0; j < 20; j++ {
			w.Step()
		}
		s := w.Snapshot()
		want = append(want, s)
		if err := store.SaveKeyframe("m", s); err != nil {
			t.Fatalf("SaveKeyframe() failed: %v", err)
		}
	}
	// Saving a tick again replaces it.
	if err := store.SaveKeyframe("m", want[1]); err != nil {
		t.Fatalf("SaveKeyframe() again failed: %v", err)
	}

	frames, err := store.Keyframes("m")
	if err != nil {
		t.Fatalf("Keyframes() failed: %v", err)
	}
	if len(frames) != len(want) {
		t.Fatalf("Keyframes() returned %d frames, want %d", len(frames), len(want))
	}
	for i, f := range frames {
		if f.Tick != want[i].Tick || f.Hash != want[i].Hash() {
			t.Errorf("frame %d = tick %d hash %x, want tick %d hash %x", i, f.Tick, f.Hash, want[i].Tick, want[i].Hash())
		}
		if !reflect.DeepEqual(f.Snapshot, want[i]) {
			t.Errorf("frame %d snapshot differs after storage", i)
		}
	}
}

func TestRecentMatches(t *testing.T) {
	store := openTestStore(t)
	for _, id := range []string{"a", "b", "c"} {
		if err := store.CreateMatch(MatchInfo{MatchID: id, Mode: "online"}); err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.RecentMatches(2)
	if err != nil {
		t.Fatalf("RecentMatches() failed: %v", err)
	}
	if len(got) != 2 || got[0].MatchID != "c" || got[1].MatchID != "b" {
		t.Errorf("RecentMatches(2) = %v, want [c b]", matchIDs(got))
	}
}

func TestRecorderAdapter(t *testing.T) {
	store := openTestStore(t)
	var rec multiplayer.MatchRecorder = store

	err := rec.StartRecording(multiplayer.MatchStartData{
		MatchID:        "online-1",
		Mode:           "online",
		Fingerprint:    42,
		Player1Session: "s1",
		Player2Session: "s2",
	})
	if err != nil {
		t.Fatalf("StartRecording() failed: %v", err)
	}
	if err := rec.RecordCommand("online-1", 5, game.Input(game.Player2, game.FieldAction, true)); err != nil {
		t.Fatalf("RecordCommand() failed: %v", err)
	}
	err = rec.SaveMatchResult(multiplayer.MatchResultData{
		MatchID:   "online-1",
		EndReason: "Opponent disconnected",
		Ticks:     99,
		FinalHash: 7,
		Score2:    1,
	})
	if err != nil {
		t.Fatalf("SaveMatchResult() failed: %v", err)
	}

	r, err := store.Match("online-1")
	if err != nil {
		t.Fatal(err)
	}
	if r.Player2 != "s2" || r.EndReason != "Opponent disconnected" || r.Ticks != 99 || r.Score2 != 1 {
		t.Errorf("Match() = %+v", r)
	}
}

func matchIDs(rs []MatchRecord) []string {
	ids := make([]string, len(rs))
	for i, r := range rs {
		ids[i] = r.MatchID
	}
	return ids
}
