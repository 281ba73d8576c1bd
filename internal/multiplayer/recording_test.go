package multiplayer

import (
	"errors"
	"testing"
	"time"

	"github.com/vovakirdan/padclash/internal/game"
)

type failingRecorder struct {
	fakeRecorder
}

func (f *failingRecorder) StartRecording(MatchStartData) error {
	return errors.New("disk full")
}

func TestRecordingKeepsOrder(t *testing.T) {
	rec := &fakeRecorder{}
	r := NewRecording(rec, MatchStartData{MatchID: "m1", Mode: "local"}, nil)
	for tick := uint64(0); tick < 50; tick++ {
		r.Command(tick, game.Input(game.Player1, game.FieldLeft, tick%2 == 0))
	}
	r.Finish(MatchResultData{EndReason: "Completed", Ticks: 50})

	if len(rec.started) != 1 || len(rec.commands) != 50 || len(rec.results) != 1 {
		t.Fatalf("started %d, commands %d, results %d", len(rec.started), len(rec.commands), len(rec.results))
	}
	for i, cmd := range rec.commands {
		if cmd.Value != (i%2 == 0) {
			t.Fatalf("command %d out of order", i)
		}
	}
	if rec.results[0].MatchID != "m1" {
		t.Errorf("result match id = %q, want m1", rec.results[0].MatchID)
	}
}

func TestRecordingStopsAfterError(t *testing.T) {
	rec := &failingRecorder{}
	r := NewRecording(rec, MatchStartData{MatchID: "m1"}, nil)
	r.Command(0, game.Input(game.Player1, game.FieldLeft, true))
	r.Finish(MatchResultData{})

	if len(rec.commands) != 0 || len(rec.results) != 0 {
		t.Errorf("writes after a failed start: %d commands, %d results", len(rec.commands), len(rec.results))
	}
}

type stalledRecorder struct {
	fakeRecorder
	gate chan struct{}
}

func (f *stalledRecorder) StartRecording(d MatchStartData) error {
	<-f.gate
	return f.fakeRecorder.StartRecording(d)
}

func TestRecordingDropsWhenRecorderStalls(t *testing.T) {
	rec := &stalledRecorder{gate: make(chan struct{})}
	r := newRecording(rec, MatchStartData{MatchID: "m1"}, nil, 2)

	queued := make(chan struct{})
	go func() {
		defer close(queued)
		for tick := uint64(0); tick < 10; tick++ {
			r.Command(tick, game.Input(game.Player1, game.FieldLeft, true))
			r.Keyframe(game.Snapshot{Tick: tick})
		}
	}()
	select {
	case <-queued:
	case <-time.After(2 * time.Second):
		t.Fatal("a stalled recorder blocked the caller")
	}

	close(rec.gate)
	r.Finish(MatchResultData{EndReason: "Completed"})

	if len(rec.commands)+len(rec.keyframes) >= 20 {
		t.Errorf("recorded %d commands and %d keyframes, want some dropped", len(rec.commands), len(rec.keyframes))
	}
	if len(rec.results) != 0 {
		t.Error("an abandoned recording saved a result")
	}
}

func TestOfflineRecordingWaits(t *testing.T) {
	rec := &stalledRecorder{gate: make(chan struct{})}
	r := newRecording(rec, MatchStartData{MatchID: "m1"}, nil, 2)
	r.wait = true

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(rec.gate)
	}()
	for tick := uint64(0); tick < 10; tick++ {
		r.Command(tick, game.Input(game.Player1, game.FieldLeft, true))
	}
	r.Finish(MatchResultData{EndReason: "Completed"})

	if len(rec.commands) != 10 || len(rec.results) != 1 {
		t.Errorf("recorded %d commands and %d results, want 10 and 1", len(rec.commands), len(rec.results))
	}
}

func TestNilRecording(t *testing.T) {
	r := NewRecording(nil, MatchStartData{}, nil)
	if r != nil {
		t.Fatal("NewRecording(nil) returned a recording")
	}
	r.Command(0, game.Command{})
	r.Keyframe(game.Snapshot{})
	r.Finish(MatchResultData{})
}
