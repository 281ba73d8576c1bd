package multiplayer

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/padclash/internal/game"
)

// MatchRecorder persists matches for later listing and replay.
// This allows matches to be recorded without depending on the storage package.
type MatchRecorder interface {
	StartRecording(data MatchStartData) error
	RecordCommand(matchID string, tick uint64, cmd game.Command) error
	SaveKeyframe(matchID string, snap game.Snapshot) error
	SaveMatchResult(data MatchResultData) error
}

// MatchStartData describes a match when recording begins.
type MatchStartData struct {
	MatchID        string
	Mode           string
	Fingerprint    uint64
	Player1Session string
	Player2Session string
}

// MatchResultData contains match result data for persistence.
type MatchResultData struct {
	MatchID   string
	EndReason string
	Rounds    int
	Ticks     uint64
	FinalHash uint64
	Score1    int
	Score2    int
}

// recordingBuffer is how many writes may wait for the recorder.
const recordingBuffer = 1024

// Recording writes to a MatchRecorder from its own goroutine so a slow
// disk never stalls the tick loop. Writes keep their order. When the queue
// fills up the recording is abandoned: later writes and the result are
// dropped, and the match stays unfinished in storage. A nil *Recording
// ignores every call. All methods belong to one goroutine.
type Recording struct {
	rec      MatchRecorder
	id       string
	logger   *log.Logger
	ops      chan func() error
	done     chan struct{}
	overflow bool
	wait     bool
}

// NewRecording starts recording a match. It returns nil when rec is nil.
func NewRecording(rec MatchRecorder, data MatchStartData, logger *log.Logger) *Recording {
	return newRecording(rec, data, logger, recordingBuffer)
}

// NewOfflineRecording is NewRecording for callers with no tick deadline:
// a full queue makes them wait instead of abandoning the recording.
func NewOfflineRecording(rec MatchRecorder, data MatchStartData, logger *log.Logger) *Recording {
	r := newRecording(rec, data, logger, recordingBuffer)
	if r != nil {
		r.wait = true
	}
	return r
}

func newRecording(rec MatchRecorder, data MatchStartData, logger *log.Logger, buffer int) *Recording {
	if rec == nil {
		return nil
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	r := &Recording{
		rec:    rec,
		id:     data.MatchID,
		logger: logger,
		ops:    make(chan func() error, max(buffer, 1)),
		done:   make(chan struct{}),
	}
	go r.loop()
	r.ops <- func() error { return rec.StartRecording(data) }
	return r
}

func (r *Recording) loop() {
	defer close(r.done)
	failed := false
	for op := range r.ops {
		if failed {
			continue
		}
		if err := op(); err != nil {
			// A recording with a gap cannot be replayed; stop writing.
			r.logger.Error("recording failed, disabling", "match", r.id, "error", err)
			failed = true
		}
	}
}

// queue hands op to the writer without blocking.
func (r *Recording) queue(op func() error) {
	if r.overflow {
		return
	}
	if r.wait {
		r.ops <- op
		return
	}
	select {
	case r.ops <- op:
	default:
		r.overflow = true
		r.logger.Error("recorder cannot keep up, abandoning recording", "match", r.id)
	}
}

// Command records cmd as applied on tick.
func (r *Recording) Command(tick uint64, cmd game.Command) {
	if r == nil {
		return
	}
	r.queue(func() error { return r.rec.RecordCommand(r.id, tick, cmd) })
}

// Keyframe records a snapshot taken at the start of its tick.
func (r *Recording) Keyframe(s game.Snapshot) {
	if r == nil {
		return
	}
	r.queue(func() error { return r.rec.SaveKeyframe(r.id, s) })
}

// Finish queues the result and waits for every queued write. The
// Recording must not be used afterwards.
func (r *Recording) Finish(data MatchResultData) {
	if r == nil {
		return
	}
	data.MatchID = r.id
	r.queue(func() error { return r.rec.SaveMatchResult(data) })
	close(r.ops)
	<-r.done
}
