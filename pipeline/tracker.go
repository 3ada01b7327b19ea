package pipeline

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/saeedzareian/target-parquet/errors"
)

// Tracker maintains the last observed STATE value. The value is reset
// whenever a record is subsequently enqueued: a checkpoint is only
// trustworthy if no record has been buffered-but-not-yet-flushed since it
// was emitted. This is a conservative approximation of flush completion.
type Tracker struct {
	last json.RawMessage
}

// NewTracker creates an empty checkpoint tracker
func NewTracker() *Tracker {
	return &Tracker{}
}

// ObserveState replaces the checkpoint candidate. A JSON-literal null state
// means the tap has no checkpoint to offer and clears the candidate.
func (t *Tracker) ObserveState(value json.RawMessage) {
	if isNullCheckpoint(value) {
		t.last = nil
		return
	}
	t.last = value
}

// ObserveRecord invalidates the checkpoint candidate
func (t *Tracker) ObserveRecord() {
	t.last = nil
}

// Checkpoint returns the current safe checkpoint, nil when none
func (t *Tracker) Checkpoint() json.RawMessage {
	return t.last
}

func isNullCheckpoint(checkpoint json.RawMessage) bool {
	return len(checkpoint) == 0 || string(checkpoint) == "null"
}

// EmitCheckpoint writes the checkpoint as a single JSON line. Nothing is
// written when the checkpoint is nil or JSON null.
func EmitCheckpoint(w io.Writer, checkpoint json.RawMessage) error {
	if isNullCheckpoint(checkpoint) {
		return nil
	}
	if _, err := fmt.Fprintf(w, "%s\n", checkpoint); err != nil {
		return errors.WrapWrite(err, "Tracker", "EmitCheckpoint", "write checkpoint")
	}
	return nil
}
