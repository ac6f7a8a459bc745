package repository

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	auditDomain "github.com/allisson/sentinel/internal/audit/domain"
	apperrors "github.com/allisson/sentinel/internal/errors"
)

// JSONLinesSink writes one JSON document per entry to w (typically stdout, shipped by
// the platform log collector). It cannot read entries back.
type JSONLinesSink struct {
	mu      sync.Mutex
	encoder *json.Encoder
	lastSeq uint64
}

// NewJSONLinesSink creates a sink writing to w.
func NewJSONLinesSink(w io.Writer) *JSONLinesSink {
	return &JSONLinesSink{encoder: json.NewEncoder(w)}
}

// Emit writes entry as a single line.
func (j *JSONLinesSink) Emit(ctx context.Context, entry *auditDomain.Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if entry.SequenceNumber != 0 && entry.SequenceNumber <= j.lastSeq {
		return nil
	}
	if err := j.encoder.Encode(entry); err != nil {
		return apperrors.Wrap(err, "failed to write audit entry")
	}
	j.lastSeq = entry.SequenceNumber
	return nil
}
