package repository

import (
	"encoding/json"

	auditDomain "github.com/allisson/sentinel/internal/audit/domain"
	apperrors "github.com/allisson/sentinel/internal/errors"
)

const entryColumns = `sequence_number, event, previous_hash, hash, signature, key_id`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanEntry reads one audit_entries row. The event is stored as JSON; the indexed
// columns (category, severity, ...) are projections of it and are not read back.
func scanEntry(row rowScanner) (*auditDomain.Entry, error) {
	var entry auditDomain.Entry
	var eventJSON []byte

	err := row.Scan(
		&entry.SequenceNumber,
		&eventJSON,
		&entry.PreviousHash,
		&entry.Hash,
		&entry.Signature,
		&entry.KeyID,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(eventJSON, &entry.Event); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal audit event")
	}
	return &entry, nil
}

type rows interface {
	rowScanner
	Next() bool
	Err() error
	Close() error
}

func scanEntries(r rows) ([]*auditDomain.Entry, error) {
	defer func() {
		_ = r.Close()
	}()

	entries := make([]*auditDomain.Entry, 0)
	for r.Next() {
		entry, err := scanEntry(r)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan audit entry")
		}
		entries = append(entries, entry)
	}

	if err := r.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit entries")
	}
	return entries, nil
}

func marshalEvent(entry *auditDomain.Entry) ([]byte, error) {
	eventJSON, err := json.Marshal(entry.Event)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal audit event")
	}
	return eventJSON, nil
}
