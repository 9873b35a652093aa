// Package session keeps each browser's uploaded table in memory between
// requests.
package session

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"finflow/internal/columns"
	"finflow/internal/core"
	"finflow/internal/ingest"
)

var ErrNotFound = errors.New("session not found")

// Session is replaced wholesale on every change; a stored value is never
// mutated, so readers can use it without locking.
type Session struct {
	ID           string
	Table        ingest.Table
	Mapping      columns.Mapping
	Transactions []core.Transaction // nil until the mapping is complete and the table normalized
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewID returns a random session identifier.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like one produced by NewID.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Ready reports whether the session has a complete mapping and normalized
// transactions to show.
func (s *Session) Ready() bool {
	return s != nil && s.Mapping.Complete() && s.Transactions != nil
}

// With returns a copy carrying a new table, mapping and transaction set. The
// table is cloned so later edits to t never reach a stored session.
func (s *Session) With(t ingest.Table, m columns.Mapping, txs []core.Transaction, now time.Time) *Session {
	next := &Session{
		ID:           s.ID,
		Table:        t.Clone(),
		Mapping:      m,
		Transactions: txs,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    now,
	}
	if next.CreatedAt.IsZero() {
		next.CreatedAt = now
	}
	return next
}
