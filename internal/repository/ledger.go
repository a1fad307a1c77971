package repository

import (
	"context"

	"github.com/joseph-ayodele/sheet-extractor/internal/entity"
)

// LedgerStore is the submission ledger: an append-only, ordered list of
// records. Callers depend on this interface only, so the flat JSON file can
// be swapped for an embedded or relational store.
type LedgerStore interface {
	// Append adds rec after every existing record.
	Append(ctx context.Context, rec entity.SubmissionRecord) error
	// LoadAll returns every record in append order; never nil.
	LoadAll(ctx context.Context) ([]entity.SubmissionRecord, error)
}

// normalizeRecord makes a record safe to persist (tags never null).
func normalizeRecord(rec entity.SubmissionRecord) entity.SubmissionRecord {
	if rec.Tags == nil {
		rec.Tags = []string{}
	}
	return rec
}
