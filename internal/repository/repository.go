// Package repository defines the persistence ports for processing-action
// records and object identities. Implementations live in subpackages.
package repository

import (
	"context"

	"proclog-backend/internal/domain"
)

// RecordRepository stores and retrieves the per-object records fanned out
// from processing actions.
type RecordRepository interface {
	// SaveRecords persists all records of one action atomically. Either every
	// record lands or none do.
	SaveRecords(ctx context.Context, records []domain.Record) error

	// QueryByObjectKey returns records filed under one object key, newest
	// first, filtered by the optional query constraints.
	QueryByObjectKey(ctx context.Context, query RecordQuery) ([]domain.Record, error)

	// QueryAction returns every record belonging to one action, newest first.
	QueryAction(ctx context.Context, actionID string) ([]domain.Record, error)

	// QueryByProcessingID returns every record registered under one
	// processing identifier.
	QueryByProcessingID(ctx context.Context, processingID string) ([]domain.Record, error)

	// UpdateClassification rewrites confidentiality and/or retention period on
	// one stored record, identified by its full primary key.
	UpdateClassification(ctx context.Context, actionID, recordKey string, update ClassificationUpdate) error
}

// ClassificationUpdate carries the mutable classification fields of a record.
// Nil fields are left untouched.
type ClassificationUpdate struct {
	Confidentiality *string
	RetentionPeriod *string
}

// IsEmpty reports whether the update would change nothing.
func (u ClassificationUpdate) IsEmpty() bool {
	return u.Confidentiality == nil && u.RetentionPeriod == nil
}

// IdentityStore assigns stable synthetic identifiers to object keys. The
// first writer for a key wins; later callers observe the winner's value.
type IdentityStore interface {
	// Claim attempts to bind syntheticID to objectKey. It returns the
	// identifier that is authoritative after the call: the proposed one if the
	// claim succeeded, or the previously stored one if another writer got
	// there first.
	Claim(ctx context.Context, objectKey, syntheticID string) (string, error)
}
