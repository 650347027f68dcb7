package repository

import (
	"time"

	"proclog-backend/pkg/errors"
)

// RecordQuery narrows a lookup over one object's records. ObjectKey is
// required; everything else is optional and combines with AND semantics.
type RecordQuery struct {
	ObjectKey       string
	BeginDate       *time.Time
	EndDate         *time.Time
	ActivityID      string
	Confidentiality string
}

// Validate checks the query for internal consistency.
func (q RecordQuery) Validate() error {
	if q.ObjectKey == "" {
		return errors.NewValidation("object key is required")
	}
	if q.BeginDate != nil && q.EndDate != nil && q.EndDate.Before(*q.BeginDate) {
		return errors.NewValidation("end date precedes begin date")
	}
	return nil
}

// HasTimeRange reports whether at least one time bound is set.
func (q RecordQuery) HasTimeRange() bool {
	return q.BeginDate != nil || q.EndDate != nil
}

// HasFilters reports whether any non-key constraint is set.
func (q RecordQuery) HasFilters() bool {
	return q.HasTimeRange() || q.ActivityID != "" || q.Confidentiality != ""
}
