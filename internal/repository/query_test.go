package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"proclog-backend/pkg/errors"
)

func TestRecordQueryValidate(t *testing.T) {
	begin := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	t.Run("RequiresObjectKey", func(t *testing.T) {
		err := RecordQuery{}.Validate()
		assert.True(t, errors.IsValidation(err))
	})

	t.Run("RejectsInvertedRange", func(t *testing.T) {
		q := RecordQuery{ObjectKey: "k", BeginDate: &begin, EndDate: &end}
		assert.True(t, errors.IsValidation(q.Validate()))
	})

	t.Run("AcceptsOpenRange", func(t *testing.T) {
		q := RecordQuery{ObjectKey: "k", BeginDate: &begin}
		assert.NoError(t, q.Validate())
	})
}

func TestRecordQueryHasFilters(t *testing.T) {
	begin := time.Now()

	assert.False(t, RecordQuery{ObjectKey: "k"}.HasFilters())
	assert.True(t, RecordQuery{ObjectKey: "k", BeginDate: &begin}.HasFilters())
	assert.True(t, RecordQuery{ObjectKey: "k", ActivityID: "act"}.HasFilters())
	assert.True(t, RecordQuery{ObjectKey: "k", Confidentiality: "high"}.HasFilters())
}

func TestClassificationUpdateIsEmpty(t *testing.T) {
	conf := "confidential"

	assert.True(t, ClassificationUpdate{}.IsEmpty())
	assert.False(t, ClassificationUpdate{Confidentiality: &conf}.IsEmpty())
}
