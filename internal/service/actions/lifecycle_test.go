package actions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proclog-backend/internal/repository"
	appErrors "proclog-backend/pkg/errors"
)

func strPtr(s string) *string { return &s }

func TestReclassify(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.Create(context.Background(), sampleAction())
	require.NoError(t, err)

	count, err := f.svc.Reclassify(context.Background(), "proc-1", repository.ClassificationUpdate{
		Confidentiality: strPtr("confidential"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	records, err := f.svc.Get(context.Background(), created.ActionID, false)
	require.NoError(t, err)
	assert.Equal(t, "confidential", records[0].Confidentiality)

	// Untouched fields keep their values.
	assert.Equal(t, created.RetentionPeriod, records[0].RetentionPeriod)

	require.NotEmpty(t, f.publisher.events)
	assert.Equal(t, OpReclassify, f.publisher.events[len(f.publisher.events)-1].operation)
}

func TestReclassifyTouchesEveryRecordOfProcessing(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), sampleAction())
	require.NoError(t, err)

	f.clock = f.clock.Add(time.Minute)
	_, err = f.svc.Create(context.Background(), sampleAction())
	require.NoError(t, err)

	count, err := f.svc.Reclassify(context.Background(), "proc-1", repository.ClassificationUpdate{
		RetentionPeriod: strPtr("P10Y"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	for _, rec := range f.repo.All() {
		assert.Equal(t, "P10Y", rec.RetentionPeriod)
	}
}

func TestReclassifyValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Reclassify(context.Background(), "", repository.ClassificationUpdate{Confidentiality: strPtr("x")})
	assert.True(t, appErrors.IsValidation(err))

	_, err = f.svc.Reclassify(context.Background(), "proc-1", repository.ClassificationUpdate{})
	assert.True(t, appErrors.IsValidation(err))
}

func TestReclassifyUnknownProcessing(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Reclassify(context.Background(), "proc-unknown", repository.ClassificationUpdate{
		Confidentiality: strPtr("confidential"),
	})
	assert.True(t, appErrors.IsNotFound(err))
}

func TestRevoke(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.Create(context.Background(), sampleAction())
	require.NoError(t, err)

	f.clock = f.clock.Add(time.Hour)
	revoked, err := f.svc.Revoke(context.Background(), created.ActionID)
	require.NoError(t, err)
	require.Len(t, revoked, 1)
	assert.True(t, revoked[0].Revoked)
	assert.Equal(t, f.clock, revoked[0].RevokedAt)

	// Append-only: the original version survives alongside the flagged copy.
	stored := f.repo.All()
	assert.Len(t, stored, 2)

	newest, err := f.svc.Get(context.Background(), created.ActionID, false)
	require.NoError(t, err)
	require.Len(t, newest, 1)
	assert.True(t, newest[0].Revoked)

	assert.Equal(t, OpRevoke, f.publisher.events[len(f.publisher.events)-1].operation)
}

func TestRevokeOnlyNewestVersionPerObject(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.Create(context.Background(), sampleAction())
	require.NoError(t, err)

	f.clock = f.clock.Add(time.Hour)
	replacement := sampleAction()
	replacement.ActionID = created.ActionID
	_, err = f.svc.Replace(context.Background(), replacement)
	require.NoError(t, err)

	f.clock = f.clock.Add(time.Hour)
	revoked, err := f.svc.Revoke(context.Background(), created.ActionID)
	require.NoError(t, err)

	// Two stored versions, one object, one flagged copy.
	assert.Len(t, revoked, 1)
	assert.Len(t, f.repo.All(), 3)
}

func TestRevokeSameSecondKeepsPriorVersion(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.Create(context.Background(), sampleAction())
	require.NoError(t, err)

	// No clock advance: the revoke lands in the registration second.
	revoked, err := f.svc.Revoke(context.Background(), created.ActionID)
	require.NoError(t, err)
	require.Len(t, revoked, 1)
	assert.True(t, revoked[0].RegisteredAt.After(created.RegisteredAt),
		"flagged copy must not reuse the flagged version's composite key")

	history, err := f.svc.Get(context.Background(), created.ActionID, true)
	require.NoError(t, err)
	require.Len(t, history, 2, "prior version must survive a revoke")

	newest, err := f.svc.Get(context.Background(), created.ActionID, false)
	require.NoError(t, err)
	require.Len(t, newest, 1)
	assert.True(t, newest[0].Revoked)
}

func TestRevokeUnknownAction(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Revoke(context.Background(), "missing")
	assert.True(t, appErrors.IsNotFound(err))
}
