package actions

import (
	"context"

	"proclog-backend/internal/domain"
	"proclog-backend/internal/repository"

	"github.com/google/uuid"
)

// identityResolver assigns each processed object the synthetic identifier it
// has carried in earlier records, or mints a new one. Scoped to a single
// submission: the cache makes repeated objects within one request resolve
// identically without extra lookups.
type identityResolver struct {
	repo       repository.RecordRepository
	identities repository.IdentityStore
	cache      map[string]string
}

func newIdentityResolver(repo repository.RecordRepository, identities repository.IdentityStore) *identityResolver {
	return &identityResolver{
		repo:       repo,
		identities: identities,
		cache:      make(map[string]string),
	}
}

// Resolve returns the synthetic identifier for one natural key. The key's
// ObjectID must already be pseudonymized.
func (r *identityResolver) Resolve(ctx context.Context, key domain.NaturalKey) (string, error) {
	objectKey := key.ObjectKey()
	if id, ok := r.cache[objectKey]; ok {
		return id, nil
	}

	id, err := r.lookupStored(ctx, key)
	if err != nil {
		return "", err
	}
	if id == "" {
		// Never seen before. Claim a fresh identifier; a concurrent writer
		// may win the claim, in which case its identifier comes back.
		id, err = r.identities.Claim(ctx, objectKey, uuid.NewString())
		if err != nil {
			return "", err
		}
	}

	r.cache[objectKey] = id
	return id, nil
}

// lookupStored searches existing records for an identifier already assigned
// to this object. Records carry the complete object list of their action, so
// the match is confirmed field by field rather than trusting the index key
// alone.
func (r *identityResolver) lookupStored(ctx context.Context, key domain.NaturalKey) (string, error) {
	records, err := r.repo.QueryByObjectKey(ctx, repository.RecordQuery{ObjectKey: key.ObjectKey()})
	if err != nil {
		return "", err
	}
	for _, rec := range records {
		for _, obj := range rec.Objects {
			if obj.ObjectType == key.ObjectType && obj.ObjectKind == key.ObjectKind && obj.ObjectID == key.ObjectID && obj.SyntheticID != "" {
				return obj.SyntheticID, nil
			}
		}
	}
	return "", nil
}
