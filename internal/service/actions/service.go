// Package actions provides the business logic for registering, querying, and
// managing processing-action records.
package actions

import (
	"context"
	"encoding/json"
	"time"

	"proclog-backend/internal/domain"
	"proclog-backend/internal/repository"
	appErrors "proclog-backend/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Archiver persists an immutable copy of every accepted action body.
type Archiver interface {
	Archive(ctx context.Context, key string, body []byte) error
}

// Publisher announces accepted mutations on the notification channel.
type Publisher interface {
	Publish(ctx context.Context, operation string, body []byte) error
}

// Operation names carried on published notifications.
const (
	OpCreate     = "processing-action.created"
	OpReplace    = "processing-action.replaced"
	OpReclassify = "processing-action.reclassified"
	OpRevoke     = "processing-action.revoked"
)

// Service defines the processing-action business operations.
type Service interface {
	// Create registers a new action: pseudonymizes, resolves synthetic ids,
	// fans out per-object records, and triggers the side effects.
	Create(ctx context.Context, action domain.ProcessingAction) (domain.ProcessingAction, error)

	// Replace overwrites an existing action with a new version.
	Replace(ctx context.Context, action domain.ProcessingAction) (domain.ProcessingAction, error)

	// Get returns the newest record per composite key for one action, or the
	// full version history when history is true.
	Get(ctx context.Context, actionID string, history bool) ([]domain.Record, error)

	// List returns records for one object, filtered by the query.
	List(ctx context.Context, key domain.NaturalKey, query repository.RecordQuery) ([]domain.Record, error)

	// Reclassify rewrites classification fields across every record of one
	// processing. Returns the number of records touched.
	Reclassify(ctx context.Context, processingID string, update repository.ClassificationUpdate) (int, error)

	// Revoke appends a revoked copy of the newest version of every record of
	// one action.
	Revoke(ctx context.Context, actionID string) ([]domain.Record, error)
}

// service implements Service.
type service struct {
	repo       repository.RecordRepository
	identities repository.IdentityStore
	archiver   Archiver
	publisher  Publisher
	logger     *zap.Logger
	now        func() time.Time
}

// NewService creates the processing-action service.
func NewService(repo repository.RecordRepository, identities repository.IdentityStore, archiver Archiver, publisher Publisher, logger *zap.Logger) Service {
	return &service{
		repo:       repo,
		identities: identities,
		archiver:   archiver,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *service) Create(ctx context.Context, action domain.ProcessingAction) (domain.ProcessingAction, error) {
	action.ActionID = uuid.Must(uuid.NewV7()).String()
	return s.register(ctx, action, OpCreate)
}

func (s *service) Replace(ctx context.Context, action domain.ProcessingAction) (domain.ProcessingAction, error) {
	if action.ActionID == "" {
		return domain.ProcessingAction{}, appErrors.NewValidation("action id is required")
	}
	existing, err := s.repo.QueryAction(ctx, action.ActionID)
	if err != nil {
		return domain.ProcessingAction{}, err
	}
	if len(existing) == 0 {
		return domain.ProcessingAction{}, appErrors.NewNotFound("processing action not found")
	}
	return s.register(ctx, action, OpReplace)
}

// register runs the shared submission pipeline: pseudonymize, resolve
// synthetic identities, stamp the registration time, fan out, store, archive,
// notify. The action id must already be set.
func (s *service) register(ctx context.Context, action domain.ProcessingAction, operation string) (domain.ProcessingAction, error) {
	resolver := newIdentityResolver(s.repo, s.identities)

	for i := range action.Objects {
		action.Objects[i].ObjectID = domain.Pseudonymize(action.Objects[i].ObjectID)
		syntheticID, err := resolver.Resolve(ctx, action.Objects[i].NaturalKey())
		if err != nil {
			return domain.ProcessingAction{}, err
		}
		action.Objects[i].SyntheticID = syntheticID
	}

	// One registration timestamp for the whole submission; records of one
	// action always share their sort-key suffix.
	action.RegisteredAt = s.now().UTC().Truncate(time.Second)

	records, err := domain.FanOut(action)
	if err != nil {
		return domain.ProcessingAction{}, appErrors.NewInternal("failed to build records", err)
	}
	if err := s.repo.SaveRecords(ctx, records); err != nil {
		return domain.ProcessingAction{}, err
	}

	if err := s.emit(ctx, action, operation); err != nil {
		return domain.ProcessingAction{}, err
	}

	s.logger.Info("processing action registered",
		zap.String("action_id", action.ActionID),
		zap.String("operation", operation),
		zap.Int("records", len(records)),
	)
	return action, nil
}

// emit runs the archive and notification side effects. The store write has
// already happened; a failure here is reported but does not roll it back.
func (s *service) emit(ctx context.Context, action domain.ProcessingAction, operation string) error {
	body, err := json.Marshal(action)
	if err != nil {
		return appErrors.NewInternal("failed to serialize action", err)
	}

	if s.archiver != nil {
		key := domain.FormatTimestamp(action.RegisteredAt) + "_" + action.ActionID
		if err := s.archiver.Archive(ctx, key, body); err != nil {
			s.logger.Error("archive failed", zap.String("action_id", action.ActionID), zap.Error(err))
			return appErrors.NewDependency("failed to archive action", err)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, operation, body); err != nil {
			s.logger.Error("notification failed", zap.String("action_id", action.ActionID), zap.Error(err))
			return appErrors.NewDependency("failed to publish notification", err)
		}
	}
	return nil
}

func (s *service) Get(ctx context.Context, actionID string, history bool) ([]domain.Record, error) {
	if actionID == "" {
		return nil, appErrors.NewValidation("action id is required")
	}

	records, err := s.repo.QueryAction(ctx, actionID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, appErrors.NewNotFound("processing action not found")
	}
	if history {
		return records, nil
	}
	return newestPerObjectKey(records), nil
}

func (s *service) List(ctx context.Context, key domain.NaturalKey, query repository.RecordQuery) ([]domain.Record, error) {
	key.ObjectID = domain.Pseudonymize(key.ObjectID)
	query.ObjectKey = key.ObjectKey()
	if err := query.Validate(); err != nil {
		return nil, err
	}

	return s.repo.QueryByObjectKey(ctx, query)
}

// newestPerObjectKey keeps only the most recent version of each composite
// key. Input is newest-first; the first record seen per object key wins.
func newestPerObjectKey(records []domain.Record) []domain.Record {
	seen := make(map[string]bool, len(records))
	out := make([]domain.Record, 0, len(records))
	for _, rec := range records {
		if seen[rec.ObjectKey] {
			continue
		}
		seen[rec.ObjectKey] = true
		out = append(out, rec)
	}
	return out
}
