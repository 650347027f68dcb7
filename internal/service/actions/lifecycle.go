package actions

import (
	"context"
	"encoding/json"
	"time"

	"proclog-backend/internal/domain"
	"proclog-backend/internal/repository"
	appErrors "proclog-backend/pkg/errors"

	"go.uber.org/zap"
)

func (s *service) Reclassify(ctx context.Context, processingID string, update repository.ClassificationUpdate) (int, error) {
	if processingID == "" {
		return 0, appErrors.NewValidation("processing id is required")
	}
	if update.IsEmpty() {
		return 0, appErrors.NewValidation("no classification fields supplied")
	}

	records, err := s.repo.QueryByProcessingID(ctx, processingID)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, appErrors.NewNotFound("no records for processing")
	}

	for _, rec := range records {
		if err := s.repo.UpdateClassification(ctx, rec.ActionID, rec.RecordKey, update); err != nil {
			return 0, err
		}
	}

	if s.publisher != nil {
		notice := map[string]interface{}{
			"processingId": processingID,
			"updated":      len(records),
		}
		if update.Confidentiality != nil {
			notice["confidentiality"] = *update.Confidentiality
		}
		if update.RetentionPeriod != nil {
			notice["retentionPeriod"] = *update.RetentionPeriod
		}
		body, err := json.Marshal(notice)
		if err != nil {
			return 0, appErrors.NewInternal("failed to serialize notification", err)
		}
		if err := s.publisher.Publish(ctx, OpReclassify, body); err != nil {
			s.logger.Error("notification failed", zap.String("processing_id", processingID), zap.Error(err))
			return 0, appErrors.NewDependency("failed to publish notification", err)
		}
	}

	s.logger.Info("records reclassified",
		zap.String("processing_id", processingID),
		zap.Int("records", len(records)),
	)
	return len(records), nil
}

// Revoke never touches stored versions. For each composite key of the action
// it appends a copy of the newest version flagged as revoked, so the log
// stays append-only and the revocation itself is auditable.
func (s *service) Revoke(ctx context.Context, actionID string) ([]domain.Record, error) {
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

	now := s.now().UTC().Truncate(time.Second)
	revoked := make([]domain.Record, 0, len(records))
	for _, rec := range newestPerObjectKey(records) {
		// A revoke in the same second as the version it flags would reuse
		// that version's composite key and overwrite it. The registration
		// timestamp must be strictly newer than the flagged version's.
		registeredAt := now
		if !registeredAt.After(rec.RegisteredAt) {
			registeredAt = rec.RegisteredAt.Add(time.Second)
		}
		rec.Revoked = true
		rec.RevokedAt = now
		rec.RegisteredAt = registeredAt
		rec.RecordKey = domain.BuildRecordKey(rec.ObjectKey, registeredAt)
		revoked = append(revoked, rec)
	}

	if err := s.repo.SaveRecords(ctx, revoked); err != nil {
		return nil, err
	}

	if s.publisher != nil {
		body, err := json.Marshal(revoked[0].ProcessingAction)
		if err != nil {
			return nil, appErrors.NewInternal("failed to serialize notification", err)
		}
		if err := s.publisher.Publish(ctx, OpRevoke, body); err != nil {
			s.logger.Error("notification failed", zap.String("action_id", actionID), zap.Error(err))
			return nil, appErrors.NewDependency("failed to publish notification", err)
		}
	}

	s.logger.Info("processing action revoked",
		zap.String("action_id", actionID),
		zap.Int("records", len(revoked)),
	)
	return revoked, nil
}
