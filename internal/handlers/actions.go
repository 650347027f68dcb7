package handlers

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"proclog-backend/internal/domain"
	"proclog-backend/internal/repository"
	"proclog-backend/internal/service/actions"
	"proclog-backend/pkg/api"
	appErrors "proclog-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ActionHandler handles processing-action HTTP requests.
type ActionHandler struct {
	service actions.Service
	logger  *zap.Logger
}

// NewActionHandler creates an action handler with injected dependencies.
func NewActionHandler(service actions.Service, logger *zap.Logger) *ActionHandler {
	return &ActionHandler{service: service, logger: logger}
}

// Routes mounts every processing-action route on a fresh router.
func (h *ActionHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Patch("/", h.Reclassify)
	r.Get("/{actionId}", h.Get)
	r.Put("/{actionId}", h.Replace)
	r.Delete("/{actionId}", h.Revoke)
	return r
}

// Create handles POST /processing-actions.
func (h *ActionHandler) Create(w http.ResponseWriter, r *http.Request) {
	action, err := h.decodeAction(r)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	if action.ActionID != "" {
		handleServiceError(w, h.logger, appErrors.NewValidation("actionId must not be supplied on create"))
		return
	}

	created, err := h.service.Create(r.Context(), action)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, created)
}

// Replace handles PUT /processing-actions/{actionId}.
func (h *ActionHandler) Replace(w http.ResponseWriter, r *http.Request) {
	actionID := chi.URLParam(r, "actionId")

	action, err := h.decodeAction(r)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	if action.ActionID != "" && action.ActionID != actionID {
		handleServiceError(w, h.logger, appErrors.NewValidation("actionId in body does not match path"))
		return
	}
	action.ActionID = actionID

	replaced, err := h.service.Replace(r.Context(), action)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, replaced)
}

// Get handles GET /processing-actions/{actionId}.
func (h *ActionHandler) Get(w http.ResponseWriter, r *http.Request) {
	actionID := chi.URLParam(r, "actionId")
	history := r.URL.Query().Get("history") == "true"

	records, err := h.service.Get(r.Context(), actionID, history)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, api.ListResponse{Items: recordBodies(records)})
}

// List handles GET /processing-actions with object-centric filters.
func (h *ActionHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	key := domain.NaturalKey{
		ObjectType: q.Get("objectType"),
		ObjectKind: q.Get("objectKind"),
		ObjectID:   q.Get("objectId"),
	}
	if key.ObjectType == "" || key.ObjectKind == "" || key.ObjectID == "" {
		handleServiceError(w, h.logger, appErrors.NewValidation("objectType, objectKind and objectId are required"))
		return
	}

	query := repository.RecordQuery{
		ActivityID:      q.Get("activityId"),
		Confidentiality: q.Get("confidentiality"),
	}
	if raw := q.Get("beginDate"); raw != "" {
		t, err := parseDateParam(raw)
		if err != nil {
			handleServiceError(w, h.logger, appErrors.NewValidation("beginDate is not a valid date"))
			return
		}
		query.BeginDate = &t
	}
	if raw := q.Get("endDate"); raw != "" {
		t, err := parseDateParam(raw)
		if err != nil {
			handleServiceError(w, h.logger, appErrors.NewValidation("endDate is not a valid date"))
			return
		}
		query.EndDate = &t
	}

	records, err := h.service.List(r.Context(), key, query)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, api.ListResponse{Items: recordBodies(records)})
}

// Reclassify handles PATCH /processing-actions?processingId=...
func (h *ActionHandler) Reclassify(w http.ResponseWriter, r *http.Request) {
	processingID := r.URL.Query().Get("processingId")
	if processingID == "" {
		handleServiceError(w, h.logger, appErrors.NewValidation("processingId is required"))
		return
	}

	var req api.ReclassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleServiceError(w, h.logger, appErrors.NewValidation("invalid request body"))
		return
	}

	update := repository.ClassificationUpdate{
		Confidentiality: req.Confidentiality,
		RetentionPeriod: req.RetentionPeriod,
	}
	count, err := h.service.Reclassify(r.Context(), processingID, update)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, api.ReclassifyResponse{Updated: count})
}

// Revoke handles DELETE /processing-actions/{actionId}.
func (h *ActionHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	actionID := chi.URLParam(r, "actionId")

	revoked, err := h.service.Revoke(r.Context(), actionID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, api.ListResponse{Items: recordBodies(revoked)})
}

// decodeAction parses and validates a request body, then converts it to the
// domain model.
func (h *ActionHandler) decodeAction(r *http.Request) (domain.ProcessingAction, error) {
	var req api.ProcessingActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return domain.ProcessingAction{}, appErrors.NewValidation("invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return domain.ProcessingAction{}, appErrors.NewValidation(formatValidationError(err))
	}
	return toDomain(req)
}

func toDomain(req api.ProcessingActionRequest) (domain.ProcessingAction, error) {
	action := domain.ProcessingAction{
		ActionID:             req.ActionID,
		URL:                  req.URL,
		Name:                 req.Name,
		OperationName:        req.OperationName,
		ProcessingID:         req.ProcessingID,
		ProcessingName:       req.ProcessingName,
		ActivityID:           req.ActivityID,
		ActivityURL:          req.ActivityURL,
		Confidentiality:      req.Confidentiality,
		RetentionPeriod:      req.RetentionPeriod,
		Executor:             req.Executor,
		System:               req.System,
		User:                 req.User,
		DataSource:           req.DataSource,
		RecipientKind:        req.RecipientKind,
		RecipientID:          req.RecipientID,
		RecipientActivityID:  req.RecipientActivityID,
		RecipientActivityURL: req.RecipientActivityURL,
		RecipientProcessing:  req.RecipientProcessing,
	}
	if req.OccurredAt != "" {
		t, err := time.Parse(time.RFC3339, req.OccurredAt)
		if err != nil {
			return domain.ProcessingAction{}, appErrors.NewValidation("occurredAt is not a valid timestamp")
		}
		action.OccurredAt = t
	}
	for _, obj := range req.Objects {
		categories := make([]domain.DataCategory, 0, len(obj.DataCategories))
		for _, cat := range obj.DataCategories {
			categories = append(categories, domain.DataCategory{Category: cat.Category})
		}
		action.Objects = append(action.Objects, domain.ProcessedObject{
			ObjectType:     obj.ObjectType,
			ObjectKind:     obj.ObjectKind,
			ObjectID:       obj.ObjectID,
			DataCategories: categories,
		})
	}
	return action, nil
}

// recordBodies strips records down to their action bodies. Never nil, so an
// empty result renders as an empty JSON array.
func recordBodies(records []domain.Record) []domain.ProcessingAction {
	out := make([]domain.ProcessingAction, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.ProcessingAction)
	}
	return out
}

func formatValidationError(err error) string {
	var invalid validator.ValidationErrors
	if !stderrors.As(err, &invalid) || len(invalid) == 0 {
		return "request validation failed"
	}
	fields := make([]string, 0, len(invalid))
	for _, fe := range invalid {
		fields = append(fields, fe.Field())
	}
	return fmt.Sprintf("invalid or missing fields: %s", strings.Join(fields, ", "))
}
