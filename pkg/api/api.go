// Package api defines the contracts for API requests and responses.
// It decouples the API structure from the internal domain models.
package api

import (
	"encoding/json"
	"net/http"
)

// Version is advertised on every response so clients can detect which
// contract revision they are talking to.
const Version = "1.0.0"

// DataCategoryRequest tags one kind of data inside a processed object.
type DataCategoryRequest struct {
	Category string `json:"category" validate:"required"`
}

// ProcessedObjectRequest is one object reference inside a submitted action.
// The raw objectId is accepted here and pseudonymized before storage.
type ProcessedObjectRequest struct {
	ObjectType     string                `json:"objectType" validate:"required"`
	ObjectKind     string                `json:"objectKind" validate:"required"`
	ObjectID       string                `json:"objectId" validate:"required"`
	DataCategories []DataCategoryRequest `json:"dataCategories" validate:"required,min=1,dive"`
}

// ProcessingActionRequest is the expected body for POST /processing-actions
// and PUT /processing-actions/{actionId}. ActionID is server-assigned on
// create; on replace it may be present but must match the path.
type ProcessingActionRequest struct {
	ActionID             string                   `json:"actionId" validate:"omitempty"`
	URL                  string                   `json:"url" validate:"omitempty,url"`
	Name                 string                   `json:"name" validate:"omitempty"`
	OperationName        string                   `json:"operationName" validate:"omitempty"`
	ProcessingID         string                   `json:"processingId" validate:"omitempty"`
	ProcessingName       string                   `json:"processingName" validate:"omitempty"`
	ActivityID           string                   `json:"activityId" validate:"omitempty"`
	ActivityURL          string                   `json:"activityUrl" validate:"omitempty,url"`
	Confidentiality      string                   `json:"confidentiality" validate:"required"`
	RetentionPeriod      string                   `json:"retentionPeriod" validate:"omitempty"`
	Executor             string                   `json:"executor" validate:"omitempty"`
	System               string                   `json:"system" validate:"omitempty"`
	User                 string                   `json:"user" validate:"omitempty"`
	DataSource           string                   `json:"dataSource" validate:"omitempty"`
	RecipientKind        string                   `json:"recipientKind" validate:"omitempty"`
	RecipientID          string                   `json:"recipientId" validate:"omitempty"`
	RecipientActivityID  string                   `json:"recipientActivityId" validate:"omitempty"`
	RecipientActivityURL string                   `json:"recipientActivityUrl" validate:"omitempty,url"`
	RecipientProcessing  string                   `json:"recipientProcessingId" validate:"omitempty"`
	OccurredAt           string                   `json:"occurredAt" validate:"required"`
	Objects              []ProcessedObjectRequest `json:"processedObjects" validate:"required,min=1,dive"`
}

// ReclassifyRequest is the expected body for PATCH /processing-actions.
// At least one field must be present; the handler enforces that.
type ReclassifyRequest struct {
	Confidentiality *string `json:"confidentiality" validate:"omitempty"`
	RetentionPeriod *string `json:"retentionPeriod" validate:"omitempty"`
}

// ReclassifyResponse reports how many stored records were rewritten.
type ReclassifyResponse struct {
	Updated int `json:"updated"`
}

// ListResponse wraps a collection result.
type ListResponse struct {
	Items interface{} `json:"items"`
}

// Problem is the standardized failure body, following the problem-details
// shape the clients already consume.
type Problem struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
}

// WriteJSON writes a success body with the version header set.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("API-Version", Version)
	w.WriteHeader(statusCode)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// WriteProblem writes a failure body as application/problem+json.
func WriteProblem(w http.ResponseWriter, statusCode int, title string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.Header().Set("API-Version", Version)
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(Problem{Title: title, Status: statusCode})
}
