// Package domain holds the core model for the processing log: processing
// actions, the objects they touch, and the per-object records that are
// persisted and indexed.
package domain

import (
	"fmt"
	"time"
)

// RecordKeySeparator joins the natural-key attribute and the registration
// timestamp into the composite sort key.
const RecordKeySeparator = "#"

// DataCategory tags the kind of data that was processed about an object.
type DataCategory struct {
	Category string `json:"category"`
}

// ProcessedObject is a reference, inside a processing action, to one
// real-world object. ObjectID is pseudonymized before it ever reaches a
// Record; the raw identifier is never persisted.
type ProcessedObject struct {
	ObjectType     string         `json:"objectType"`
	ObjectKind     string         `json:"objectKind"`
	ObjectID       string         `json:"objectId"`
	SyntheticID    string         `json:"syntheticId,omitempty"`
	DataCategories []DataCategory `json:"dataCategories"`
}

// NaturalKey returns the key that identifies this same object across
// unrelated actions. Only valid once ObjectID is pseudonymized.
func (o ProcessedObject) NaturalKey() NaturalKey {
	return NaturalKey{
		ObjectType: o.ObjectType,
		ObjectKind: o.ObjectKind,
		ObjectID:   o.ObjectID,
	}
}

// NaturalKey is the (type, kind, pseudonymized id) tuple for one real-world
// object.
type NaturalKey struct {
	ObjectType string
	ObjectKind string
	ObjectID   string
}

// ObjectKey is the denormalized index attribute derived from the natural key.
func (k NaturalKey) ObjectKey() string {
	return k.ObjectType + k.ObjectKind + k.ObjectID
}

// ProcessingAction is one logged act of processing data about one or more
// objects. ActionID is generated once per submission; every record fanned out
// from the action shares it.
type ProcessingAction struct {
	ActionID             string            `json:"actionId"`
	URL                  string            `json:"url,omitempty"`
	Name                 string            `json:"name,omitempty"`
	OperationName        string            `json:"operationName,omitempty"`
	ProcessingID         string            `json:"processingId,omitempty"`
	ProcessingName       string            `json:"processingName,omitempty"`
	ActivityID           string            `json:"activityId,omitempty"`
	ActivityURL          string            `json:"activityUrl,omitempty"`
	Confidentiality      string            `json:"confidentiality"`
	RetentionPeriod      string            `json:"retentionPeriod,omitempty"`
	Executor             string            `json:"executor,omitempty"`
	System               string            `json:"system,omitempty"`
	User                 string            `json:"user,omitempty"`
	DataSource           string            `json:"dataSource,omitempty"`
	RecipientKind        string            `json:"recipientKind,omitempty"`
	RecipientID          string            `json:"recipientId,omitempty"`
	RecipientActivityID  string            `json:"recipientActivityId,omitempty"`
	RecipientActivityURL string            `json:"recipientActivityUrl,omitempty"`
	RecipientProcessing  string            `json:"recipientProcessingId,omitempty"`
	OccurredAt           time.Time         `json:"occurredAt"`
	RegisteredAt         time.Time         `json:"registeredAt"`
	Objects              []ProcessedObject `json:"processedObjects"`
	Revoked              bool              `json:"revoked"`
	RevokedAt            time.Time         `json:"revokedAt,omitempty"`
}

// Record is the persisted projection of one (action, object) pair. It carries
// the full action body plus the keys of the object it is filed under, so each
// object can be queried independently while every record still shows the
// whole action.
type Record struct {
	ProcessingAction
	RecordKey string `json:"-"`
	ObjectKey string `json:"-"`
}

// FormatTimestamp renders a timestamp the way it is stored and sorted:
// RFC 3339, UTC, second precision. Fixed width keeps lexicographic order
// equal to chronological order inside composite sort keys.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

// BuildRecordKey constructs the composite sort key for one object at one
// registration time.
func BuildRecordKey(objectKey string, registeredAt time.Time) string {
	return objectKey + RecordKeySeparator + FormatTimestamp(registeredAt)
}

// FanOut produces one Record per processed object. The action must already
// carry its identifiers and registration timestamp; keys are computed here and
// never supplied by the caller.
func FanOut(action ProcessingAction) ([]Record, error) {
	if action.ActionID == "" {
		return nil, fmt.Errorf("action id not set")
	}
	if action.RegisteredAt.IsZero() {
		return nil, fmt.Errorf("registration timestamp not set")
	}

	records := make([]Record, 0, len(action.Objects))
	for _, obj := range action.Objects {
		objectKey := obj.NaturalKey().ObjectKey()
		records = append(records, Record{
			ProcessingAction: action,
			RecordKey:        BuildRecordKey(objectKey, action.RegisteredAt),
			ObjectKey:        objectKey,
		})
	}
	return records, nil
}
