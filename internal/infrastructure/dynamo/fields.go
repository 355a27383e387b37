package dynamo

import "time"

// Attribute names of the attempts table.
const (
	fieldAttemptID = "attempt_id"
	fieldDraftID   = "draft_id"
	fieldType      = "type"
	fieldStage     = "stage"
	fieldLevel     = "level"
	fieldMessage   = "message"
	fieldInfo      = "info"
	fieldPointer   = "pointer"
	fieldTxHash    = "tx_hash"
	fieldError     = "error"
	fieldCreatedAt = "created_at"
	fieldUpdatedAt = "updated_at"
	fieldExpiresAt = "expires_at"

	indexDraftUpdated = "draft_id-updated_at-index"
)

// sortableTime is a fixed-width RFC 3339 layout. updated_at is the history
// index range key, so its string order must match time order.
const sortableTime = "2006-01-02T15:04:05.000000000Z07:00"

func sortKeyTime(t time.Time) string {
	return t.UTC().Format(sortableTime)
}
