package domain

import "time"

// Message lifecycle stages as reported by the provider. Values the provider
// introduces later pass through verbatim and rank alongside StatusUnknown.
const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
	StatusUnknown   = "unknown"
)

// RankOf orders lifecycle stages so a stale update can never overwrite a
// newer one. Anything outside the known vocabulary ranks 0 and therefore
// never downgrades a concrete status.
func RankOf(status string) int {
	switch status {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	default:
		return 0
	}
}

// Message is the persisted entity. Exactly one document exists per provider
// message id; status is the only field a status-only update may change.
type Message struct {
	ID             string         `bson:"_id" json:"id"`
	ReplyToID      string         `bson:"reply_to_id,omitempty" json:"reply_to_id,omitempty"`
	ConversationID string         `bson:"conversation_id" json:"conversation_id"`
	From           string         `bson:"from" json:"from"`
	To             string         `bson:"to" json:"to"`
	DisplayName    string         `bson:"display_name,omitempty" json:"display_name,omitempty"`
	Body           string         `bson:"body" json:"body"`
	Kind           string         `bson:"kind" json:"kind"`
	Status         string         `bson:"status" json:"status"`
	StatusRank     int            `bson:"status_rank" json:"-"`
	OccurredAt     time.Time      `bson:"occurred_at" json:"occurred_at"`
	CreatedAt      time.Time      `bson:"created_at" json:"created_at"`
	Raw            map[string]any `bson:"raw,omitempty" json:"-"`
}

// NormalizedMessage is one conversational message extracted from a webhook
// payload, before reconciliation against the store.
type NormalizedMessage struct {
	ID             string
	ReplyToID      string
	ConversationID string
	From           string
	To             string
	DisplayName    string
	Body           string
	Kind           string
	OccurredAt     time.Time
	Raw            map[string]any
}

// NormalizedStatus is one status transition extracted from a webhook payload.
// MessageID must match a persisted Message to have any effect.
type NormalizedStatus struct {
	MessageID      string
	ConversationID string
	Status         string
	Raw            map[string]any
}

// IngestSummary aggregates the outcome of one reconciliation pass. Errors
// holds per-record store failures; they never abort sibling records.
type IngestSummary struct {
	Inserted int      `json:"inserted"`
	Updated  int      `json:"updated"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}
