// Package webhook turns provider notification payloads into canonical
// message and status records. Payload shapes drifted across provider
// versions, so extraction runs every known shape detector against the same
// payload and accumulates whatever each one yields.
package webhook

import (
	"strconv"
	"time"

	"github.com/fathima-sithara/webhook-service/internal/domain"
)

// Normalize extracts messages and statuses from an already-parsed payload.
// It is pure and never fails: underivable fields fall back to documented
// defaults, and items with no message id are dropped because they cannot be
// reconciled. Records are emitted in source order, shapes in fixed priority:
// the entry[].changes[].value envelope first, the same envelope nested under
// a "data" wrapper second, flat messages[]/statuses[] arrays last.
func Normalize(payload map[string]any) ([]domain.NormalizedMessage, []domain.NormalizedStatus) {
	now := time.Now().UTC()
	var msgs []domain.NormalizedMessage
	var sts []domain.NormalizedStatus

	collectEntries(payload["entry"], now, &msgs, &sts)
	if data, ok := payload["data"].(map[string]any); ok {
		collectEntries(data["entry"], now, &msgs, &sts)
	}
	collectValue(payload, now, &msgs, &sts)

	return msgs, sts
}

func collectEntries(v any, now time.Time, msgs *[]domain.NormalizedMessage, sts *[]domain.NormalizedStatus) {
	entries, ok := v.([]any)
	if !ok {
		return
	}
	for _, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}
		changes, ok := entry["changes"].([]any)
		if !ok {
			continue
		}
		for _, c := range changes {
			change, ok := c.(map[string]any)
			if !ok {
				continue
			}
			if value, ok := change["value"].(map[string]any); ok {
				collectValue(value, now, msgs, sts)
			}
		}
	}
}

// collectValue extracts from one envelope "value" object. The flat payload
// shape is the same object at top level, so it funnels through here too.
func collectValue(value map[string]any, now time.Time, msgs *[]domain.NormalizedMessage, sts *[]domain.NormalizedStatus) {
	contactID, contactName := contactInfo(value)
	selfAddr := metadataAddress(value)

	if items, ok := value["messages"].([]any); ok {
		for _, it := range items {
			item, ok := it.(map[string]any)
			if !ok {
				continue
			}
			id := str(item, "id")
			if id == "" {
				continue
			}
			from := str(item, "from")
			convID := contactID
			if convID == "" {
				convID = from
			}
			kind := str(item, "type")
			if kind == "" {
				kind = "text"
			}
			body := ""
			if text, ok := item["text"].(map[string]any); ok {
				body = str(text, "body")
			}
			replyTo := ""
			if rctx, ok := item["context"].(map[string]any); ok {
				replyTo = str(rctx, "id")
			}
			*msgs = append(*msgs, domain.NormalizedMessage{
				ID:             id,
				ReplyToID:      replyTo,
				ConversationID: convID,
				From:           from,
				To:             selfAddr,
				DisplayName:    contactName,
				Body:           body,
				Kind:           kind,
				OccurredAt:     epochOr(item["timestamp"], now),
				Raw:            item,
			})
		}
	}

	if items, ok := value["statuses"].([]any); ok {
		for _, it := range items {
			item, ok := it.(map[string]any)
			if !ok {
				continue
			}
			id := str(item, "id")
			if id == "" {
				continue
			}
			status := str(item, "status")
			if status == "" {
				status = domain.StatusUnknown
			}
			*sts = append(*sts, domain.NormalizedStatus{
				MessageID:      id,
				ConversationID: str(item, "recipient_id"),
				Status:         status,
				Raw:            item,
			})
		}
	}
}

func contactInfo(value map[string]any) (id, name string) {
	contacts, ok := value["contacts"].([]any)
	if !ok || len(contacts) == 0 {
		return "", ""
	}
	contact, ok := contacts[0].(map[string]any)
	if !ok {
		return "", ""
	}
	id = str(contact, "wa_id")
	if profile, ok := contact["profile"].(map[string]any); ok {
		name = str(profile, "name")
	}
	return id, name
}

func metadataAddress(value map[string]any) string {
	meta, ok := value["metadata"].(map[string]any)
	if !ok {
		return ""
	}
	if n := str(meta, "display_phone_number"); n != "" {
		return n
	}
	return str(meta, "phone_number_id")
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// epochOr converts a provider timestamp (seconds since epoch, sent as a
// string or a number depending on payload shape) to UTC. Absent or
// malformed values fall back to the normalization instant.
func epochOr(v any, fallback time.Time) time.Time {
	switch t := v.(type) {
	case string:
		if sec, err := strconv.ParseInt(t, 10, 64); err == nil {
			return time.Unix(sec, 0).UTC()
		}
	case float64:
		return time.Unix(int64(t), 0).UTC()
	case int64:
		return time.Unix(t, 0).UTC()
	case int:
		return time.Unix(int64(t), 0).UTC()
	}
	return fallback
}
