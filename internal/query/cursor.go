// Package query is the listing/query service (spec §4.M): cursor-paginated
// transaction listing, invoice search, and derived batch summaries.
// Grounded on the teacher's repository List* methods, restructured around
// a keyset cursor instead of OFFSET/LIMIT paging.
package query

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"payment-reconciliation-backend/internal/apperr"
)

// cursorPayload is the decoded shape of a page token (spec §4.M: "base64url-
// encoded {created_at: ISO-8601, id: UUID}").
type cursorPayload struct {
	CreatedAt time.Time `json:"created_at"`
	ID        uuid.UUID `json:"id"`
}

// EncodeCursor builds the opaque page token for the last row returned on a
// page, to be echoed back by the caller as the next page's cursor.
func EncodeCursor(createdAt time.Time, id uuid.UUID) string {
	raw, _ := json.Marshal(cursorPayload{CreatedAt: createdAt, ID: id})
	return base64.URLEncoding.EncodeToString(raw)
}

// DecodeCursor validates and decodes a page token. Any malformed input
// (bad base64, bad JSON, bad ISO-8601 date, bad UUID shape) is reported as
// a single bad_cursor error per spec §4.M, never a partial/best-effort
// decode.
func DecodeCursor(token string) (time.Time, uuid.UUID, error) {
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, uuid.Nil, apperr.BadRequest("bad_cursor")
	}
	var payload cursorPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return time.Time{}, uuid.Nil, apperr.BadRequest("bad_cursor")
	}
	if payload.ID == uuid.Nil || payload.CreatedAt.IsZero() {
		return time.Time{}, uuid.Nil, apperr.BadRequest("bad_cursor")
	}
	return payload.CreatedAt, payload.ID, nil
}
