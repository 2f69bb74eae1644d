// Package pagination implements opaque keyset cursors for list endpoints.
package pagination

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"
)

// ErrInvalidCursor is returned when a cursor cannot be decoded.
var ErrInvalidCursor = errors.New("invalid cursor format")

// Cursor marks the position after the last item of a page. Listing resumes
// at rows ordered strictly after (Timestamp, LastID).
type Cursor struct {
	LastID    string
	Timestamp time.Time
}

// EncodeCursor packs a position into an opaque URL-safe token. An empty id
// yields an empty token, meaning no further pages.
func EncodeCursor(lastID string, ts time.Time) string {
	if lastID == "" {
		return ""
	}
	raw := lastID + "|" + ts.UTC().Format(time.RFC3339Nano)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor unpacks a token produced by EncodeCursor. An empty token
// decodes to nil, meaning start from the beginning.
func DecodeCursor(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	id, stamp, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return nil, ErrInvalidCursor
	}

	ts, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &Cursor{LastID: id, Timestamp: ts}, nil
}
