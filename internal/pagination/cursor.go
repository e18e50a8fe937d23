// Package pagination implements opaque keyset cursors for list endpoints.
package pagination

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"
)

// ErrInvalidCursor is returned when a cursor token cannot be decoded.
var ErrInvalidCursor = errors.New("invalid cursor format")

// Cursor marks the position after the last item of a page. Listings order
// by (created_at, id), so both parts are needed to resume without skipping
// rows that share a timestamp.
type Cursor struct {
	LastID    string
	Timestamp time.Time
}

// Encode renders the cursor as an opaque token safe to put in a query
// string. A cursor without an ID encodes to the empty string.
func (c Cursor) Encode() string {
	if c.LastID == "" {
		return ""
	}
	raw := c.Timestamp.UTC().Format(time.RFC3339Nano) + "|" + c.LastID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// Decode parses a token produced by Encode. An empty token yields a nil
// cursor, meaning the first page.
func Decode(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	tsPart, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return nil, ErrInvalidCursor
	}

	ts, err := time.Parse(time.RFC3339Nano, tsPart)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &Cursor{LastID: id, Timestamp: ts}, nil
}
