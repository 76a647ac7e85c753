package firestoredb

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

// ErrInvalidCursor is returned when a continuation token cannot be decoded or
// was issued for a different ordering.
var ErrInvalidCursor = errors.New("invalid pagination cursor")

// Cursor pins the position of the last document a page returned. It is an
// opaque continuation token tied to the last-seen sort key, never an offset:
// results are a consistent snapshot at read time but are not repeatable once
// the underlying set mutates.
type Cursor struct {
	// OrderField records the ordering the cursor was issued under so a token
	// cannot silently be replayed against a differently-ordered query.
	OrderField string `json:"f"`
	// SortValue is the last document's value for OrderField.
	SortValue time.Time `json:"v"`
	// DocPath is the last document's full path, used as the tie-breaker.
	DocPath string `json:"p"`
}

// Encode serializes the cursor into a URL-safe opaque token.
func (c Cursor) Encode() string {
	raw, err := json.Marshal(c)
	if err != nil {
		// Cursor is a plain value type; marshal cannot fail at runtime.
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses a continuation token previously produced by Encode.
// The expected order field guards against tokens crossing query shapes.
func DecodeCursor(token, expectedOrderField string) (Cursor, error) {
	if token == "" {
		return Cursor{}, ErrInvalidCursor
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}

	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	if c.DocPath == "" || c.OrderField == "" {
		return Cursor{}, ErrInvalidCursor
	}
	if expectedOrderField != "" && c.OrderField != expectedOrderField {
		return Cursor{}, ErrInvalidCursor
	}

	return c, nil
}
