package usecasekit

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// PageKey is the native resume position of a store query (the last evaluated key).
// A nil PageKey means "start from the beginning" on input and "exhausted" on output.
type PageKey map[string]string

// cursorData is what a continuation token carries
type cursorData struct {
	Op  string  `json:"op"`
	Key PageKey `json:"key"`
}

// EncodeCursor turns the last evaluated key of op into an opaque token.
// An empty key yields an empty token.
func EncodeCursor(op string, key PageKey) (string, error) {
	if len(key) == 0 {
		return "", nil
	}

	data, err := json.Marshal(cursorData{Op: op, Key: key})
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(data), nil
}

// DecodeCursor parses a token previously issued by EncodeCursor for the same op.
// An empty token yields a nil key.
func DecodeCursor(op, token string) (PageKey, error) {
	if token == "" {
		return nil, nil
	}

	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, &UseCaseError{Code: ErrCodeInvalidCursor, Op: op, Message: "malformed continuation token", Err: err}
	}

	var cursor cursorData
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, &UseCaseError{Code: ErrCodeInvalidCursor, Op: op, Message: "malformed continuation token", Err: err}
	}

	if cursor.Op != op {
		return nil, NewError(ErrCodeInvalidCursor, op, fmt.Sprintf("continuation token was issued by %q", cursor.Op))
	}
	if len(cursor.Key) == 0 {
		return nil, NewError(ErrCodeInvalidCursor, op, "continuation token has no position")
	}

	return cursor.Key, nil
}
