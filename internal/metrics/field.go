package metrics

import (
	"bytes"
	"encoding/json"
)

// Field wraps a mandatory top-level field of a domain aggregate so that the
// three wire-level dispositions survive decoding: key absent, key present but
// of the wrong fundamental kind (null, scalar where a sequence is required),
// and well-formed. Downstream gates branch on Present/Valid instead of
// re-inspecting raw JSON.
type Field[T any] struct {
	Present bool
	Valid   bool
	Value   T
}

func (f *Field[T]) UnmarshalJSON(b []byte) error {
	f.Present = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	f.Valid = true
	f.Value = v
	return nil
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// Ok wraps a well-formed value, for producers and tests.
func Ok[T any](v T) Field[T] {
	return Field[T]{Present: true, Valid: true, Value: v}
}

// Broken is a present-but-malformed field (serializes as null).
func Broken[T any]() Field[T] {
	return Field[T]{Present: true}
}
