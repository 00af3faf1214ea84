package model

import (
	"bytes"
	"encoding/json"
)

// Optional is a patch field that tells "absent" apart from "null".
// Set is true when the key was present in the body; Valid is false when its
// value was null.
type Optional[T any] struct {
	Set   bool
	Valid bool
	Value T
}

// Some returns a present, non-null field.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Valid: true, Value: v}
}

// Null returns a field explicitly set to null.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		o.Valid, o.Value = false, zero
		return nil
	}
	if err := json.Unmarshal(data, &o.Value); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

// ValidationValue is what request validation sees: the value, or the zero
// value when null.
func (o Optional[T]) ValidationValue() interface{} {
	return o.Value
}
