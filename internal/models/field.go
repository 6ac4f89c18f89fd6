package models

import (
	"bytes"
	"encoding/json"
)

type fieldState uint8

const (
	fieldUnset fieldState = iota
	fieldSet
	fieldCleared
)

// Field is an optional update value that distinguishes "not provided" from
// "explicitly cleared". The zero value is unset. In JSON an absent key is
// unset, null or an empty string clears, and anything else sets.
type Field[T any] struct {
	state fieldState
	value T
}

func Set[T any](v T) Field[T] { return Field[T]{state: fieldSet, value: v} }

func Clear[T any]() Field[T] { return Field[T]{state: fieldCleared} }

// Present reports whether the field takes part in an update.
func (f Field[T]) Present() bool { return f.state != fieldUnset }

func (f Field[T]) Cleared() bool { return f.state == fieldCleared }

// Get returns the value and whether it was set to one.
func (f Field[T]) Get() (T, bool) { return f.value, f.state == fieldSet }

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte(`""`)) {
		*f = Clear[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Set(v)
	return nil
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if f.state != fieldSet {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}
