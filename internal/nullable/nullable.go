// Package nullable holds the JSON wrapper used by PATCH payloads to tell an
// absent key apart from an explicit null.
package nullable

import "encoding/json"

// Field is a patchable value. Set reports whether the key appeared in the
// payload at all; Valid reports whether it carried a non-null value.
type Field[T any] struct {
	Value T    `json:"value"`
	Valid bool `json:"valid"`
	Set   bool `json:"-"`
}

// Of returns a field set to v.
func Of[T any](v T) Field[T] {
	return Field[T]{Value: v, Valid: true, Set: true}
}

// Null returns a field that clears the column.
func Null[T any]() Field[T] {
	return Field[T]{Set: true}
}

// MarshalJSON implements the json.Marshaler interface
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// UnmarshalJSON implements the json.Unmarshaler interface. It only runs when
// the key is present, which is what marks the field as Set.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if string(data) == "null" {
		var zero T
		f.Valid = false
		f.Value = zero
		return nil
	}
	if err := json.Unmarshal(data, &f.Value); err != nil {
		return err
	}
	f.Valid = true
	return nil
}

// Ptr returns nil for a null field, suitable as a pgx argument.
func (f Field[T]) Ptr() *T {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}
