package model

import "encoding/json"

// Optional distinguishes the three states of a field in a partial update:
// absent (Set false), explicitly null (Set and Null), or a value.
//
// encoding/json only calls UnmarshalJSON for keys present in the document,
// so a zero Optional means "leave unchanged".
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Null = true
		var zero T
		o.Value = zero
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

// Ptr returns nil for an absent or null Optional, else a pointer to a copy
// of the value.
func (o Optional[T]) Ptr() *T {
	if !o.Set || o.Null {
		return nil
	}
	v := o.Value
	return &v
}
