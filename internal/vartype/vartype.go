// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package vartype provides a value wrapper that remembers whether it was ever set. It is used
// to tell a field that is missing from an API payload apart from one that is zero.
package vartype

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type (
	// VarFloat64 is a type alias for Variable[float64], representing a float64 value with initialization tracking.
	VarFloat64 = Variable[float64]

	// VarInt is a type alias for Variable[int], representing an integer value with initialization tracking.
	VarInt = Variable[int]
)

// Variable represents a generic type wrapper that holds a value and tracks its initialization state.
type Variable[T any] struct {
	value T
	isset bool
}

// NewVariable creates and returns a new Variable instance initialized with the provided value.
func NewVariable[T any](value T) Variable[T] {
	return Variable[T]{
		isset: true,
		value: value,
	}
}

// Reset clears the value of the Variable and marks it as uninitialized.
func (v *Variable[T]) Reset() {
	var newVal T
	v.value = newVal
	v.isset = false
}

// Value retrieves the current value stored in the Variable.
func (v *Variable[T]) Value() T {
	return v.value
}

// ValueOr returns the stored value, or fallback if the Variable was never set.
func (v *Variable[T]) ValueOr(fallback T) T {
	if !v.isset {
		return fallback
	}
	return v.value
}

// Set assigns the provided value to the Variable and marks it as initialized.
func (v *Variable[T]) Set(val T) {
	v.value = val
	v.isset = true
}

// IsSet returns true if the Variable has been initialized with a value, otherwise false.
func (v *Variable[T]) IsSet() bool {
	return v.isset
}

// UnmarshalJSON sets the Variable from a JSON value. A JSON null leaves it unset.
func (v *Variable[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		v.Reset()
		return nil
	}
	var val T
	if err := json.Unmarshal(data, &val); err != nil {
		return err
	}
	v.Set(val)
	return nil
}

// MarshalJSON encodes an unset Variable as null.
func (v Variable[T]) MarshalJSON() ([]byte, error) {
	if !v.isset {
		return []byte("null"), nil
	}
	return json.Marshal(v.value)
}

// String returns a string representation of the Variable. If uninitialized, it returns a default placeholder message.
func (v Variable[T]) String() string {
	if !v.isset {
		return "n/a"
	}
	return fmt.Sprint(v.value)
}
