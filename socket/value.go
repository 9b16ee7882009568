// Package socket implements the boxed, JSON-backed value type that flows
// across data sockets: a (type name, JSON payload) pair that can be decoded
// on demand at node boundaries.
package socket

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Value is a typed, JSON-boxed value. It is the wire form used for
// persistence and cross-boundary I/O, and the form stored at every
// (node, socket) key in runtime storage.
type Value struct {
	// TypeName is a fully qualified description of the boxed Go type,
	// derived via reflection from the value it was built from.
	TypeName string `json:"type_name"`

	// JSON is the serialised payload. A nil/empty payload represents a
	// null value; decoding it yields the zero value of the target type.
	JSON []byte `json:"json,omitempty"`
}

// DecodeError is returned when a Value's JSON payload cannot be decoded as
// the requested type.
type DecodeError struct {
	TypeName string
	Cause    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("socket: decode %s: %v", e.TypeName, e.Cause)
}

func (e *DecodeError) Unwrap() error { return e.Cause }

// Null is the empty socket value: no declared type, no payload.
var Null = Value{}

// FromValue boxes v: it records v's type name and serialises v to JSON. A
// nil v produces Null.
func FromValue(v any) (Value, error) {
	if v == nil {
		return Null, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return Value{}, &DecodeError{TypeName: typeName(v), Cause: err}
	}
	return Value{TypeName: typeName(v), JSON: data}, nil
}

// MustFromValue is FromValue but panics on error; useful for built-in node
// bodies constructing literal values that are always JSON-serialisable.
func MustFromValue(v any) Value {
	val, err := FromValue(v)
	if err != nil {
		panic(err)
	}
	return val
}

// To decodes v's JSON payload as T. An empty payload (Null, or any Value
// with a nil/empty JSON field) yields the zero value of T and a nil error.
// A malformed payload or a payload that cannot unmarshal into T returns a
// *DecodeError.
func To[T any](v Value) (T, error) {
	var out T
	if len(v.JSON) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(v.JSON, &out); err != nil {
		return out, &DecodeError{TypeName: v.TypeName, Cause: err}
	}
	return out, nil
}

// MustTo is To but panics on error.
func MustTo[T any](v Value) T {
	out, err := To[T](v)
	if err != nil {
		panic(err)
	}
	return out
}

// IsNull reports whether v carries no payload.
func (v Value) IsNull() bool {
	return len(v.JSON) == 0
}

func typeName(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return "nil"
	}
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.String()
}
