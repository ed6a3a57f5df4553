package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Reference points at another record either by id alone or with the record
// already resolved. The zero value is an unset reference.
type Reference[T any] struct {
	id    string
	value *T
}

// IDRef returns an unresolved reference. An empty id yields an unset reference.
func IDRef[T any](id string) Reference[T] {
	return Reference[T]{id: id}
}

// ResolvedRef returns a reference carrying the loaded record
func ResolvedRef[T any](id string, value *T) Reference[T] {
	return Reference[T]{id: id, value: value}
}

// ID returns the referenced id, empty when unset
func (r Reference[T]) ID() string {
	return r.id
}

// IsSet returns true if the reference points at something
func (r Reference[T]) IsSet() bool {
	return r.id != ""
}

// Resolved returns the loaded record when the reference was resolved
func (r Reference[T]) Resolved() (*T, bool) {
	return r.value, r.value != nil
}

// IDPtr returns the id as a nullable column value
func (r Reference[T]) IDPtr() *string {
	if r.id == "" {
		return nil
	}
	id := r.id
	return &id
}

// RefFromPtr builds an unresolved reference from a nullable column value
func RefFromPtr[T any](id *string) Reference[T] {
	if id == nil {
		return Reference[T]{}
	}
	return IDRef[T](*id)
}

// MarshalJSON writes the id or null; resolved values are never embedded
func (r Reference[T]) MarshalJSON() ([]byte, error) {
	if r.id == "" {
		return []byte("null"), nil
	}
	return json.Marshal(r.id)
}

// UnmarshalJSON reads null, an id, or an object carrying an "id" member into
// an unresolved reference. Numeric ids are kept as their decimal text.
func (r *Reference[T]) UnmarshalJSON(b []byte) error {
	r.value = nil
	r.id = ""
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '{' {
		var obj struct {
			ID json.RawMessage `json:"id"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		if len(obj.ID) == 0 {
			return fmt.Errorf("reference object without id: %s", b)
		}
		b = bytes.TrimSpace(obj.ID)
		if bytes.Equal(b, []byte("null")) {
			return nil
		}
	}
	id, err := referenceID(b)
	if err != nil {
		return err
	}
	r.id = id
	return nil
}

func referenceID(b []byte) (string, error) {
	if len(b) > 0 && b[0] == '"' {
		var s string
		err := json.Unmarshal(b, &s)
		return s, err
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return "", fmt.Errorf("reference id must be a string or number: %s", b)
	}
	return n.String(), nil
}
