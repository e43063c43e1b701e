package models

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/goccy/go-json"
)

type Detail struct {
	Key   string
	Value string
}

// Details is the ordered key/value map attached to an auth event. It
// round-trips through JSON without reordering keys.
type Details []Detail

func NewDetails(pairs ...string) Details {
	d := make(Details, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		d = d.Set(pairs[i], pairs[i+1])
	}
	return d
}

func (d Details) Get(key string) string {
	for _, kv := range d {
		if kv.Key == key {
			return kv.Value
		}
	}
	return ""
}

// Set replaces the value of an existing key in place or appends a new pair.
func (d Details) Set(key, value string) Details {
	for i := range d {
		if d[i].Key == key {
			d[i].Value = value
			return d
		}
	}
	return append(d, Detail{Key: key, Value: value})
}

func (d Details) Len() int { return len(d) }

func (d Details) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kv := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(kv.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(kv.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON keeps document order. Scalar values that are not strings are
// kept in their JSON text form; nested objects and arrays are rejected.
func (d *Details) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*d = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("details: expected a JSON object")
	}

	out := Details{}
	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("details: unexpected key %v", tok)
		}

		tok, err = dec.Token()
		if err != nil {
			return err
		}
		var value string
		switch v := tok.(type) {
		case string:
			value = v
		case json.Number:
			value = v.String()
		case bool:
			value = strconv.FormatBool(v)
		case nil:
			value = ""
		default:
			return fmt.Errorf("details: value of %q must be a scalar", key)
		}
		out = out.Set(key, value)
	}

	if _, err := dec.Token(); err != nil && err != io.EOF {
		return err
	}
	*d = out
	return nil
}

// Encode returns the details as a JSON object, or "" when there are none so
// the caller can omit the column.
func (d Details) Encode() (string, error) {
	if len(d) == 0 {
		return "", nil
	}
	b, err := d.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(b), nil
}
