package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
)

// StringList is a list of strings stored as a JSON array column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

func (l *StringList) Scan(src interface{}) error {
	return scanJSON(src, l)
}

// Document is an opaque, syntactically valid JSON value. It round-trips
// byte-for-byte through the API and the database.
type Document []byte

func (d Document) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte("null"), nil
	}
	return []byte(d), nil
}

func (d *Document) UnmarshalJSON(data []byte) error {
	if !json.Valid(data) {
		return errors.New("document is not valid JSON")
	}
	*d = append((*d)[:0], data...)
	return nil
}

func (d Document) Value() (driver.Value, error) {
	if len(d) == 0 {
		return nil, nil
	}
	return []byte(d), nil
}

func (d *Document) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = nil
	case []byte:
		*d = append((*d)[:0], v...)
	case string:
		*d = Document(v)
	default:
		return fmt.Errorf("cannot scan %T into Document", src)
	}
	return nil
}

var typeOfFlexString = reflect.TypeOf(FlexString(""))

// FlexString accepts both JSON strings and JSON numbers, keeping the textual
// form. Models regularly answer "reps": 10 where "10" was requested.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if _, err := strconv.ParseFloat(string(data), 64); err != nil {
		return &json.UnmarshalTypeError{Value: string(data), Type: typeOfFlexString}
	}
	*s = FlexString(data)
	return nil
}

func scanJSON(src interface{}, dst interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into %T", src, dst)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to decode JSON column: %w", err)
	}
	return nil
}
