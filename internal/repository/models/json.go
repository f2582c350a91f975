package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// JSON stores a value as JSON text in a CLOB/TEXT column. Valid is false for SQL NULL.
type JSON[T any] struct {
	Data  T
	Valid bool
}

// NewJSON wraps v as a non-null column value.
func NewJSON[T any](v T) JSON[T] {
	return JSON[T]{Data: v, Valid: true}
}

// Value implements the driver.Valuer interface
func (j JSON[T]) Value() (driver.Value, error) {
	if !j.Valid {
		return nil, nil
	}
	// 드라이버 호환을 위해 []byte 대신 string 반환
	data, err := json.Marshal(j.Data)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements the sql.Scanner interface
func (j *JSON[T]) Scan(value interface{}) error {
	var zero T
	if value == nil {
		j.Data, j.Valid = zero, false
		return nil
	}

	var bytesToParse []byte
	switch v := value.(type) {
	case []byte:
		bytesToParse = v
	case string:
		bytesToParse = []byte(v)
	default:
		return errors.New("JSON Scan: unsupported type " + fmt.Sprintf("%T", value))
	}

	// 빈 문자열이나 "null"은 NULL로 취급
	if len(bytesToParse) == 0 || string(bytesToParse) == "null" {
		j.Data, j.Valid = zero, false
		return nil
	}

	if err := json.Unmarshal(bytesToParse, &j.Data); err != nil {
		return err
	}
	j.Valid = true
	return nil
}
