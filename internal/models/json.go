package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONMap stores an arbitrary key/value detail bag as a JSON column.
// Absent keys are distinguishable from keys stored as JSON null: a lookup
// with the comma-ok idiom returns ok=false only when the key is missing.
type JSONMap map[string]interface{}

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	data, err := jsonBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, m)
}

// FrameworkList stores the set of framework tags on an event as JSON.
type FrameworkList []Framework

// Value implements driver.Valuer.
func (l FrameworkList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *FrameworkList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	data, err := jsonBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, l)
}

// Contains reports whether the list carries the given framework tag.
func (l FrameworkList) Contains(f Framework) bool {
	for _, tag := range l {
		if tag == f {
			return true
		}
	}
	return false
}

// ConditionList stores a rule's ordered predicate as JSON.
type ConditionList []ComplianceCondition

// Value implements driver.Valuer.
func (l ConditionList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *ConditionList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	data, err := jsonBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, l)
}

// jsonBytes normalizes the driver value ([]byte on postgres, string on
// sqlite) into raw JSON bytes.
func jsonBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported JSON column type %T", value)
	}
}
