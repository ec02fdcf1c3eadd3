package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// SyncError is one accumulated non-fatal error of a job run.
type SyncError struct {
	Source     string    `json:"source"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurredAt"`
}

type ErrorList []SyncError

func (e ErrorList) Value() (driver.Value, error) {
	if e == nil {
		return "[]", nil
	}
	val, err := json.Marshal(e)
	return string(val), err
}

func (e *ErrorList) Scan(value any) error {
	return scanJSON(value, e)
}

type Metadata map[string]any

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	val, err := json.Marshal(m)
	return string(val), err
}

func (m *Metadata) Scan(value any) error {
	return scanJSON(value, m)
}

type StringList []string

func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	val, err := json.Marshal(s)
	return string(val), err
}

func (s *StringList) Scan(value any) error {
	return scanJSON(value, s)
}

func scanJSON(value, dest any) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported column type %T", value)
	}
}
