package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// JSON is a jsonb column backed by a plain map.
type JSON map[string]interface{}

func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for JSON scan: %T", value)
	}

	return json.Unmarshal(data, j)
}

func (j JSON) GetString(key string) string {
	if v, ok := j[key].(string); ok {
		return v
	}
	return ""
}

func (j JSON) GetFloat(key string) float64 {
	switch v := j[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	}
	return 0
}

func (j JSON) GetBool(key string, fallback bool) bool {
	if v, ok := j[key].(bool); ok {
		return v
	}
	return fallback
}

func (j JSON) GetMap(key string) JSON {
	switch v := j[key].(type) {
	case map[string]interface{}:
		return JSON(v)
	case JSON:
		return v
	}
	return nil
}

func (j JSON) GetSlice(key string) []interface{} {
	if v, ok := j[key].([]interface{}); ok {
		return v
	}
	return nil
}

func (j JSON) GetStringSlice(key string) []string {
	raw := j.GetSlice(key)
	if raw == nil {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, entry := range raw {
		if s, ok := entry.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// ToJSON round-trips a typed value through encoding/json into a JSON map.
func ToJSON(v interface{}) (JSON, error) {
	if v == nil {
		return nil, errors.New("cannot convert nil value")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out JSON
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
