package graph

import (
	"encoding/json"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// propsFromRecord extracts the property map of the single node bound to "n".
func propsFromRecord(rec *neo4j.Record) (map[string]any, error) {
	node, _, err := neo4j.GetRecordValue[dbtype.Node](rec, "n")
	if err != nil {
		return nil, err
	}
	return node.Props, nil
}

func strProp(props map[string]any, key string) string {
	if v, ok := props[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func intProp(props map[string]any, key string) int {
	switch v := props[key].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func floatProp(props map[string]any, key string) float64 {
	switch v := props[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

func strSliceProp(props map[string]any, key string) []string {
	raw, ok := props[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func timeProp(props map[string]any, key string) time.Time {
	s := strProp(props, key)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func timePtrProp(props map[string]any, key string) *time.Time {
	s := strProp(props, key)
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

// jsonProp unmarshals a JSON-encoded string property into T. Nested structs
// have no native Neo4j representation, so they travel as JSON strings.
func jsonProp[T any](props map[string]any, key string) T {
	var out T
	s := strProp(props, key)
	if s == "" {
		return out
	}
	_ = json.Unmarshal([]byte(s), &out)
	return out
}

func jsonPtrProp[T any](props map[string]any, key string) *T {
	s := strProp(props, key)
	if s == "" {
		return nil
	}
	var out T
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return &out
}

func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
