package valhalla

import (
	"encoding/json"
	"strconv"
)

// NormalizeList accepts every list envelope the backend emits: a bare array,
// {data:[...]}, {data:{items:[...],total}}, {items:[...]} and {results:[...]}.
// When the envelope carries no total the item count is used.
func NormalizeList(raw json.RawMessage) ([]Record, int) {
	var list []Record
	if err := json.Unmarshal(raw, &list); err == nil {
		return nonNil(list), len(list)
	}

	var env struct {
		Data    json.RawMessage `json:"data"`
		Items   []Record        `json:"items"`
		Results []Record        `json:"results"`
		Total   *int            `json:"total"`
		Count   *int            `json:"count"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return []Record{}, 0
	}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &list); err == nil {
			return nonNil(list), total(len(list), env.Total, env.Count)
		}
		var inner struct {
			Items []Record `json:"items"`
			Total *int     `json:"total"`
		}
		if err := json.Unmarshal(env.Data, &inner); err == nil {
			return nonNil(inner.Items), total(len(inner.Items), inner.Total, env.Total)
		}
	}
	switch {
	case env.Items != nil:
		return env.Items, total(len(env.Items), env.Total, env.Count)
	case env.Results != nil:
		return env.Results, total(len(env.Results), env.Total, env.Count)
	}
	return []Record{}, 0
}

// NormalizeRecord accepts a bare object or {data:{...}}.
func NormalizeRecord(raw json.RawMessage) Record {
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil || rec == nil {
		return Record{}
	}
	if data, ok := rec["data"].(map[string]any); ok {
		if _, hasID := rec["id"]; !hasID {
			return Record(data)
		}
	}
	return rec
}

func total(fallback int, candidates ...*int) int {
	for _, c := range candidates {
		if c != nil {
			return *c
		}
	}
	return fallback
}

func nonNil(list []Record) []Record {
	if list == nil {
		return []Record{}
	}
	return list
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
