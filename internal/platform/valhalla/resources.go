package valhalla

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

// Record is one backend entity as loosely typed JSON.
type Record map[string]any

// ID returns the record identifier rendered as a string.
func (r Record) ID() string {
	for _, key := range []string{"id", "_id", "uuid"} {
		if v, ok := r[key]; ok && v != nil {
			return stringify(v)
		}
	}
	return ""
}

// String returns field as display text.
func (r Record) String(field string) string {
	v, ok := r[field]
	if !ok || v == nil {
		return ""
	}
	return stringify(v)
}

// ListQuery narrows a list call.
type ListQuery struct {
	Page   int
	Limit  int
	Search string
}

func (q ListQuery) values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", itoa(q.Limit))
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		v.Set("search", s)
	}
	return v
}

// List fetches a page of resource records.
func (c *Client) List(ctx context.Context, resource string, q ListQuery) ([]Record, int, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/"+resource, q.values(), nil, &raw, ""); err != nil {
		return nil, 0, err
	}
	records, total := NormalizeList(raw)
	return records, total, nil
}

// Get fetches one record.
func (c *Client) Get(ctx context.Context, resource, id string) (Record, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/"+resource+"/"+url.PathEscape(id), nil, nil, &raw, ""); err != nil {
		return nil, err
	}
	return NormalizeRecord(raw), nil
}

// Create posts a new record and returns what the backend stored.
func (c *Client) Create(ctx context.Context, resource string, fields map[string]any) (Record, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/"+resource, nil, fields, &raw, ""); err != nil {
		return nil, err
	}
	return NormalizeRecord(raw), nil
}

// Update replaces the mutable fields of a record.
func (c *Client) Update(ctx context.Context, resource, id string, fields map[string]any) (Record, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPut, "/"+resource+"/"+url.PathEscape(id), nil, fields, &raw, ""); err != nil {
		return nil, err
	}
	return NormalizeRecord(raw), nil
}

// Delete removes a record.
func (c *Client) Delete(ctx context.Context, resource, id string) error {
	return c.do(ctx, http.MethodDelete, "/"+resource+"/"+url.PathEscape(id), nil, nil, nil, "")
}

// Count returns the total number of records of resource.
func (c *Client) Count(ctx context.Context, resource string) (int, error) {
	_, total, err := c.List(ctx, resource, ListQuery{Page: 1, Limit: 1})
	return total, err
}
