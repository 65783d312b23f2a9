package cosmic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"wwfm/internal/services"
)

// Object is a Cosmic object. Metadata is kept raw so each content type can
// decode its own shape.
type Object struct {
	ID          string          `json:"id"`
	Slug        string          `json:"slug"`
	Title       string          `json:"title"`
	Type        string          `json:"type"`
	Status      string          `json:"status,omitempty"`
	Content     string          `json:"content,omitempty"`
	Thumbnail   string          `json:"thumbnail,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	PublishedAt time.Time       `json:"published_at"`
	ModifiedAt  time.Time       `json:"modified_at"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

// DecodeMetadata unmarshals the object's metadata into v. Empty metadata
// leaves v untouched.
func (o Object) DecodeMetadata(v any) error {
	if len(o.Metadata) == 0 || string(o.Metadata) == "null" {
		return nil
	}
	if err := json.Unmarshal(o.Metadata, v); err != nil {
		return fmt.Errorf("decode %s metadata for %q: %w", o.Type, o.Slug, err)
	}
	return nil
}

// ObjectList is one page of query results.
type ObjectList struct {
	Objects []Object `json:"objects"`
	Total   int      `json:"total"`
}

// Query selects objects. Filter keys are merged into the Cosmic query
// document next to the type, e.g. {"slug": "x"} or {"metadata.genres": id}.
type Query struct {
	Type   string
	Filter map[string]any
	Props  []string
	Sort   string
	Limit  int
	Skip   int
	Depth  int
	Status string
}

func (q Query) values(readKey string) (url.Values, error) {
	doc := make(map[string]any, len(q.Filter)+1)
	for key, value := range q.Filter {
		doc[key] = value
	}
	if q.Type != "" {
		doc["type"] = q.Type
	}
	encoded, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	params := url.Values{}
	params.Set("query", string(encoded))
	if readKey != "" {
		params.Set("read_key", readKey)
	}
	if len(q.Props) > 0 {
		params.Set("props", strings.Join(q.Props, ","))
	}
	if q.Sort != "" {
		params.Set("sort", q.Sort)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Skip > 0 {
		params.Set("skip", strconv.Itoa(q.Skip))
	}
	if q.Depth > 0 {
		params.Set("depth", strconv.Itoa(q.Depth))
	}
	if q.Status != "" {
		params.Set("status", q.Status)
	}
	return params, nil
}

// Objects runs a query. A query that matches nothing yields an empty list.
func (c *Client) Objects(ctx context.Context, q Query) (ObjectList, error) {
	params, err := q.values(c.cfg.ReadKey)
	if err != nil {
		return ObjectList{}, services.Wrap(services.ErrValidation, "cosmic", "objects", "", err)
	}
	endpoint := c.bucketURL(c.baseURL, "objects")
	endpoint.RawQuery = params.Encode()

	var list ObjectList
	if err := c.getJSON(ctx, "objects", endpoint, &list); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return ObjectList{}, nil
		}
		return ObjectList{}, err
	}
	if list.Objects == nil {
		list.Objects = []Object{}
	}
	return list, nil
}

// Object returns the object of the given type with the given slug.
func (c *Client) Object(ctx context.Context, objectType, slug string, depth int) (Object, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return Object{}, services.Wrap(services.ErrValidation, "cosmic", "object", "slug required", nil)
	}
	list, err := c.Objects(ctx, Query{
		Type:   objectType,
		Filter: map[string]any{"slug": slug},
		Limit:  1,
		Depth:  depth,
	})
	if err != nil {
		return Object{}, err
	}
	if len(list.Objects) == 0 {
		return Object{}, services.Wrap(services.ErrNotFound, "cosmic", "object", fmt.Sprintf("%s %q", objectType, slug), nil)
	}
	return list.Objects[0], nil
}

// NewObject is the payload for InsertObject.
type NewObject struct {
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Slug      string         `json:"slug,omitempty"`
	Content   string         `json:"content,omitempty"`
	Status    string         `json:"status,omitempty"`
	Thumbnail string         `json:"thumbnail,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Patch is the payload for EditObject. Only metadata keys present in the map
// are changed.
type Patch struct {
	Title     string         `json:"title,omitempty"`
	Slug      string         `json:"slug,omitempty"`
	Content   string         `json:"content,omitempty"`
	Status    string         `json:"status,omitempty"`
	Thumbnail string         `json:"thumbnail,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type objectEnvelope struct {
	Object Object `json:"object"`
}

// InsertObject creates an object and returns it as stored.
func (c *Client) InsertObject(ctx context.Context, obj NewObject) (Object, error) {
	if err := c.requireWrite("insert"); err != nil {
		return Object{}, err
	}
	if strings.TrimSpace(obj.Type) == "" || strings.TrimSpace(obj.Title) == "" {
		return Object{}, services.Wrap(services.ErrValidation, "cosmic", "insert", "type and title required", nil)
	}
	var envelope objectEnvelope
	if err := c.sendJSON(ctx, "insert", http.MethodPost, c.bucketURL(c.baseURL, "objects"), obj, &envelope); err != nil {
		return Object{}, err
	}
	return envelope.Object, nil
}

// EditObject applies patch to the object with the given id.
func (c *Client) EditObject(ctx context.Context, id string, patch Patch) (Object, error) {
	if err := c.requireWrite("edit"); err != nil {
		return Object{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Object{}, services.Wrap(services.ErrValidation, "cosmic", "edit", "object id required", nil)
	}
	var envelope objectEnvelope
	if err := c.sendJSON(ctx, "edit", http.MethodPatch, c.bucketURL(c.baseURL, "objects", id), patch, &envelope); err != nil {
		return Object{}, err
	}
	return envelope.Object, nil
}
