package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cast"
)

var (
	ErrRemote           = errors.New("remote failure")
	ErrNetwork          = errors.New("network error")
	ErrAuth             = errors.New("authentication error")
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidDocument  = errors.New("invalid document")
)

const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// Document is a schemaless record. Values are JSON compatible; numbers read
// back as float64.
type Document map[string]any

// Query selects documents of one collection whose Field equals Value.
type Query struct {
	Collection string `json:"collection"`
	Field      string `json:"field"`
	Value      any    `json:"value"`
	OrderBy    string `json:"order_by,omitempty"`
	Descending bool   `json:"descending,omitempty"`
}

// Store is the document database boundary. Add, Set and Get address one
// document; Watch streams the full result of a query on every change in
// the collection until ctx is done.
type Store interface {
	Add(ctx context.Context, collection string, doc Document) (string, error)
	Set(ctx context.Context, collection, id string, doc Document, merge bool) error
	Get(ctx context.Context, collection, id string) (Document, error)
	Watch(ctx context.Context, q Query) (<-chan []Document, error)
}

// Normalize round-trips the document through JSON so every backend stores
// the same value types.
func Normalize(doc Document) (Document, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	out := Document{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return out, nil
}

func (d Document) clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Matches reports whether the document belongs to the query result.
func (q Query) Matches(doc Document) bool {
	if q.Field == "" {
		return true
	}
	v, ok := doc[q.Field]
	return ok && cast.ToString(v) == cast.ToString(q.Value)
}

// Apply filters and orders docs in place and returns the result.
func (q Query) Apply(docs []Document) []Document {
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		if q.Matches(d) {
			out = append(out, d)
		}
	}
	orderBy := q.OrderBy
	if orderBy == "" {
		orderBy = FieldCreatedAt
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := cast.ToFloat64(out[i][orderBy]), cast.ToFloat64(out[j][orderBy])
		if a == b {
			return cast.ToString(out[i][FieldID]) < cast.ToString(out[j][FieldID])
		}
		if q.Descending {
			return a > b
		}
		return a < b
	})
	return out
}

// mergeDocument applies patch over base. System fields of base win over
// the patch except updatedAt, which the caller stamps.
func mergeDocument(base, patch Document) Document {
	out := base.clone()
	for k, v := range patch {
		if k == FieldID || k == FieldCreatedAt {
			continue
		}
		out[k] = v
	}
	return out
}

// offer replaces any undelivered snapshot with the newest one.
func offer(ch chan []Document, docs []Document) {
	select {
	case ch <- docs:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- docs:
	default:
	}
}
