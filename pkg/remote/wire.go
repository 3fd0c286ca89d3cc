package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

func encodeDocument(wire any) (Document, error) {
	raw, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	doc := Document{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return doc, nil
}

func decodeDocument(doc Document, wire any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := json.Unmarshal(raw, wire); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return nil
}

func millisOf(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

// relay decodes every snapshot from a Store watch. Malformed documents are
// skipped and keep, when set, filters the decoded items.
func relay[T any](ctx context.Context, docs <-chan []Document, decode func(Document) (T, error), keep func(T) bool) <-chan []T {
	out := make(chan []T, 1)
	go func() {
		defer close(out)
		for batch := range docs {
			items := make([]T, 0, len(batch))
			for _, d := range batch {
				item, err := decode(d)
				if err != nil {
					sinkLogger().Warn("Skipping malformed remote document", zap.Error(err))
					continue
				}
				if keep == nil || keep(item) {
					items = append(items, item)
				}
			}
			select {
			case out <- items:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// first returns the first snapshot of a watch and ends it.
func first[T any](ctx context.Context, watch func(context.Context) (<-chan []T, error)) ([]T, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	ch, err := watch(ctx)
	if err != nil {
		return nil, err
	}
	select {
	case items, ok := <-ch:
		if !ok {
			return nil, ctx.Err()
		}
		return items, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
