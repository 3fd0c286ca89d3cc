package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"liyu1981.xyz/sos-safety-service/pkg/common"
)

// RedisStore keeps each document as a JSON string, one id set per
// collection, and announces changes on a per-collection pub/sub channel.
type RedisStore struct {
	client *redis.Client
	prefix string
	clock  common.Clock
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

func NewRedisStore(ctx context.Context, opts RedisOptions, clock common.Clock) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", classifyRedisError(err))
	}
	return NewRedisStoreWithClient(client, opts.Prefix, clock), nil
}

func NewRedisStoreWithClient(client *redis.Client, prefix string, clock common.Clock) *RedisStore {
	if prefix == "" {
		prefix = "sos"
	}
	if clock == nil {
		clock = common.RealClock{}
	}
	return &RedisStore{client: client, prefix: prefix, clock: clock}
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) docKey(collection, id string) string {
	return fmt.Sprintf("%s:%s:doc:%s", r.prefix, collection, id)
}

func (r *RedisStore) idsKey(collection string) string {
	return fmt.Sprintf("%s:%s:ids", r.prefix, collection)
}

func (r *RedisStore) channel(collection string) string {
	return fmt.Sprintf("%s:%s:changes", r.prefix, collection)
}

func classifyRedisError(err error) error {
	if err == nil || errors.Is(err, redis.Nil) {
		return err
	}
	msg := err.Error()
	if strings.Contains(msg, "NOAUTH") || strings.Contains(msg, "WRONGPASS") || strings.Contains(msg, "NOPERM") {
		return fmt.Errorf("%w: %v", ErrAuth, err)
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

func (r *RedisStore) write(ctx context.Context, collection, id string, doc Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.docKey(collection, id), raw, 0)
		pipe.SAdd(ctx, r.idsKey(collection), id)
		pipe.Publish(ctx, r.channel(collection), id)
		return nil
	})
	return classifyRedisError(err)
}

func (r *RedisStore) Add(ctx context.Context, collection string, doc Document) (string, error) {
	normalized, err := Normalize(doc)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	now := float64(r.clock.Now().UnixMilli())
	normalized[FieldID] = id
	normalized[FieldCreatedAt] = now
	normalized[FieldUpdatedAt] = now

	if err := r.write(ctx, collection, id, normalized); err != nil {
		return "", err
	}
	return id, nil
}

func (r *RedisStore) Set(ctx context.Context, collection, id string, doc Document, merge bool) error {
	normalized, err := Normalize(doc)
	if err != nil {
		return err
	}
	key := r.docKey(collection, id)

	// optimistic transaction so concurrent merges do not lose fields
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		existing, err := r.read(ctx, tx, key)
		if err != nil && !errors.Is(err, ErrDocumentNotFound) {
			return err
		}
		now := float64(r.clock.Now().UnixMilli())
		next := normalized
		switch {
		case existing != nil && merge:
			next = mergeDocument(existing, normalized)
		case existing != nil:
			next[FieldCreatedAt] = existing[FieldCreatedAt]
		default:
			next[FieldCreatedAt] = now
		}
		next[FieldID] = id
		next[FieldUpdatedAt] = now

		raw, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, 0)
			pipe.SAdd(ctx, r.idsKey(collection), id)
			pipe.Publish(ctx, r.channel(collection), id)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, ErrInvalidDocument) {
		return err
	}
	return classifyRedisError(err)
}

func (r *RedisStore) read(ctx context.Context, c redis.Cmdable, key string) (Document, error) {
	raw, err := c.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, classifyRedisError(err)
	}
	doc := Document{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return doc, nil
}

func (r *RedisStore) Get(ctx context.Context, collection, id string) (Document, error) {
	doc, err := r.read(ctx, r.client, r.docKey(collection, id))
	if errors.Is(err, ErrDocumentNotFound) {
		return nil, fmt.Errorf("%w: %s/%s", ErrDocumentNotFound, collection, id)
	}
	return doc, err
}

func (r *RedisStore) query(ctx context.Context, q Query) ([]Document, error) {
	ids, err := r.client.SMembers(ctx, r.idsKey(q.Collection)).Result()
	if err != nil {
		return nil, classifyRedisError(err)
	}
	if len(ids) == 0 {
		return []Document{}, nil
	}
	keys := common.Mapper(ids, func(id string) string { return r.docKey(q.Collection, id) })
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, classifyRedisError(err)
	}
	docs := make([]Document, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		doc := Document{}
		if err := json.Unmarshal([]byte(s), &doc); err == nil {
			docs = append(docs, doc)
		}
	}
	return q.Apply(docs), nil
}

func (r *RedisStore) Watch(ctx context.Context, q Query) (<-chan []Document, error) {
	logger := common.GetLoggerWith(common.LoggerNameDocstore, zap.String("collection", q.Collection))

	pubsub := r.client.Subscribe(ctx, r.channel(q.Collection))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, classifyRedisError(err)
	}

	initial, err := r.query(ctx, q)
	if err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	out := make(chan []Document, 1)
	offer(out, initial)

	go func() {
		defer close(out)
		defer pubsub.Close()
		changes := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				docs, err := r.query(ctx, q)
				if err != nil {
					logger.Warn("Failed to refresh watched query", zap.Error(err))
					continue
				}
				offer(out, docs)
			}
		}
	}()
	return out, nil
}
