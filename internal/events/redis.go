package events

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// defaultMaxLen caps the stream length; trimming is approximate.
const defaultMaxLen = 10000

// NewRedisClient creates a Redis client and checks the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return client, nil
}

// RedisPublisher appends events to a Redis stream with XADD.
type RedisPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisPublisher creates a publisher writing to stream.
func NewRedisPublisher(client *redis.Client, stream string) *RedisPublisher {
	return &RedisPublisher{client: client, stream: stream, maxLen: defaultMaxLen}
}

// Publish implements Publisher.
func (p *RedisPublisher) Publish(ctx context.Context, e Event) error {
	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: fields(e),
	}).Err()
	if err != nil {
		return fmt.Errorf("publishing %s to %s: %w", e.Type, p.stream, err)
	}
	return nil
}

// fields flattens an event into stream entry fields. Stream values are
// strings so consumers need no schema to read them.
func fields(e Event) map[string]interface{} {
	return map[string]interface{}{
		"type":           e.Type,
		"application_id": e.ApplicationID,
		"property_id":    strconv.FormatInt(e.PropertyID, 10),
		"from":           e.From,
		"to":             e.To,
		"slot_id":        e.SlotID,
		"actor":          e.Actor,
		"at":             e.At.Format(time.RFC3339),
	}
}

// ParseFields rebuilds an event from stream entry fields.
func ParseFields(values map[string]interface{}) (Event, error) {
	str := func(k string) string {
		s, _ := values[k].(string)
		return s
	}

	e := Event{
		Type:          str("type"),
		ApplicationID: str("application_id"),
		From:          str("from"),
		To:            str("to"),
		SlotID:        str("slot_id"),
		Actor:         str("actor"),
	}
	if s := str("property_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Event{}, fmt.Errorf("parsing property_id %q: %w", s, err)
		}
		e.PropertyID = id
	}
	if s := str("at"); s != "" {
		at, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return Event{}, fmt.Errorf("parsing at %q: %w", s, err)
		}
		e.At = at
	}
	return e, nil
}
