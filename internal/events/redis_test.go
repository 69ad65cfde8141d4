package events

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisPublisherXAdd(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()
	pub := NewRedisPublisher(client, "visit-scheduler:events")

	e := StatusChanged("app-1", 7, "visit_proposed", "visit_scheduled", "slot-1", "tenant-1")
	e.At = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	require.NoError(t, pub.Publish(ctx, e))

	entries, err := client.XRange(ctx, "visit-scheduler:events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	values := entries[0].Values
	assert.Equal(t, TypeStatusChanged, values["type"])
	assert.Equal(t, "app-1", values["application_id"])
	assert.Equal(t, "7", values["property_id"])
	assert.Equal(t, "visit_scheduled", values["to"])
	assert.Equal(t, "2025-01-10T09:00:00Z", values["at"])

	got, err := ParseFields(values)
	require.NoError(t, err)
	assert.Equal(t, e, got)
}

func TestRedisPublisherKeepsOrder(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()
	pub := NewRedisPublisher(client, "events")

	for _, to := range []string{"visit_proposed", "visit_scheduled", "visit_completed"} {
		require.NoError(t, pub.Publish(ctx, StatusChanged("app-1", 1, "", to, "", "owner-1")))
	}

	entries, err := client.XRange(ctx, "events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "visit_completed", entries[2].Values["to"])
}

func TestRedisPublisherServerDown(t *testing.T) {
	mr, client := setupTestRedis(t)
	mr.Close()

	err := NewRedisPublisher(client, "events").Publish(context.Background(), StatusChanged("app-1", 1, "pending", "visit_proposed", "", "owner-1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publishing application.status_changed to events")
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	assert.NoError(t, client.Close())

	mr.Close()
	_, err = NewRedisClient(context.Background(), mr.Addr(), "", 0)
	assert.Error(t, err)
}

func TestParseFieldsRejectsBadValues(t *testing.T) {
	_, err := ParseFields(map[string]interface{}{"property_id": "seven"})
	assert.Error(t, err)
	_, err = ParseFields(map[string]interface{}{"at": "yesterday"})
	assert.Error(t, err)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), Event{}))
}
