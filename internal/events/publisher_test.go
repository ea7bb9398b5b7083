package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/BradenHooton/sessionauth/internal/config"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPublisher(t *testing.T) (*RedisPublisher, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisPublisher(client, "users", testLogger()), client
}

func TestRedisPublisher_Channel(t *testing.T) {
	p := NewRedisPublisher(nil, "users", testLogger())
	assert.Equal(t, "users:user.created", p.Channel(UserCreated))

	p = NewRedisPublisher(nil, "", testLogger())
	assert.Equal(t, "user.deleted", p.Channel(UserDeleted))
}

func TestRedisPublisher_PublishDeliversJSON(t *testing.T) {
	ctx := context.Background()
	publisher, client := newTestPublisher(t)

	sub := client.Subscribe(ctx, publisher.Channel(UserCreated))
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, publisher.Publish(ctx, UserCreated, UserEvent{ID: 7, TrxID: "USRDEV01012026000000ABCDE"}))

	select {
	case msg := <-sub.Channel():
		var got UserEvent
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, int64(7), got.ID)
		assert.Equal(t, "USRDEV01012026000000ABCDE", got.TrxID)
	case <-time.After(2 * time.Second):
		t.Fatal("event not received")
	}
}

func TestRedisPublisher_PublishWithoutSubscribers(t *testing.T) {
	publisher, _ := newTestPublisher(t)
	assert.NoError(t, publisher.Publish(context.Background(), UserDeleted, UserEvent{ID: 1}))
}

func TestRedisPublisher_PublishAfterClose(t *testing.T) {
	publisher, _ := newTestPublisher(t)
	require.NoError(t, publisher.Close())

	assert.Error(t, publisher.Publish(context.Background(), UserDeleted, UserEvent{ID: 1}))
}

func TestRedisPublisher_UnencodablePayload(t *testing.T) {
	publisher, _ := newTestPublisher(t)
	assert.Error(t, publisher.Publish(context.Background(), UserCreated, make(chan int)))
}

func TestNewPublisher(t *testing.T) {
	ctx := context.Background()

	p, err := NewPublisher(ctx, config.EventsConfig{}, testLogger())
	require.NoError(t, err)
	assert.IsType(t, NopPublisher{}, p)
	assert.NoError(t, p.Publish(ctx, UserCreated, UserEvent{ID: 1}))

	mr := miniredis.RunT(t)
	p, err = NewPublisher(ctx, config.EventsConfig{RedisAddr: mr.Addr(), ChannelPrefix: "users"}, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &RedisPublisher{}, p)
	assert.NoError(t, p.Close())
}
