package redis

import (
	"context"
	"testing"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dsm1918/cms-client-go/broadcast"
	"github.com/dsm1918/cms-client-go/broadcast/broadcasttest"
)

func TestRedisBroadcaster(t *testing.T) {
	// Skip if redis is not available
	testClient := goredis.NewClient(&goredis.Options{
		Addr: "localhost:6379",
	})
	if err := testClient.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	testClient.Close()

	broadcasttest.RunBroadcasterTests(t, func(t *testing.T) broadcast.Broadcaster {
		b, err := New(Config{
			RedisAddr: "localhost:6379",
			Channel:   "test:dsm:auth:changed:" + uuid.NewString(),
		})
		if err != nil {
			t.Fatalf("New() failed: %v", err)
		}
		return b
	})
}
