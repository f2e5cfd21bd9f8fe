package redis

import (
	"context"
	"testing"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dsm1918/cms-client-go/session"
	"github.com/dsm1918/cms-client-go/session/storetest"
)

func TestRedisStore(t *testing.T) {
	// Skip if redis is not available
	testClient := goredis.NewClient(&goredis.Options{
		Addr: "localhost:6379",
	})
	if err := testClient.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	testClient.Close()

	storetest.RunStoreTests(t, func(t *testing.T) session.Store {
		s, err := New(Config{
			RedisAddr: "localhost:6379",
			// Unique key per test so suites do not observe each other.
			Key: "test:dsm:session:" + uuid.NewString(),
		})
		if err != nil {
			t.Fatalf("New() failed: %v", err)
		}
		return s
	})
}

func TestWatchFailureReportedToEveryCaller(t *testing.T) {
	// Skip if redis is not available
	testClient := goredis.NewClient(&goredis.Options{
		Addr: "localhost:6379",
	})
	if err := testClient.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	testClient.Close()

	s, err := New(Config{
		RedisAddr: "localhost:6379",
		Key:       "test:dsm:session:" + uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer s.Close()

	// Sever the connection so the lazy subscribe inside Watch fails.
	s.client.Close()

	ctx := context.Background()
	if _, err := s.Watch(ctx); err == nil {
		t.Fatal("Watch() succeeded over a closed connection")
	}
	// Later callers must see the same failure, not a channel that never
	// fires.
	if _, err := s.Watch(ctx); err == nil {
		t.Fatal("second Watch() hid the subscribe failure")
	}
}
