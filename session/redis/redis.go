// Package redis provides a redis-backed implementation of the
// session.Store interface for deployments where several client processes
// (kiosk terminals, sidecar tooling) must share one login. The token and
// user live in a single hash so the pair is written and cleared atomically,
// and every mutation is published on a pub/sub channel that backs Watch.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/joeshaw/envdecode"
	"github.com/redis/go-redis/v9"

	"github.com/dsm1918/cms-client-go/session"
)

// Config for the redis-backed Store. Defaults can be loaded via envdecode.
type Config struct {
	// RedisAddr like "localhost:6379". ENV: REDIS_ADDR
	RedisAddr string `env:"REDIS_ADDR,default=localhost:6379"`
	// Key under which the session hash is stored. ENV: SESSION_KEY
	Key string `env:"SESSION_KEY,default=dsm:session"`

	// Client overrides RedisAddr when set.
	Client *redis.Client
}

const (
	fieldToken = "token"
	fieldUser  = "user"
)

// Store implements session.Store over a redis hash.
type Store struct {
	client  *redis.Client
	ownsCli bool
	key     string

	mu       sync.Mutex
	watchers map[chan struct{}]struct{}
	pubsub   *redis.PubSub
	started  sync.Once
	watchErr error
	closed   bool
}

// New creates a redis-backed store and verifies connectivity.
func New(cfg Config) (*Store, error) {
	cl := cfg.Client
	owns := false
	if cl == nil {
		addr := cfg.RedisAddr
		if addr == "" {
			addr = "localhost:6379"
		}
		cl = redis.NewClient(&redis.Options{Addr: addr})
		owns = true
	}
	if err := cl.Ping(context.Background()).Err(); err != nil {
		if owns {
			cl.Close()
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	key := cfg.Key
	if key == "" {
		key = "dsm:session"
	}
	return &Store{
		client:   cl,
		ownsCli:  owns,
		key:      key,
		watchers: make(map[chan struct{}]struct{}),
	}, nil
}

// NewFromEnv builds a Store using envdecode to populate Config.
func NewFromEnv() (*Store, error) {
	var cfg Config
	// Defaults are provided via struct tags.
	_ = envdecode.Decode(&cfg)
	return New(cfg)
}

func (s *Store) channel() string { return s.key + ":changed" }

// Load implements session.Store.Load.
func (s *Store) Load(ctx context.Context) (session.Session, error) {
	vals, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return session.Session{}, fmt.Errorf("redis: load session: %w", err)
	}
	tok := vals[fieldToken]
	raw := vals[fieldUser]
	if tok == "" || raw == "" {
		return session.Session{}, nil
	}
	var user session.UserProfile
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		// Treat an undecodable profile as logged out rather than failing
		// every read; the next Save rewrites the hash whole.
		return session.Session{}, nil
	}
	return session.Session{Token: tok, User: &user}, nil
}

// Save implements session.Store.Save. Both fields go through one HSET so a
// concurrent HGETALL sees either the old pair or the new pair.
func (s *Store) Save(ctx context.Context, sess session.Session) error {
	if err := session.Validate(sess); err != nil {
		return err
	}
	raw, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("redis: encode user: %w", err)
	}
	if err := s.client.HSet(ctx, s.key, fieldToken, sess.Token, fieldUser, raw).Err(); err != nil {
		return fmt.Errorf("redis: save session: %w", err)
	}
	s.publish(ctx)
	return nil
}

// Clear implements session.Store.Clear.
func (s *Store) Clear(ctx context.Context) error {
	n, err := s.client.Del(context.WithoutCancel(ctx), s.key).Result()
	if err != nil {
		return fmt.Errorf("redis: clear session: %w", err)
	}
	if n > 0 {
		s.publish(ctx)
	}
	return nil
}

func (s *Store) publish(ctx context.Context) {
	// Best-effort: watch delivery is advisory, the hash is the source of
	// truth.
	_ = s.client.Publish(context.WithoutCancel(ctx), s.channel(), "1").Err()
}

// Close implements session.Store.Close.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for ch := range s.watchers {
		close(ch)
	}
	s.watchers = nil
	ps := s.pubsub
	s.mu.Unlock()

	if ps != nil {
		_ = ps.Close()
	}
	if s.ownsCli {
		return s.client.Close()
	}
	return nil
}

// Watch implements session.Watcher via redis pub/sub, so mutations made by
// any process sharing the key are observed.
func (s *Store) Watch(ctx context.Context) (<-chan struct{}, error) {
	s.started.Do(func() {
		ps := s.client.Subscribe(context.Background(), s.channel())
		// Force the subscription to be established before we rely on it.
		if _, err := ps.Receive(context.Background()); err != nil {
			ps.Close()
			s.watchErr = err
			return
		}
		s.mu.Lock()
		s.pubsub = ps
		s.mu.Unlock()
		go s.run(ps)
	})
	if s.watchErr != nil {
		return nil, fmt.Errorf("redis: subscribe: %w", s.watchErr)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ch := make(chan struct{})
		close(ch)
		return ch, nil
	}
	ch := make(chan struct{}, 1)
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		if _, ok := s.watchers[ch]; ok {
			delete(s.watchers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}()

	return ch, nil
}

func (s *Store) run(ps *redis.PubSub) {
	for range ps.Channel() {
		s.mu.Lock()
		for ch := range s.watchers {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
		s.mu.Unlock()
	}
}

// Compile-time interface checks
var (
	_ session.Store   = (*Store)(nil)
	_ session.Watcher = (*Store)(nil)
)
