// Package redis provides a redis pub/sub implementation of the
// broadcast.Broadcaster interface so auth changes propagate across
// processes sharing a session, mirroring the cross-tab storage events a
// browser client gets for free.
package redis

import (
	"context"
	"fmt"
	"sync"

	"github.com/joeshaw/envdecode"
	"github.com/redis/go-redis/v9"

	"github.com/dsm1918/cms-client-go/broadcast"
)

// Config for the redis-backed Broadcaster. Defaults can be loaded via
// envdecode.
type Config struct {
	// RedisAddr like "localhost:6379". ENV: REDIS_ADDR
	RedisAddr string `env:"REDIS_ADDR,default=localhost:6379"`
	// Channel name for auth-change signals. ENV: BROADCAST_CHANNEL
	Channel string `env:"BROADCAST_CHANNEL,default=dsm:auth:changed"`

	// Client overrides RedisAddr when set.
	Client *redis.Client
}

// Broadcaster implements broadcast.Broadcaster over a redis pub/sub
// channel.
type Broadcaster struct {
	client  *redis.Client
	ownsCli bool
	channel string

	mu     sync.Mutex
	subs   map[*subscription]struct{}
	pubsub *redis.PubSub
	closed bool
}

type subscription struct {
	b  *Broadcaster
	ch chan struct{}

	once sync.Once
}

// New creates a redis-backed broadcaster and verifies connectivity.
func New(cfg Config) (*Broadcaster, error) {
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
	channel := cfg.Channel
	if channel == "" {
		channel = "dsm:auth:changed"
	}

	b := &Broadcaster{
		client:  cl,
		ownsCli: owns,
		channel: channel,
		subs:    make(map[*subscription]struct{}),
	}

	ps := cl.Subscribe(context.Background(), channel)
	if _, err := ps.Receive(context.Background()); err != nil {
		ps.Close()
		if owns {
			cl.Close()
		}
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}
	b.pubsub = ps
	go b.run(ps)

	return b, nil
}

// NewFromEnv builds a Broadcaster using envdecode to populate Config.
func NewFromEnv() (*Broadcaster, error) {
	var cfg Config
	// Defaults are provided via struct tags.
	_ = envdecode.Decode(&cfg)
	return New(cfg)
}

// Announce implements broadcast.Broadcaster.Announce. The signal reaches
// subscribers in every process attached to the channel, including this
// one.
func (b *Broadcaster) Announce(ctx context.Context) error {
	if err := b.client.Publish(context.WithoutCancel(ctx), b.channel, "1").Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe implements broadcast.Broadcaster.Subscribe.
func (b *Broadcaster) Subscribe() (broadcast.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscription{
		b:  b,
		ch: make(chan struct{}, 1),
	}
	if b.closed {
		// Through the once so a later Subscription.Close stays safe.
		sub.once.Do(func() { close(sub.ch) })
		return sub, nil
	}
	b.subs[sub] = struct{}{}
	return sub, nil
}

// Close implements broadcast.Broadcaster.Close.
func (b *Broadcaster) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := b.subs
	b.subs = nil
	ps := b.pubsub
	b.mu.Unlock()

	for sub := range subs {
		sub.once.Do(func() { close(sub.ch) })
	}
	if ps != nil {
		_ = ps.Close()
	}
	if b.ownsCli {
		return b.client.Close()
	}
	return nil
}

func (b *Broadcaster) run(ps *redis.PubSub) {
	for range ps.Channel() {
		b.mu.Lock()
		for sub := range b.subs {
			select {
			case sub.ch <- struct{}{}:
			default:
			}
		}
		b.mu.Unlock()
	}
}

// C implements broadcast.Subscription.C.
func (s *subscription) C() <-chan struct{} {
	return s.ch
}

// Close implements broadcast.Subscription.Close.
func (s *subscription) Close() error {
	s.b.mu.Lock()
	if s.b.subs != nil {
		delete(s.b.subs, s)
	}
	s.b.mu.Unlock()

	s.once.Do(func() { close(s.ch) })
	return nil
}

// Compile-time interface checks
var (
	_ broadcast.Broadcaster  = (*Broadcaster)(nil)
	_ broadcast.Subscription = (*subscription)(nil)
)
