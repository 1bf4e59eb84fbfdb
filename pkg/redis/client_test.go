package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/supplyledger-backend/pkg/config"
)

func TestSetNXAndCompareAndDelete(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	ok, err := client.SetNX(ctx, "k", "owner-1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first setnx to succeed, got %v %v", ok, err)
	}
	if mock.ttls["k"] != time.Minute {
		t.Fatalf("expected ttl passed through, got %s", mock.ttls["k"])
	}
	if ok, _ := client.SetNX(ctx, "k", "owner-2", time.Minute); ok {
		t.Fatalf("expected second setnx to fail")
	}

	removed, err := client.CompareAndDelete(ctx, "k", "owner-2")
	if err != nil || removed {
		t.Fatalf("expected mismatched owner to keep the key, got %v %v", removed, err)
	}
	if mock.data["k"] != "owner-1" {
		t.Fatalf("key changed by mismatched delete: %q", mock.data["k"])
	}
	removed, err = client.CompareAndDelete(ctx, "k", "owner-1")
	if err != nil || !removed {
		t.Fatalf("expected owner delete to succeed, got %v %v", removed, err)
	}
	if _, ok := mock.data["k"]; ok {
		t.Fatalf("expected key removed")
	}
	if mock.script != compareAndDelete {
		t.Fatalf("expected the compare-and-delete script to be sent")
	}
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatalf("expected ping on empty client to fail")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close on empty client: %v", err)
	}
}

func TestLockKey(t *testing.T) {
	client := &Client{}
	if got := client.LockKey("cron"); got != "sl:lock:cron" {
		t.Fatalf("unexpected lock key %s", got)
	}
	if got := client.LockKey(" "); got != "sl:lock" {
		t.Fatalf("blank parts should be skipped, got %s", got)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatalf("expected error without url or address")
	}
	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6379/2", PoolSize: 7, DialTimeout: time.Second})
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	if opts.DB != 2 || opts.PoolSize != 7 || opts.DialTimeout != time.Second {
		t.Fatalf("unexpected options db=%d pool=%d dial=%s", opts.DB, opts.PoolSize, opts.DialTimeout)
	}
}

type mockCmdable struct {
	data   map[string]string
	ttls   map[string]time.Duration
	script string
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data: make(map[string]string),
		ttls: make(map[string]time.Duration),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

// Eval emulates compareAndDelete, the only script the client sends.
func (m *mockCmdable) Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	m.script = script
	if len(keys) != 1 || len(args) != 1 {
		return redis.NewCmdResult(nil, errors.New("unexpected eval arguments"))
	}
	if held, ok := m.data[keys[0]]; !ok || held != fmt.Sprint(args[0]) {
		return redis.NewCmdResult(int64(0), nil)
	}
	delete(m.data, keys[0])
	return redis.NewCmdResult(int64(1), nil)
}
