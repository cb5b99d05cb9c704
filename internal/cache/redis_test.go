package cache

import (
	"testing"

	"github.com/sarvcast-next/internal/config"

	"github.com/redis/go-redis/v9"
)

func TestNewRedisStoreDisabledReturnsNil(t *testing.T) {
	if store := NewRedisStore(&config.RedisConfig{Enabled: false}); store != nil {
		t.Fatalf("disabled redis should yield nil store")
	}
}

func TestNewRedisStoreAppliesDefaultPrefix(t *testing.T) {
	store := NewRedisStore(&config.RedisConfig{Enabled: true})
	if store == nil {
		t.Fatalf("expected store")
	}
	t.Cleanup(func() { _ = store.Close() })
	if got := store.buildKey("timeline:1:gen"); got != "sc:timeline:1:gen" {
		t.Fatalf("unexpected key %s", got)
	}
}

func TestRedisStoreWithClientKeepsClientAndPrefix(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStoreWithClient(client, " sarvcast ")
	if store.Client() != client {
		t.Fatalf("store should reuse the given client")
	}
	if got := store.buildKey(" coupon "); got != "sarvcast:coupon" {
		t.Fatalf("unexpected key %s", got)
	}
	if got := NewRedisStoreWithClient(client, "").buildKey("coupon"); got != "coupon" {
		t.Fatalf("empty prefix should keep raw key, got %s", got)
	}
}
