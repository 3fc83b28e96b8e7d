package redisstore

import (
	"context"
	"time"

	"github.com/jrsteele09/go-storefront-client/credentials"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var _ credentials.Store = (*RedisStore)(nil)

const opTimeout = 2 * time.Second

// RedisStore keeps the credential in Redis under "<namespace>:<key>". It is
// meant for server-side deployments where several processes share a session.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func New(client *redis.Client, namespace string) *RedisStore {
	if namespace == "" {
		namespace = "storefront"
	}
	return &RedisStore{
		client: client,
		prefix: namespace + ":",
	}
}

// Connect dials addr and verifies the connection with a PING.
func Connect(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func (r *RedisStore) key(k credentials.Key) string {
	return r.prefix + string(k)
}

func (r *RedisStore) Get(key credentials.Key) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	val, err := r.client.Get(ctx, r.key(key)).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		log.Warn().Err(err).Str("key", string(key)).Msg("redis credential read failed")
		return "", false
	}
	return val, true
}

func (r *RedisStore) Set(key credentials.Key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.client.Set(ctx, r.key(key), value, 0).Err()
}

func (r *RedisStore) Remove(key credentials.Key) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		log.Warn().Err(err).Str("key", string(key)).Msg("redis credential delete failed")
	}
}

func (r *RedisStore) ClearAll() {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	keys := make([]string, 0, len(credentials.Keys))
	for _, k := range credentials.Keys {
		keys = append(keys, r.key(k))
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		log.Warn().Err(err).Msg("redis credential clear failed")
	}
}
