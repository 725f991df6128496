// Package idempotency guarda las claves Idempotency-Key de la emisión de NF-e.
//
// Cada clave pasa por dos estados: reservada ("pending") mientras la emisión está
// en curso y completada ("done:<invoiceID>") cuando la nota quedó persistida.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/nfe-api/internal/application/billing"
	"github.com/jhoicas/nfe-api/internal/domain"
)

const (
	pendingValue = "pending"
	donePrefix   = "done:"
	keyPrefix    = "nfe:idempotency:"
)

var _ billing.IdempotencyStore = (*RedisStore)(nil)

// releaseScript borra la clave solo si sigue reservada; una clave completada no se libera.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisStore implementación sobre Redis para despliegues con varias instancias.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisConfig conexión a Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient abre el cliente y verifica la conexión.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// NewRedisStore construye el store con un cliente existente. ttl es la vida de
// reservas y claves completadas.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Reserve usa SETNX para que solo un llamado gane la clave.
func (s *RedisStore) Reserve(ctx context.Context, key string) (string, error) {
	k := keyPrefix + key
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := s.client.SetNX(ctx, k, pendingValue, s.ttl).Result()
		if err != nil {
			return "", fmt.Errorf("idempotency: reservar %q: %w", key, err)
		}
		if ok {
			return "", nil
		}
		val, err := s.client.Get(ctx, k).Result()
		if errors.Is(err, redis.Nil) {
			// expiró entre SETNX y GET; se reintenta una vez
			continue
		}
		if err != nil {
			return "", fmt.Errorf("idempotency: leer %q: %w", key, err)
		}
		if id, done := strings.CutPrefix(val, donePrefix); done {
			return id, nil
		}
		return "", fmt.Errorf("%w: la emisión con Idempotency-Key %q está en curso", domain.ErrConflict, key)
	}
	return "", fmt.Errorf("%w: la emisión con Idempotency-Key %q está en curso", domain.ErrConflict, key)
}

// Complete asocia la clave a la nota emitida.
func (s *RedisStore) Complete(ctx context.Context, key, invoiceID string) error {
	if err := s.client.Set(ctx, keyPrefix+key, donePrefix+invoiceID, s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency: completar %q: %w", key, err)
	}
	return nil
}

// Release libera una reserva pendiente.
func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := releaseScript.Run(ctx, s.client, []string{keyPrefix + key}, pendingValue).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("idempotency: liberar %q: %w", key, err)
	}
	return nil
}
