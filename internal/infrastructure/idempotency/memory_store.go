package idempotency

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/nfe-api/internal/application/billing"
	"github.com/jhoicas/nfe-api/internal/domain"
)

var _ billing.IdempotencyStore = (*MemoryStore)(nil)

type memoryEntry struct {
	invoiceID string // vacío mientras está reservada
	expiresAt time.Time
}

// MemoryStore implementación en proceso (una sola instancia, tests).
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
	// próxima barrida de vencidas; a lo sumo una por ttl
	nextSweep time.Time
}

// NewMemoryStore crea el store con la vida indicada para cada clave.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), ttl: ttl, now: time.Now}
}

// WithClock reemplaza el reloj; para tests.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) Reserve(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweep(now)
	if e, ok := s.entries[key]; ok && now.Before(e.expiresAt) {
		if e.invoiceID != "" {
			return e.invoiceID, nil
		}
		return "", fmt.Errorf("%w: la emisión con Idempotency-Key %q está en curso", domain.ErrConflict, key)
	}
	s.entries[key] = memoryEntry{expiresAt: now.Add(s.ttl)}
	return "", nil
}

// sweep borra las entradas vencidas. Requiere el lock.
func (s *MemoryStore) sweep(now time.Time) {
	if now.Before(s.nextSweep) {
		return
	}
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
		}
	}
	s.nextSweep = now.Add(s.ttl)
}

func (s *MemoryStore) Complete(_ context.Context, key, invoiceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{invoiceID: invoiceID, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok && e.invoiceID == "" {
		delete(s.entries, key)
	}
	return nil
}
