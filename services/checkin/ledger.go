package checkin

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Ledger remembers which appointments have already been checked in.
type Ledger interface {
	// Has reports whether id has been recorded.
	Has(ctx context.Context, id string) (bool, error)
	// Record stores id and reports whether this was the first record of it.
	Record(ctx context.Context, id string, at time.Time) (bool, error)
}

// DefaultMemoryTTL is how long a MemoryLedger remembers a check-in.
const DefaultMemoryTTL = 24 * time.Hour

// MemoryLedger is a process-local ledger. Entries expire after ttl and are
// swept on write, so a long-running kiosk server does not grow without bound.
type MemoryLedger struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return NewMemoryLedgerTTL(DefaultMemoryTTL)
}

func NewMemoryLedgerTTL(ttl time.Duration) *MemoryLedger {
	if ttl <= 0 {
		ttl = DefaultMemoryTTL
	}
	return &MemoryLedger{entries: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

func (l *MemoryLedger) liveLocked(id string, now time.Time) bool {
	at, ok := l.entries[id]
	return ok && now.Sub(at) < l.ttl
}

func (l *MemoryLedger) Has(_ context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.liveLocked(id, l.now()), nil
}

func (l *MemoryLedger) Record(_ context.Context, id string, at time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for k, t := range l.entries {
		if now.Sub(t) >= l.ttl {
			delete(l.entries, k)
		}
	}
	if l.liveLocked(id, now) {
		return false, nil
	}
	l.entries[id] = at
	return true, nil
}

// Len reports how many entries are held, expired or not.
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

const ledgerPrefix = "checkin:"

// RedisLedger shares the ledger between server instances.
type RedisLedger struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLedger(client *redis.Client, ttl time.Duration) *RedisLedger {
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &RedisLedger{client: client, ttl: ttl}
}

func (l *RedisLedger) Has(ctx context.Context, id string) (bool, error) {
	n, err := l.client.Exists(ctx, ledgerPrefix+id).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (l *RedisLedger) Record(ctx context.Context, id string, at time.Time) (bool, error) {
	return l.client.SetNX(ctx, ledgerPrefix+id, at.UTC().Format(time.RFC3339), l.ttl).Result()
}
