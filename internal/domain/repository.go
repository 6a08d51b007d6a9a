package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching serialized results
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// ReferenceData is the read-only reference dataset injected into the core.
// Lookups take an already-normalized ingredient key.
type ReferenceData interface {
	// CanonicalKey resolves a raw ingredient name (any alias, any case) to its dataset key.
	CanonicalKey(name string) string
	IUFactor(key string) (float64, bool)
	CeilingMg(key string) (float64, bool)
	DefaultCeilingMg() float64
	Rda(key string) (RdaEntry, bool)
}
