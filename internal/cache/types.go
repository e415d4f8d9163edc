package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/danielpatrickdp/query-coordinator/internal/segment"
)

// ErrMiss is returned by stores that report misses as errors.
var ErrMiss = errors.New("segmentation cache miss")

// DefaultTTL is how long a segmentation stays valid.
const DefaultTTL = 5 * time.Minute

// #region entry

// Entry is one cached segmentation and its plan.
type Entry struct {
	ID         string                `json:"id"`
	QueryHash  string                `json:"query_hash"`
	Query      string                `json:"query"`
	Segments   []segment.Segment     `json:"segments"`
	Plan       segment.ExecutionPlan `json:"plan"`
	CreatedAt  time.Time             `json:"created_at"`
	ExpiresAt  time.Time             `json:"expires_at"`
	UsageCount int                   `json:"usage_count"`
}

// Expired reports whether the entry is past its expiry at now.
func (e Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// #endregion entry

// #region interface

// Cache is the segmentation cache consumed by the engine. Get reports a hit
// only for unexpired entries; errors degrade to a miss.
type Cache interface {
	Get(ctx context.Context, queryHash string) (Entry, bool)
	Put(ctx context.Context, queryHash string, e Entry, ttl time.Duration)
}

// #endregion interface

// Key hashes the lower-cased, trimmed query text.
func Key(query string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(query))))
	return hex.EncodeToString(sum[:])
}
