package models

import (
	"time"

	"gorm.io/datatypes"
)

// InsightsCache stores precomputed derived-insight payloads keyed by
// (user, scope, cache type, cache key). It is a TTL cache, not a source
// of truth: rows are deleted wholesale whenever a receipt's financial
// data changes within the scope.
type InsightsCache struct {
	ID     string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID string `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex:unique_insights_cache_key,priority:1" json:"user_id"`
	// Scope is the household id, or "user" for personal-only insights.
	Scope     string `gorm:"column:scope;type:varchar(64);not null;uniqueIndex:unique_insights_cache_key,priority:2" json:"scope"`
	CacheType string `gorm:"column:cache_type;type:varchar(64);not null;uniqueIndex:unique_insights_cache_key,priority:3" json:"cache_type"`
	CacheKey  string `gorm:"column:cache_key;type:varchar(128);not null;uniqueIndex:unique_insights_cache_key,priority:4" json:"cache_key"`

	Payload   datatypes.JSON `gorm:"column:payload;type:jsonb;not null;default:'{}'" json:"payload"`
	ExpiresAt time.Time      `gorm:"column:expires_at;not null;index" json:"expires_at"`

	CreatedAt time.Time `json:"created_at"`
}

func (InsightsCache) TableName() string {
	return "insights_cache"
}

// Fresh reports whether the cached payload is still usable.
func (c *InsightsCache) Fresh(now time.Time) bool {
	return c != nil && c.ExpiresAt.After(now)
}
