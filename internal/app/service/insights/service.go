package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/snapspend/backend/internal/models"
	"github.com/snapspend/backend/pkg/config"
	"github.com/snapspend/backend/pkg/logctx"
	"github.com/snapspend/backend/pkg/tool"
	"github.com/snapspend/backend/pkg/types"
)

const (
	// ScopeUser marks personal-only insights in the cache key.
	ScopeUser = "user"

	CacheTypeSpendingSummary = "spending_summary"
)

// Service computes derived spending insights over completed receipts
// and memoizes them in a TTL cache table. Invalidation is coarse: any
// financial change drops everything for the scope.
type Service struct {
	cfg *config.Config
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(cfg *config.Config, db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, db: db, log: log}
}

// Invalidate deletes every cached row for the user scope, and for the
// household scope when one is given. Correctness over efficiency.
func (s *Service) Invalidate(ctx context.Context, userID string, householdID *string) error {
	scopes := []string{ScopeUser}
	if householdID != nil && *householdID != "" {
		scopes = append(scopes, *householdID)
	}
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND scope IN ?", userID, scopes).
		Delete(&models.InsightsCache{}).Error
	if err != nil {
		return fmt.Errorf("failed to invalidate insights cache: %w", err)
	}
	logctx.FromCtx(ctx, s.log).Debugw("insights cache invalidated", "user_id", userID, "scopes", scopes)
	return nil
}

// CategorySpend is one category slice of a spending summary.
type CategorySpend struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Count    int64           `json:"count"`
}

// SpendingSummary aggregates completed receipts for one period.
type SpendingSummary struct {
	PeriodStart  time.Time       `json:"period_start"`
	PeriodEnd    time.Time       `json:"period_end"`
	TotalSpend   decimal.Decimal `json:"total_spend"`
	ReceiptCount int64           `json:"receipt_count"`
	Categories   []CategorySpend `json:"categories"`
}

// GetSpendingSummary serves the summary from cache when fresh and
// recomputes it otherwise.
func (s *Service) GetSpendingSummary(ctx context.Context, userID string, periodStart, periodEnd time.Time) (*SpendingSummary, error) {
	cacheKey := fmt.Sprintf("%s:%s", periodStart.Format("2006-01-02"), periodEnd.Format("2006-01-02"))

	var cached models.InsightsCache
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND scope = ? AND cache_type = ? AND cache_key = ?",
			userID, ScopeUser, CacheTypeSpendingSummary, cacheKey).
		First(&cached).Error
	if err == nil && cached.Fresh(time.Now()) {
		var summary SpendingSummary
		if jsonErr := json.Unmarshal(cached.Payload, &summary); jsonErr == nil {
			return &summary, nil
		}
		// Unreadable payload: fall through and recompute.
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to read insights cache: %w", err)
	}

	summary, err := s.computeSpendingSummary(ctx, userID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}

	if err := s.store(ctx, userID, ScopeUser, CacheTypeSpendingSummary, cacheKey, summary); err != nil {
		// Cache write failures must not fail the read path.
		logctx.FromCtx(ctx, s.log).Warnw("failed to store insights cache", "user_id", userID, "err", err)
	}
	return summary, nil
}

func (s *Service) computeSpendingSummary(ctx context.Context, userID string, periodStart, periodEnd time.Time) (*SpendingSummary, error) {
	type row struct {
		Category string
		Amount   decimal.Decimal
		Count    int64
	}
	var rows []row
	err := s.db.WithContext(ctx).Model(&models.Receipt{}).
		Select("category, sum(total_amount) as amount, count(*) as count").
		Where("user_id = ? AND processing_status = ? AND transaction_date >= ? AND transaction_date < ?",
			userID, types.ProcessingStatusCompleted, periodStart, periodEnd).
		Group("category").
		Order("amount desc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate receipts: %w", err)
	}

	summary := &SpendingSummary{
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		TotalSpend:  decimal.Zero,
		Categories:  make([]CategorySpend, 0, len(rows)),
	}
	for _, r := range rows {
		summary.TotalSpend = summary.TotalSpend.Add(r.Amount)
		summary.ReceiptCount += r.Count
		summary.Categories = append(summary.Categories, CategorySpend{
			Category: r.Category,
			Amount:   r.Amount,
			Count:    r.Count,
		})
	}
	return summary, nil
}

func (s *Service) store(ctx context.Context, userID, scope, cacheType, cacheKey string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	ttl := s.cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	// Replace-on-write keeps one row per cache key.
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND scope = ? AND cache_type = ? AND cache_key = ?",
			userID, scope, cacheType, cacheKey).
			Delete(&models.InsightsCache{}).Error; err != nil {
			return err
		}
		return tx.Create(&models.InsightsCache{
			ID:        tool.GenerateUUIDV7(),
			UserID:    userID,
			Scope:     scope,
			CacheType: cacheType,
			CacheKey:  cacheKey,
			Payload:   datatypes.JSON(body),
			ExpiresAt: time.Now().Add(ttl),
		}).Error
	})
}
