package receipt

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/snapspend/backend/internal/app/service/extraction"
	"github.com/snapspend/backend/internal/app/service/insights"
	"github.com/snapspend/backend/internal/app/service/payment"
	"github.com/snapspend/backend/internal/models"
	"github.com/snapspend/backend/internal/platform/storage"
	"github.com/snapspend/backend/pkg/config"
	"github.com/snapspend/backend/pkg/logctx"
	"github.com/snapspend/backend/pkg/tool"
	"github.com/snapspend/backend/pkg/types"
)

var processedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "receipt",
	Name:      "processed_total",
	Help:      "Receipt processing attempts partitioned by result.",
}, []string{"result"})

func init() {
	prometheus.MustRegister(processedTotal)
}

// CurrencyResolver reports the user's configured display currency, or
// empty when the user has no preference. User profiles live with the
// auth collaborator, outside this service.
type CurrencyResolver interface {
	DisplayCurrency(ctx context.Context, userID string) string
}

// NoPreferenceResolver is the default resolver: every user falls
// through to the system default currency.
type NoPreferenceResolver struct{}

func (NoPreferenceResolver) DisplayCurrency(context.Context, string) string { return "" }

// Service owns the receipt lifecycle: pending through processing to a
// terminal completed/failed state, with explicit re-entry.
type Service struct {
	cfg        *config.Config
	db         *gorm.DB
	log        *zap.SugaredLogger
	extractor  *extraction.Service
	fetcher    storage.ImageFetcher
	insights   *insights.Service
	payments   *payment.Service
	currencies CurrencyResolver
}

func NewService(cfg *config.Config, db *gorm.DB, log *zap.SugaredLogger, extractor *extraction.Service,
	fetcher storage.ImageFetcher, ins *insights.Service, pay *payment.Service, currencies CurrencyResolver) *Service {
	return &Service{
		cfg:        cfg,
		db:         db,
		log:        log,
		extractor:  extractor,
		fetcher:    fetcher,
		insights:   ins,
		payments:   pay,
		currencies: currencies,
	}
}

type CreateReceiptRequest struct {
	UserID      string  `json:"user_id"`
	HouseholdID *string `json:"household_id,omitempty"`
	ImageURL    string  `json:"image_url"`
}

// ProcessResult summarizes a finished processing run for the caller.
type ProcessResult struct {
	Receipt   *models.Receipt         `json:"receipt"`
	Extracted *types.ExtractionRecord `json:"extracted_data,omitempty"`
}

// CreatePending inserts a new receipt in the pending state. The blob
// upload already happened; only the stable URL is recorded here.
func (s *Service) CreatePending(ctx context.Context, req CreateReceiptRequest) (*models.Receipt, error) {
	if req.UserID == "" || req.ImageURL == "" {
		return nil, fmt.Errorf("user_id and image_url are required")
	}
	rec := &models.Receipt{
		ID:               tool.GenerateUUIDV7(),
		UserID:           req.UserID,
		HouseholdID:      req.HouseholdID,
		ImageURL:         req.ImageURL,
		ProcessingStatus: types.ProcessingStatusPending,
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, fmt.Errorf("failed to create receipt: %w", err)
	}
	return rec, nil
}

// Process runs the state machine once. Completed receipts are rejected;
// callers wanting a re-run use Reprocess.
func (s *Service) Process(ctx context.Context, receiptID string) (*ProcessResult, error) {
	return s.run(ctx, receiptID, false)
}

// Reprocess re-enters a terminal receipt into processing. Retry after
// failure and reanalyze after completion are the same operation.
func (s *Service) Reprocess(ctx context.Context, receiptID string) (*ProcessResult, error) {
	return s.run(ctx, receiptID, true)
}

func (s *Service) run(ctx context.Context, receiptID string, allowCompleted bool) (*ProcessResult, error) {
	log := logctx.FromCtx(ctx, s.log)

	rec, err := s.claim(ctx, receiptID, allowCompleted)
	if err != nil {
		return nil, err
	}

	imageBytes, mimeType, err := s.fetcher.Fetch(ctx, rec.ImageURL)
	if err != nil {
		return nil, s.markFailed(ctx, rec, fmt.Errorf("failed to fetch receipt image: %w", err))
	}

	result, err := s.extractor.Extract(ctx, imageBytes, mimeType)
	if err != nil {
		var schemaErr *extraction.SchemaError
		if errors.As(err, &schemaErr) {
			// Schema failures indicate model drift; keep the raw reply
			// visible for operators.
			log.Errorw("extraction schema validation failed",
				"receipt_id", rec.ID, "issues", schemaErr.Issues, "raw", schemaErr.RawText)
		}
		return nil, s.markFailed(ctx, rec, err)
	}

	userCurrency := s.currencies.DisplayCurrency(ctx, rec.UserID)
	fields, items := Normalize(result.Record, rec.CreatedAt, userCurrency, s.cfg.DefaultCurrency)

	if err := s.persistCompleted(ctx, rec, result, fields, items); err != nil {
		// The receipt stays in processing: safe to retry, never a torn
		// completed state.
		processedTotal.WithLabelValues("persist_error").Inc()
		return nil, fmt.Errorf("failed to persist extraction: %w", err)
	}
	processedTotal.WithLabelValues("completed").Inc()

	// Completed write happens-before invalidation happens-before the
	// response to the caller.
	if err := s.insights.Invalidate(ctx, rec.UserID, rec.HouseholdID); err != nil {
		log.Errorw("cache invalidation failed", "receipt_id", rec.ID, "err", err)
	}

	fresh, err := s.Get(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	return &ProcessResult{Receipt: fresh, Extracted: fresh.Extraction()}, nil
}

// claimGuard decides whether a claim attempt may proceed against the
// receipt's current state.
func claimGuard(rec *models.Receipt, allowCompleted bool) error {
	if rec.DeletedAt.Valid {
		return ErrReceiptDeleted
	}
	if !allowCompleted && !rec.Processable() {
		return ErrAlreadyCompleted
	}
	return nil
}

// claimUpdates is the write that enters processing; the prior error is
// cleared in the same statement so processing_error stays non-null only
// on failed receipts.
func claimUpdates() map[string]interface{} {
	return map[string]interface{}{
		"processing_status": types.ProcessingStatusProcessing,
		"processing_error":  nil,
	}
}

// failureUpdates is the terminal failed write: status and message land
// together, never one without the other.
func failureUpdates(msg string) map[string]interface{} {
	return map[string]interface{}{
		"processing_status": types.ProcessingStatusFailed,
		"processing_error":  msg,
	}
}

// claim moves the receipt into processing with a conditional update so
// two concurrent attempts cannot both pass the pending check.
func (s *Service) claim(ctx context.Context, receiptID string, allowCompleted bool) (*models.Receipt, error) {
	var rec models.Receipt
	err := s.db.WithContext(ctx).Unscoped().First(&rec, "id = ?", receiptID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReceiptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load receipt: %w", err)
	}
	if err := claimGuard(&rec, allowCompleted); err != nil {
		return nil, err
	}

	res := s.db.WithContext(ctx).Model(&models.Receipt{}).
		Where("id = ? AND processing_status <> ?", receiptID, types.ProcessingStatusProcessing).
		Updates(claimUpdates())
	if res.Error != nil {
		return nil, fmt.Errorf("failed to claim receipt: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrAlreadyProcessing
	}

	rec.ProcessingStatus = types.ProcessingStatusProcessing
	rec.ProcessingError = nil
	return &rec, nil
}

// markFailed records the terminal failed state and the error message in
// one write, then returns the original error.
func (s *Service) markFailed(ctx context.Context, rec *models.Receipt, cause error) error {
	err := s.db.WithContext(ctx).Model(&models.Receipt{}).
		Where("id = ?", rec.ID).
		Updates(failureUpdates(cause.Error())).Error
	if err != nil {
		logctx.FromCtx(ctx, s.log).Errorw("failed to record processing failure",
			"receipt_id", rec.ID, "err", err)
	}
	processedTotal.WithLabelValues("failed").Inc()
	return cause
}

// persistCompleted writes normalized fields and replaces the item set in
// a single transaction, transitioning to completed only when everything
// landed.
func (s *Service) persistCompleted(ctx context.Context, rec *models.Receipt, result *extraction.Result,
	fields NormalizedFields, items []models.ReceiptItem) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"processing_status": types.ProcessingStatusCompleted,
			"processing_error":  nil,
			"processing_tokens": datatypes.NewJSONType(result.Usage),
			"merchant":          fields.Merchant,
			"currency":          fields.Currency,
			"transaction_date":  fields.TransactionDate,
			"category":          fields.Category,
			"payment_method":    fields.PaymentMethod,
			"location":          fields.Location,
			"receipt_number":    fields.ReceiptNumber,
			"subtotal":          fields.Subtotal,
			"tax":               fields.Tax,
			"service_charge":    fields.ServiceCharge,
			"total_amount":      fields.TotalAmount,
			"ocr_data": datatypes.NewJSONType(&types.OcrData{
				SchemaVersion: types.OcrSchemaVersion,
				Extraction:    result.Record,
			}),
		}
		if err := tx.Model(&models.Receipt{}).Where("id = ?", rec.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update receipt fields: %w", err)
		}

		// Items are replaced wholesale, never patched.
		if err := tx.Where("receipt_id = ?", rec.ID).Delete(&models.ReceiptItem{}).Error; err != nil {
			return fmt.Errorf("failed to delete stale items: %w", err)
		}
		if len(items) == 0 {
			return nil
		}
		for i := range items {
			items[i].ID = tool.GenerateUUIDV7()
			items[i].ReceiptID = rec.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("failed to insert items: %w", err)
		}
		return nil
	})
}

// Get loads a receipt with its items, ordered as on the document.
func (s *Service) Get(ctx context.Context, receiptID string) (*models.Receipt, error) {
	var rec models.Receipt
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		First(&rec, "id = ?", receiptID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReceiptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load receipt: %w", err)
	}
	return &rec, nil
}

// Delete soft-deletes a receipt, releases any payment link and drops
// cached insights for the scope.
func (s *Service) Delete(ctx context.Context, receiptID string) error {
	rec, err := s.Get(ctx, receiptID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.payments.UnlinkByReceipt(ctx, tx, rec.ID); err != nil {
			return err
		}
		if err := tx.Delete(&models.Receipt{}, "id = ?", rec.ID).Error; err != nil {
			return fmt.Errorf("failed to delete receipt: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.insights.Invalidate(ctx, rec.UserID, rec.HouseholdID); err != nil {
		logctx.FromCtx(ctx, s.log).Errorw("cache invalidation failed", "receipt_id", rec.ID, "err", err)
	}
	return nil
}

// ScanReceipts implements filtered admin/browse listing.
type ScanReceiptsRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ScanReceiptsResponse struct {
	Items []*models.Receipt `json:"items"`
	Total int64             `json:"total"`
}

type filtersAnd struct{ filters []*types.CommonFilter }

func (w filtersAnd) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(w.filters))
	for _, f := range w.filters {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}

func (s *Service) ScanReceipts(ctx context.Context, req *ScanReceiptsRequest) (*ScanReceiptsResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.From < 0 {
		req.From = 0
	}

	tx := s.db.WithContext(ctx).Model(&models.Receipt{})
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: req.Filters}}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count receipts: %w", err)
	}

	q := tx.Limit(req.Size)
	if req.From > 0 {
		q = q.Offset(req.From)
	}
	if req.SortBy != "" {
		q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: req.SortBy}, Desc: req.SortOrder != "asc"}}})
	}

	var rows []*models.Receipt
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	return &ScanReceiptsResponse{Items: rows, Total: total}, nil
}
