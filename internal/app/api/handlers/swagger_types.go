package handlers

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/snapspend/backend/internal/app/service/insights"
	"github.com/snapspend/backend/internal/app/service/receipt"
	"github.com/snapspend/backend/pkg/response"
	types "github.com/snapspend/backend/pkg/types"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

// RespScanReceipts wraps ScanReceiptsResponse in the standard envelope.
type RespScanReceipts struct {
	Code    response.APIResponseCode     `json:"code"`
	Message string                       `json:"message"`
	Data    receipt.ScanReceiptsResponse `json:"data"`
}

// RespSpendingSummary wraps the cached spending summary in the standard envelope.
type RespSpendingSummary struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    insights.SpendingSummary `json:"data"`
}

// SwaggerReceipt is a simplified view of models.Receipt for documentation purposes.
type SwaggerReceipt struct {
	ID               string                 `json:"id"`
	UserID           string                 `json:"user_id"`
	HouseholdID      *string                `json:"household_id"`
	ImageURL         string                 `json:"image_url"`
	ProcessingStatus types.ProcessingStatus `json:"processing_status"`
	ProcessingError  *string                `json:"processing_error"`
	Merchant         string                 `json:"merchant"`
	Currency         string                 `json:"currency"`
	TransactionDate  *time.Time             `json:"transaction_date"`
	Category         string                 `json:"category"`
	Subtotal         decimal.Decimal        `json:"subtotal"`
	Tax              decimal.Decimal        `json:"tax"`
	ServiceCharge    decimal.Decimal        `json:"service_charge"`
	TotalAmount      decimal.Decimal        `json:"total_amount"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}
