package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/snapspend/backend/pkg/types"
)

// Receipt stores one uploaded purchase document and its extracted
// financial data. Lifecycle transitions are owned by the receipt
// processing service; rows are soft-deleted, never removed.
type Receipt struct {
	ID          string  `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID      string  `gorm:"column:user_id;type:varchar(64);not null;index:idx_receipt_user_id,priority:1" json:"user_id"`
	HouseholdID *string `gorm:"column:household_id;type:varchar(64);default:null;index" json:"household_id,omitempty"`
	ImageURL    string  `gorm:"column:image_url;type:text;not null" json:"image_url"`

	ProcessingStatus types.ProcessingStatus `gorm:"column:processing_status;type:varchar(32);not null;default:'pending'" json:"processing_status"`
	// ProcessingError is non-null iff ProcessingStatus is failed.
	ProcessingError *string `gorm:"column:processing_error;type:text;default:null" json:"processing_error,omitempty"`
	// ProcessingTokens records model token usage. Informational only.
	ProcessingTokens datatypes.JSONType[*types.TokenUsage] `gorm:"column:processing_tokens;type:jsonb;default:'null'" json:"processing_tokens"`

	Merchant        string     `gorm:"column:merchant;type:varchar(255);default:null" json:"merchant"`
	Currency        string     `gorm:"column:currency;type:varchar(8);default:null" json:"currency"`
	TransactionDate *time.Time `gorm:"column:transaction_date;default:null" json:"transaction_date"`
	Category        string     `gorm:"column:category;type:varchar(64);default:null" json:"category"`
	PaymentMethod   string     `gorm:"column:payment_method;type:varchar(64);default:null" json:"payment_method"`
	Location        string     `gorm:"column:location;type:varchar(255);default:null" json:"location"`
	ReceiptNumber   string     `gorm:"column:receipt_number;type:varchar(64);default:null" json:"receipt_number"`

	Subtotal      decimal.Decimal `gorm:"column:subtotal;type:numeric(14,2);not null;default:0" json:"subtotal"`
	Tax           decimal.Decimal `gorm:"column:tax;type:numeric(14,2);not null;default:0" json:"tax"`
	ServiceCharge decimal.Decimal `gorm:"column:service_charge;type:numeric(14,2);not null;default:0" json:"service_charge"`
	// TotalAmount defaults to zero rather than null so a completed
	// receipt always carries a total.
	TotalAmount decimal.Decimal `gorm:"column:total_amount;type:numeric(14,2);not null;default:0" json:"total_amount"`

	// OcrData holds the full versioned extraction, auxiliary long-tail
	// fields included.
	OcrData datatypes.JSONType[*types.OcrData] `gorm:"column:ocr_data;type:jsonb;default:'null'" json:"ocr_data"`

	Items []ReceiptItem `gorm:"foreignKey:ReceiptID;references:ID" json:"items,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Receipt) TableName() string {
	return "receipt"
}

// Processable reports whether a fresh process call may claim this
// receipt. Completed receipts require the explicit reprocess entry point.
func (r *Receipt) Processable() bool {
	return r != nil && r.ProcessingStatus != types.ProcessingStatusCompleted
}

// Extraction returns the stored extraction record, if any.
func (r *Receipt) Extraction() *types.ExtractionRecord {
	if r == nil {
		return nil
	}
	ocr := r.OcrData.Data()
	if ocr == nil {
		return nil
	}
	return ocr.Extraction
}
