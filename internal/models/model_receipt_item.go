package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/snapspend/backend/pkg/types"
)

// ReceiptItem is one line item belonging to a receipt. Items are
// immutable once inserted; re-processing replaces the whole set.
type ReceiptItem struct {
	ID        string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	ReceiptID string `gorm:"column:receipt_id;type:uuid;not null;index:idx_receipt_item_receipt_id" json:"receipt_id"`
	// Position preserves the order the items appeared on the receipt.
	Position    int             `gorm:"column:position;not null;default:0" json:"position"`
	Name        string          `gorm:"column:name;type:varchar(255);not null" json:"name"`
	Quantity    decimal.Decimal `gorm:"column:quantity;type:numeric(10,3);not null;default:1" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(14,4);not null;default:0" json:"unit_price"`
	TotalPrice  decimal.Decimal `gorm:"column:total_price;type:numeric(14,2);not null;default:0" json:"total_price"`
	Category    string          `gorm:"column:category;type:varchar(64);default:null" json:"category,omitempty"`
	Description string          `gorm:"column:description;type:text;default:null" json:"description,omitempty"`

	Modifiers datatypes.JSONType[[]types.ItemModifier] `gorm:"column:modifiers;type:jsonb;default:'[]'" json:"modifiers"`

	CreatedAt time.Time `json:"created_at"`
}

func (ReceiptItem) TableName() string {
	return "receipt_item"
}
