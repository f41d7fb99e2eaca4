package receipt

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/snapspend/backend/internal/models"
	"github.com/snapspend/backend/pkg/types"
)

// unitPriceScale bounds division precision for derived unit prices.
const unitPriceScale = 4

// NormalizedFields is the canonical receipt-level view of an extraction.
type NormalizedFields struct {
	Merchant        string
	Currency        string
	TransactionDate time.Time
	Category        string
	PaymentMethod   string
	Location        string
	ReceiptNumber   string
	Subtotal        decimal.Decimal
	Tax             decimal.Decimal
	ServiceCharge   decimal.Decimal
	TotalAmount     decimal.Decimal
}

// Normalize converts a validated extraction into stored receipt fields
// and line items. Total over valid records: missing optional fields get
// sentinels, never errors.
//
// Currency precedence: extracted, then the user's display currency,
// then the system default.
func Normalize(record *types.ExtractionRecord, uploadTime time.Time, userCurrency, defaultCurrency string) (NormalizedFields, []models.ReceiptItem) {
	fields := NormalizedFields{
		Merchant:      record.Merchant,
		Currency:      record.Currency,
		Category:      record.Category,
		PaymentMethod: record.PaymentMethod,
		Location:      record.Location,
		ReceiptNumber: record.ReceiptNumber,
	}

	if fields.Merchant == "" {
		fields.Merchant = types.UnknownMerchant
	}
	if fields.Category == "" {
		fields.Category = types.DefaultCategory
	}
	if fields.Currency == "" {
		fields.Currency = userCurrency
	}
	if fields.Currency == "" {
		fields.Currency = defaultCurrency
	}

	// Timeline grouping downstream depends on a non-null date.
	fields.TransactionDate = record.Date.Time
	if fields.TransactionDate.IsZero() {
		fields.TransactionDate = uploadTime
	}

	fields.Subtotal = valueOrZero(record.Subtotal)
	fields.Tax = valueOrZero(record.Tax)
	fields.ServiceCharge = valueOrZero(record.ServiceCharge)
	fields.TotalAmount = valueOrZero(record.Total)

	items := make([]models.ReceiptItem, 0, len(record.Items))
	for i, raw := range record.Items {
		items = append(items, normalizeItem(raw, i))
	}
	return fields, items
}

func normalizeItem(raw types.ExtractedItem, position int) models.ReceiptItem {
	quantity := decimal.NewFromInt(1)
	if raw.Quantity != nil {
		quantity = *raw.Quantity
	}
	totalPrice := valueOrZero(raw.Price)

	item := models.ReceiptItem{
		Position:    position,
		Name:        raw.Name,
		Quantity:    quantity,
		TotalPrice:  totalPrice,
		UnitPrice:   deriveUnitPrice(totalPrice, quantity),
		Category:    raw.Category,
		Description: raw.Description,
	}
	item.Modifiers = datatypes.NewJSONType(normalizeModifiers(raw.Modifiers))
	return item
}

// deriveUnitPrice keeps unitPrice * quantity ~= totalPrice; a zero
// quantity degrades to the line total.
func deriveUnitPrice(totalPrice, quantity decimal.Decimal) decimal.Decimal {
	if quantity.IsPositive() {
		return totalPrice.DivRound(quantity, unitPriceScale)
	}
	return totalPrice
}

// normalizeModifiers passes modifiers through, coercing unrecognized
// type tags to the generic modifier type.
func normalizeModifiers(raw []types.ItemModifier) []types.ItemModifier {
	if len(raw) == 0 {
		return []types.ItemModifier{}
	}
	out := make([]types.ItemModifier, 0, len(raw))
	for _, m := range raw {
		switch m.Type {
		case types.ModifierTypeFee, types.ModifierTypeDeposit, types.ModifierTypeDiscount,
			types.ModifierTypeAddon, types.ModifierTypeModifier:
		default:
			m.Type = types.ModifierTypeModifier
		}
		out = append(out, m)
	}
	return out
}

func valueOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
