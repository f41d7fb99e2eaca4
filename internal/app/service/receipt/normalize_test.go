package receipt

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapspend/backend/pkg/types"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestNormalize_SentinelDefaults(t *testing.T) {
	uploadTime := time.Date(2024, time.May, 3, 12, 0, 0, 0, time.UTC)
	record := &types.ExtractionRecord{Total: dec("12.50")}

	fields, items := Normalize(record, uploadTime, "", "USD")

	assert.Equal(t, types.UnknownMerchant, fields.Merchant)
	assert.Equal(t, types.DefaultCategory, fields.Category)
	assert.Equal(t, "USD", fields.Currency)
	assert.True(t, fields.TransactionDate.Equal(uploadTime), "missing date falls back to upload time")
	assert.True(t, fields.Subtotal.IsZero())
	assert.True(t, fields.Tax.IsZero())
	assert.True(t, fields.ServiceCharge.IsZero())
	assert.True(t, fields.TotalAmount.Equal(decimal.RequireFromString("12.50")))
	assert.Empty(t, items)
}

func TestNormalize_CurrencyPrecedence(t *testing.T) {
	uploadTime := time.Now()
	tests := []struct {
		name      string
		extracted string
		user      string
		def       string
		want      string
	}{
		{"extracted wins", "EUR", "GBP", "USD", "EUR"},
		{"user preference second", "", "GBP", "USD", "GBP"},
		{"system default last", "", "", "USD", "USD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := &types.ExtractionRecord{Currency: tt.extracted}
			fields, _ := Normalize(record, uploadTime, tt.user, tt.def)
			assert.Equal(t, tt.want, fields.Currency)
		})
	}
}

func TestNormalize_Items(t *testing.T) {
	record := &types.ExtractionRecord{
		Merchant: "Corner Deli",
		Total:    dec("17.00"),
		Items: []types.ExtractedItem{
			{Name: "Coffee", Quantity: dec("2"), Price: dec("7.00")},
			{Name: "Bagel", Price: dec("4.00")},
			{Name: "Mystery", Quantity: dec("0"), Price: dec("6.00")},
		},
	}

	_, items := Normalize(record, time.Now(), "", "USD")
	require.Len(t, items, 3)

	// positions preserve document order
	assert.Equal(t, 0, items[0].Position)
	assert.Equal(t, 1, items[1].Position)
	assert.Equal(t, 2, items[2].Position)

	// unit price derived from line total and quantity
	assert.True(t, items[0].UnitPrice.Equal(decimal.RequireFromString("3.50")))
	assert.True(t, items[0].TotalPrice.Equal(decimal.RequireFromString("7.00")))

	// missing quantity defaults to 1
	assert.True(t, items[1].Quantity.Equal(decimal.NewFromInt(1)))
	assert.True(t, items[1].UnitPrice.Equal(decimal.RequireFromString("4.00")))

	// zero quantity degrades the unit price to the line total
	assert.True(t, items[2].UnitPrice.Equal(decimal.RequireFromString("6.00")))
}

func TestNormalize_UnitPriceRounding(t *testing.T) {
	record := &types.ExtractionRecord{
		Items: []types.ExtractedItem{
			{Name: "Split", Quantity: dec("3"), Price: dec("10.00")},
		},
	}

	_, items := Normalize(record, time.Now(), "", "USD")
	require.Len(t, items, 1)
	assert.True(t, items[0].UnitPrice.Equal(decimal.RequireFromString("3.3333")))
}

func TestNormalize_ModifierTypeCoercion(t *testing.T) {
	record := &types.ExtractionRecord{
		Items: []types.ExtractedItem{
			{
				Name:  "Bottle",
				Price: dec("3.00"),
				Modifiers: []types.ItemModifier{
					{Name: "Pfand", Price: decimal.RequireFromString("0.25"), Type: types.ModifierTypeDeposit},
					{Name: "???", Price: decimal.RequireFromString("0.10"), Type: types.ModifierType("glitch")},
				},
			},
		},
	}

	_, items := Normalize(record, time.Now(), "", "USD")
	require.Len(t, items, 1)

	mods := items[0].Modifiers.Data()
	require.Len(t, mods, 2)
	assert.Equal(t, types.ModifierTypeDeposit, mods[0].Type)
	assert.Equal(t, types.ModifierTypeModifier, mods[1].Type, "unknown type tags coerce to modifier")
}

func TestNormalize_ExtractedDateWins(t *testing.T) {
	uploadTime := time.Date(2024, time.May, 3, 12, 0, 0, 0, time.UTC)
	txDate := time.Date(2024, time.April, 28, 0, 0, 0, 0, time.UTC)
	record := &types.ExtractionRecord{Date: types.FlexibleDate{Time: txDate}}

	fields, _ := Normalize(record, uploadTime, "", "USD")
	assert.True(t, fields.TransactionDate.Equal(txDate))
}
