package types

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OcrSchemaVersion marks the shape of the stored extraction payload so
// later field additions never silently break reads of old rows.
const OcrSchemaVersion = 1

// FlexibleDate unmarshals the handful of date shapes vision models emit.
type FlexibleDate struct {
	time.Time
}

func (fd *FlexibleDate) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), "\"")
	if s == "null" || s == "" {
		fd.Time = time.Time{}
		return nil
	}

	formats := []string{
		"2006-01-02",
		time.RFC3339,
		"2006-01-02T15:04:05",
		"02/01/2006",
		"01/02/2006",
	}
	var err error
	for _, format := range formats {
		fd.Time, err = time.Parse(format, s)
		if err == nil {
			return nil
		}
	}
	// Unparseable dates degrade to zero; the normalizer substitutes
	// the upload time rather than failing the whole extraction.
	fd.Time = time.Time{}
	return nil
}

func (fd FlexibleDate) MarshalJSON() ([]byte, error) {
	if fd.Time.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(fd.Time.Format("2006-01-02"))
}

// ItemModifier is a sub-charge or adjustment attached to one line item
// (bottle deposit, item discount, add-on).
type ItemModifier struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Type  ModifierType    `json:"type"`
}

// ExtractedItem is one line item as returned by the vision model.
// decimal.Decimal accepts both JSON numbers and numeric strings, so
// quantity/price survive model drift between the two encodings.
type ExtractedItem struct {
	Name        string           `json:"name"`
	Quantity    *decimal.Decimal `json:"quantity"`
	Price       *decimal.Decimal `json:"price"`
	Category    string           `json:"category,omitempty"`
	Description string           `json:"description,omitempty"`
	Modifiers   []ItemModifier   `json:"modifiers,omitempty"`
}

// ExtractionRecord is the structured result of one vision-model call.
// Merchant, total, currency, date and category are expected on most
// receipts; the rest is a long tail that is frequently absent.
type ExtractionRecord struct {
	Merchant      string           `json:"merchant"`
	Total         *decimal.Decimal `json:"total"`
	Currency      string           `json:"currency"`
	Date          FlexibleDate     `json:"date"`
	Category      string           `json:"category"`
	Location      string           `json:"location,omitempty"`
	Subtotal      *decimal.Decimal `json:"subtotal,omitempty"`
	Tax           *decimal.Decimal `json:"tax,omitempty"`
	ServiceCharge *decimal.Decimal `json:"service_charge,omitempty"`
	PaymentMethod string           `json:"payment_method,omitempty"`
	ReceiptNumber string           `json:"receipt_number,omitempty"`
	MerchantType  string           `json:"merchant_type,omitempty"`
	Tips          *decimal.Decimal `json:"tips,omitempty"`
	Discount      *decimal.Decimal `json:"discount,omitempty"`
	DeliveryFee   *decimal.Decimal `json:"delivery_fee,omitempty"`
	PackagingFee  *decimal.Decimal `json:"packaging_fee,omitempty"`
	LoyaltyNumber string           `json:"loyalty_number,omitempty"`
	TableNumber   string           `json:"table_number,omitempty"`
	ServerName    string           `json:"server_name,omitempty"`
	OrderNumber   string           `json:"order_number,omitempty"`
	PhoneNumber   string           `json:"phone_number,omitempty"`
	Website       string           `json:"website,omitempty"`
	VatNumber     string           `json:"vat_number,omitempty"`
	TimeOfDay     string           `json:"time_of_day,omitempty"`
	CustomerCount *int             `json:"customer_count,omitempty"`
	SpecialOffers string           `json:"special_offers,omitempty"`
	Items         []ExtractedItem  `json:"items"`
}

// TokenUsage records model token consumption. Informational only.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// OcrData is the persisted extraction payload, versioned per schema.
type OcrData struct {
	SchemaVersion int               `json:"schema_version"`
	Extraction    *ExtractionRecord `json:"extraction"`
}
