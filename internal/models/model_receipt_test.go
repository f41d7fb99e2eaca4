package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/snapspend/backend/pkg/types"
)

func TestReceipt_Processable(t *testing.T) {
	tests := []struct {
		status types.ProcessingStatus
		want   bool
	}{
		{types.ProcessingStatusPending, true},
		{types.ProcessingStatusProcessing, true},
		{types.ProcessingStatusFailed, true},
		{types.ProcessingStatusCompleted, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			rec := &Receipt{ProcessingStatus: tt.status}
			assert.Equal(t, tt.want, rec.Processable())
		})
	}

	var nilReceipt *Receipt
	assert.False(t, nilReceipt.Processable())
}

func TestReceipt_Extraction(t *testing.T) {
	record := &types.ExtractionRecord{Merchant: "Blue Bottle"}
	rec := &Receipt{
		OcrData: datatypes.NewJSONType(&types.OcrData{
			SchemaVersion: types.OcrSchemaVersion,
			Extraction:    record,
		}),
	}

	got := rec.Extraction()
	require.NotNil(t, got)
	assert.Equal(t, "Blue Bottle", got.Merchant)

	assert.Nil(t, (&Receipt{}).Extraction(), "no stored payload yields nil")

	var nilReceipt *Receipt
	assert.Nil(t, nilReceipt.Extraction())
}
