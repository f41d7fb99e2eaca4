package receipt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/snapspend/backend/internal/models"
	"github.com/snapspend/backend/pkg/types"
)

func TestClaimGuard(t *testing.T) {
	tests := []struct {
		name           string
		status         types.ProcessingStatus
		allowCompleted bool
		wantErr        error
	}{
		{"pending process", types.ProcessingStatusPending, false, nil},
		{"pending reprocess", types.ProcessingStatusPending, true, nil},
		{"failed process", types.ProcessingStatusFailed, false, nil},
		{"failed reprocess", types.ProcessingStatusFailed, true, nil},
		{"completed process rejected", types.ProcessingStatusCompleted, false, ErrAlreadyCompleted},
		{"completed reprocess allowed", types.ProcessingStatusCompleted, true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &models.Receipt{ProcessingStatus: tt.status}
			err := claimGuard(rec, tt.allowCompleted)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestClaimGuard_DeletedAlwaysRejected(t *testing.T) {
	rec := &models.Receipt{
		ProcessingStatus: types.ProcessingStatusFailed,
		DeletedAt:        gorm.DeletedAt{Time: time.Now(), Valid: true},
	}
	require.ErrorIs(t, claimGuard(rec, false), ErrReceiptDeleted)
	require.ErrorIs(t, claimGuard(rec, true), ErrReceiptDeleted)
}

func TestClaimUpdates_ClearsPriorError(t *testing.T) {
	updates := claimUpdates()
	assert.Equal(t, types.ProcessingStatusProcessing, updates["processing_status"])

	// the column must be written to null, not left untouched
	val, ok := updates["processing_error"]
	require.True(t, ok)
	assert.Nil(t, val)
}

func TestFailureUpdates_StatusAndMessageTogether(t *testing.T) {
	updates := failureUpdates("extraction transport error: rate limited")
	assert.Equal(t, types.ProcessingStatusFailed, updates["processing_status"])
	assert.Equal(t, "extraction transport error: rate limited", updates["processing_error"])
}
