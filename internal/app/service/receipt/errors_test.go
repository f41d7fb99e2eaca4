package receipt

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReceiptErrors_AreWrapFriendly(t *testing.T) {
	for _, sentinel := range []error{
		ErrReceiptNotFound,
		ErrReceiptDeleted,
		ErrAlreadyCompleted,
		ErrAlreadyProcessing,
	} {
		err := fmt.Errorf("wrapped: %w", sentinel)
		require.True(t, errors.Is(err, sentinel), sentinel.Error())
	}
}
