package receipt

import "errors"

var (
	// ErrReceiptNotFound means the referenced receipt does not exist.
	ErrReceiptNotFound = errors.New("receipt not found")
	// ErrReceiptDeleted means the receipt was soft-deleted.
	ErrReceiptDeleted = errors.New("receipt has been deleted")
	// ErrAlreadyCompleted rejects Process on a completed receipt;
	// callers must use Reprocess to re-enter the machine.
	ErrAlreadyCompleted = errors.New("receipt already processed")
	// ErrAlreadyProcessing rejects a claim while another attempt is
	// in flight.
	ErrAlreadyProcessing = errors.New("receipt is being processed")
)
