package types

type ProcessingStatus string

const (
	ProcessingStatusPending    ProcessingStatus = "pending"
	ProcessingStatusProcessing ProcessingStatus = "processing"
	ProcessingStatusCompleted  ProcessingStatus = "completed"
	ProcessingStatusFailed     ProcessingStatus = "failed"
)

// Terminal reports whether no further automatic transition applies.
// Both terminal states can still be re-entered via an explicit reprocess.
func (s ProcessingStatus) Terminal() bool {
	return s == ProcessingStatusCompleted || s == ProcessingStatusFailed
}

type ModifierType string

const (
	ModifierTypeFee      ModifierType = "fee"
	ModifierTypeDeposit  ModifierType = "deposit"
	ModifierTypeDiscount ModifierType = "discount"
	ModifierTypeAddon    ModifierType = "addon"
	ModifierTypeModifier ModifierType = "modifier"
)

const (
	// UnknownMerchant is stored when extraction yields no merchant name.
	UnknownMerchant = "Unknown Merchant"
	// DefaultCategory is stored when extraction yields no category.
	DefaultCategory = "other"
)
