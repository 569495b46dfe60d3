package enums

// SyncIntentType maps to the intent_type column in sync_intents.
type SyncIntentType string

const (
	IntentCartPush  SyncIntentType = "cart_push"
	IntentCartClear SyncIntentType = "cart_clear"
)

var validSyncIntentTypes = []SyncIntentType{
	IntentCartPush,
	IntentCartClear,
}

// IsValid reports whether the value matches the canonical intent_type enum.
func (s SyncIntentType) IsValid() bool {
	for _, candidate := range validSyncIntentTypes {
		if candidate == s {
			return true
		}
	}
	return false
}
