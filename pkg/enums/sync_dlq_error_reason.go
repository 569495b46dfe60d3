package enums

type SyncDLQErrorReason string

const (
	SyncDLQReasonMaxAttempts  SyncDLQErrorReason = "max_attempts"
	SyncDLQReasonNonRetryable SyncDLQErrorReason = "non_retryable"
)

var validSyncDLQErrorReasons = []SyncDLQErrorReason{
	SyncDLQReasonMaxAttempts,
	SyncDLQReasonNonRetryable,
}

func (r SyncDLQErrorReason) IsValid() bool {
	for _, candidate := range validSyncDLQErrorReasons {
		if candidate == r {
			return true
		}
	}
	return false
}
