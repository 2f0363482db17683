package constants

// ItemStatus is the lifecycle state of one document inside a batch.
type ItemStatus string

// Stable values (stored as-is in the archive).
const (
	ItemStatusPending ItemStatus = "PENDING" // created, OCR not started
	ItemStatusRunning ItemStatus = "RUNNING" // OCR in flight
	ItemStatusParsed  ItemStatus = "PARSED"  // record assembled
	ItemStatusFailed  ItemStatus = "FAILED"  // recognition failed
	ItemStatusSkipped ItemStatus = "SKIPPED" // batch aborted before this item finished
)

// BatchStatus is the stored outcome of a whole batch.
type BatchStatus string

const (
	BatchStatusCompleted BatchStatus = "COMPLETED"
	BatchStatusFailed    BatchStatus = "FAILED" // aggregator returned an error; its items are never listed
)
