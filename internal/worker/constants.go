package worker

// ============================================================================
// Log Messages - Worker Pool
// ============================================================================

const (
	// LogMsgWorkerJobFailed is logged when a worker fails to process a job
	LogMsgWorkerJobFailed = "Worker job failed"
	// LogMsgWorkerQueueFull is logged when a job is dropped because the queue is full
	LogMsgWorkerQueueFull = "Worker queue full, job dropped"
)
