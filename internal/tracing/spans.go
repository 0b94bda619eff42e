package tracing

// Span attribute keys for pool tracing.
const (
	// Pool attributes
	AttrRunID       = "pool.run_id"
	AttrWorkerCount = "pool.worker_count"
	AttrTaskCount   = "pool.task_count"

	// Worker attributes
	AttrWorkerName = "worker.name"
	AttrExitReason = "worker.exit_reason"

	// Task attributes
	AttrTaskID = "task.id"

	// Error attributes
	AttrErrorMessage = "error.message"
)

// Span names.
const (
	// SpanPoolRun covers one pool run from spawn to last worker exit.
	SpanPoolRun = "pool.run"
	// SpanTask covers one job execution, from pull to push.
	SpanTask = "pool.task"
)
