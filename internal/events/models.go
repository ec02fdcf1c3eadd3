package events

// JobEvent announces a sync job lifecycle transition.
type JobEvent struct {
	JobID    string `json:"job_id"`
	JobType  string `json:"job_type"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Errors   int    `json:"errors"`
}

// ResyncEvent announces a mass resync reaching a terminal state.
type ResyncEvent struct {
	JobID          string `json:"job_id"`
	Status         string `json:"status"`
	ProcessedItems int    `json:"processed_items"`
	FailedItems    int    `json:"failed_items"`
}
