package events

// CyclePayload summarizes one poll cycle.
type CyclePayload struct {
	Cycle      int64  `json:"cycle"`
	RemoteDir  string `json:"remote_dir"`
	Listed     int    `json:"listed"`
	Filtered   int    `json:"filtered"`
	Accepted   int    `json:"accepted"`
	Dropped    int    `json:"dropped"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// NewCycleCompletedEvent creates a new cycle_completed event.
func NewCycleCompletedEvent(payload CyclePayload) *BaseEvent {
	return NewEvent(EventTypeCycleCompleted, payload)
}

// NewCycleFailedEvent creates a new cycle_failed event.
func NewCycleFailedEvent(payload CyclePayload) *BaseEvent {
	return NewEvent(EventTypeCycleFailed, payload)
}
