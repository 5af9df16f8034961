package domain

type EventType string

const (
	EventStatusChanged EventType = "pod-status-changed"
	EventStatsUpdate   EventType = "pod-stats-update"
	EventLogBatch      EventType = "pod-log-update"
	EventProcessList   EventType = "process-list-update"
	EventPortDetected  EventType = "port-detected"
)

// Event is a notification for external observers. Payload is one of the
// typed payloads below, matching Type.
type Event struct {
	Type    EventType `json:"type"`
	PodID   string    `json:"podId"`
	Payload any       `json:"payload"`
}

type StatusChanged struct {
	Status       PodStatus `json:"status"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
}

type StatsUpdate struct {
	CPUPercent  float64 `json:"cpuPercent"`
	MemoryUsed  uint64  `json:"memoryUsed"`
	MemoryLimit uint64  `json:"memoryLimit"`
	UptimeSecs  uint64  `json:"uptimeSecs"`
}

type LogBatch struct {
	Entries []LogEntry `json:"entries"`
}

type ProcessListUpdate struct {
	Processes []Process `json:"processes"`
}

type PortDetected struct {
	Port DetectedPort `json:"port"`
}
