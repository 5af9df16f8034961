package domain

import "time"

type LogSource string

const (
	LogSourceBuild     LogSource = "build"
	LogSourceContainer LogSource = "container"
)

type LogLevel string

const (
	LogStdout LogLevel = "stdout"
	LogStderr LogLevel = "stderr"
)

// LogEntry is one line of build or container output.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Source    LogSource `json:"source"`
	Level     LogLevel  `json:"level"`
}
