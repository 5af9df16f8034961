package domain

import "time"

type PodStatus string

const (
	StatusStopped  PodStatus = "stopped"
	StatusStarting PodStatus = "starting"
	StatusRunning  PodStatus = "running"
	StatusStopping PodStatus = "stopping"
	StatusError    PodStatus = "error"
)

// Active reports whether a start is underway or complete.
func (s PodStatus) Active() bool {
	return s == StatusRunning || s == StatusStarting
}

// Pod is a development container managed by nook, keyed by ID.
type Pod struct {
	ID                    string         `json:"id"`
	Name                  string         `json:"name"`
	ProjectPath           string         `json:"projectPath"`
	Image                 string         `json:"image"`
	Status                PodStatus      `json:"status"`
	ContainerID           string         `json:"containerId,omitempty"`
	ContainerName         string         `json:"containerName,omitempty"`
	StartedAt             *time.Time     `json:"startedAt,omitempty"`
	CPUPercent            float64        `json:"cpuPercent"`
	MemoryUsed            uint64         `json:"memoryUsed"`
	MemoryLimit           uint64         `json:"memoryLimit"`
	DefaultShell          string         `json:"defaultShell,omitempty"`
	RemoteUser            string         `json:"remoteUser,omitempty"`
	RemoteWorkspaceFolder string         `json:"remoteWorkspaceFolder,omitempty"`
	Alias                 string         `json:"alias,omitempty"`
	GitBranch             string         `json:"gitBranch,omitempty"`
	ErrorMessage          string         `json:"errorMessage,omitempty"`
	ExposedPorts          []ExposedPort  `json:"exposedPorts"`
	DetectedPorts         []DetectedPort `json:"detectedPorts"`
	Processes             []Process      `json:"processes"`
}

// Clone returns a copy that shares no slices with p.
func (p *Pod) Clone() Pod {
	c := *p
	c.ExposedPorts = append([]ExposedPort(nil), p.ExposedPorts...)
	c.DetectedPorts = append([]DetectedPort(nil), p.DetectedPorts...)
	c.Processes = append([]Process(nil), p.Processes...)
	if p.StartedAt != nil {
		t := *p.StartedAt
		c.StartedAt = &t
	}
	return c
}

// ClearRuntime resets everything that only makes sense while a container runs.
func (p *Pod) ClearRuntime() {
	p.CPUPercent = 0
	p.MemoryUsed = 0
	p.MemoryLimit = 0
	p.StartedAt = nil
	p.ExposedPorts = nil
	p.DetectedPorts = nil
	p.Processes = nil
}

// Uptime is the time since the container started, zero when stopped.
func (p *Pod) Uptime(now time.Time) time.Duration {
	if p.StartedAt == nil {
		return 0
	}
	return now.Sub(*p.StartedAt)
}

// Exposed returns the exposure record for containerPort, if any.
func (p *Pod) Exposed(containerPort uint16) (ExposedPort, bool) {
	for _, ep := range p.ExposedPorts {
		if ep.ContainerPort == containerPort {
			return ep, true
		}
	}
	return ExposedPort{}, false
}

// RemoveExposed drops the exposure record for containerPort and reports
// whether one existed.
func (p *Pod) RemoveExposed(containerPort uint16) bool {
	for i, ep := range p.ExposedPorts {
		if ep.ContainerPort == containerPort {
			p.ExposedPorts = append(p.ExposedPorts[:i], p.ExposedPorts[i+1:]...)
			return true
		}
	}
	return false
}

// Detected returns the detection record for containerPort, if any.
func (p *Pod) Detected(containerPort uint16) (DetectedPort, bool) {
	for _, dp := range p.DetectedPorts {
		if dp.ContainerPort == containerPort {
			return dp, true
		}
	}
	return DetectedPort{}, false
}

// RemoveDetected drops the detection record for containerPort.
func (p *Pod) RemoveDetected(containerPort uint16) bool {
	for i, dp := range p.DetectedPorts {
		if dp.ContainerPort == containerPort {
			p.DetectedPorts = append(p.DetectedPorts[:i], p.DetectedPorts[i+1:]...)
			return true
		}
	}
	return false
}

type PortStatus string

const (
	PortActive       PortStatus = "active"
	PortHostPortBusy PortStatus = "hostPortBusy"
	PortError        PortStatus = "error"
)

// ExposedPort is a container port forwarded to a host port.
type ExposedPort struct {
	ContainerPort uint16     `json:"containerPort"`
	HostPort      uint16     `json:"hostPort"`
	Protocol      string     `json:"protocol,omitempty"`
	Status        PortStatus `json:"status"`
	StatusMessage string     `json:"statusMessage,omitempty"`
	AutoExpose    bool       `json:"autoExpose"`
}

type DetectionMethod string

const (
	DetectedWellKnown   DetectionMethod = "wellKnown"
	DetectedProcessName DetectionMethod = "processName"
	DetectedBannerGrab  DetectionMethod = "bannerGrab"
	DetectedUnknown     DetectionMethod = "unknown"
)

type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceLow  Confidence = "low"
)

// DetectedPort is a listening port observed inside a container but not exposed.
type DetectedPort struct {
	ContainerPort   uint16          `json:"containerPort"`
	Protocol        string          `json:"protocol,omitempty"`
	ProcessName     string          `json:"processName,omitempty"`
	DetectionMethod DetectionMethod `json:"detectionMethod"`
	Confidence      Confidence      `json:"confidence"`
}

// Process is one row of a container's process list.
type Process struct {
	PID         uint32  `json:"pid"`
	Name        string  `json:"name"`
	CPUPercent  float64 `json:"cpuPercent"`
	MemoryBytes uint64  `json:"memoryBytes"`
}

// PodConfig is the persisted per-pod configuration, keyed by pod name.
type PodConfig struct {
	Name             string    `json:"name"`
	ProjectPath      string    `json:"projectPath"`
	Shell            string    `json:"shell,omitempty"`
	Alias            string    `json:"alias,omitempty"`
	TerminalOverride string    `json:"terminalOverride,omitempty"`
	WorkingDir       string    `json:"workingDir,omitempty"`
	RemoteUser       string    `json:"remoteUser,omitempty"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Workspace describes a project directory on the host.
type Workspace struct {
	Path            string `json:"path"`
	Name            string `json:"name"`
	Branch          string `json:"branch,omitempty"`
	RemoteUser      string `json:"remoteUser,omitempty"`
	WorkspaceFolder string `json:"workspaceFolder,omitempty"`
	HasDefinition   bool   `json:"hasDefinition"`
}

// DependencyCheck is the result of probing one external tool.
type DependencyCheck struct {
	Name      string `json:"name"`
	Satisfied bool   `json:"satisfied"`
	Version   string `json:"version,omitempty"`
	Detail    string `json:"detail,omitempty"`
}
