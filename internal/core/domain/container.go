package domain

// Container is a devcontainer found on the runtime (Docker, Podman, etc.)
// that was not necessarily started by this process.
type Container struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	Image                 string `json:"image"`
	State                 string `json:"state"` // running, exited, etc.
	ProjectPath           string `json:"projectPath"`
	RemoteUser            string `json:"remoteUser,omitempty"`
	RemoteWorkspaceFolder string `json:"remoteWorkspaceFolder,omitempty"`
}

// Running reports whether the runtime considers the container live.
func (c Container) Running() bool {
	return c.State == "running"
}

// ContainerInfo is the subset of an inspect result the core reads.
type ContainerInfo struct {
	ID        string
	Name      string
	Image     string
	User      string
	IPAddress string
	Running   bool
}

// ResourceSample is one reading from the runtime's stats stream. The Pre*
// counters are the previous reading as reported by the runtime.
type ResourceSample struct {
	CPU         CPUCounters
	PreCPU      CPUCounters
	MemoryUsed  uint64
	MemoryLimit uint64
}

// CPUCounters are cumulative CPU usage counters in nanoseconds.
type CPUCounters struct {
	Total      uint64
	System     uint64
	OnlineCPUs uint32
	PerCPU     int
}

// LogChunk is a piece of raw container output tagged with its stream.
type LogChunk struct {
	Level LogLevel
	Data  string
}

// ProcessTable is raw process listing output: a header row and data rows.
type ProcessTable struct {
	Titles []string
	Rows   [][]string
}
