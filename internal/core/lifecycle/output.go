package lifecycle

import (
	"encoding/json"
	"strings"
)

// UpResult is what the builder reports about the container it brought up.
type UpResult struct {
	Outcome               string `json:"outcome"`
	ContainerID           string `json:"containerId"`
	RemoteUser            string `json:"remoteUser"`
	RemoteWorkspaceFolder string `json:"remoteWorkspaceFolder"`
}

func (r *UpResult) merge(o UpResult) {
	if r.Outcome == "" {
		r.Outcome = o.Outcome
	}
	if r.ContainerID == "" {
		r.ContainerID = o.ContainerID
	}
	if r.RemoteUser == "" {
		r.RemoteUser = o.RemoteUser
	}
	if r.RemoteWorkspaceFolder == "" {
		r.RemoteWorkspaceFolder = o.RemoteWorkspaceFolder
	}
}

// ParseUpOutput extracts the result object from builder stdout. The whole
// output is tried as JSON first, then each line. Fields from successive
// objects are merged, the first value seen winning, until an object with a
// container id is found.
func ParseUpOutput(out string) UpResult {
	var res UpResult
	try := func(s string) bool {
		var obj UpResult
		if err := json.Unmarshal([]byte(s), &obj); err != nil {
			return false
		}
		res.merge(obj)
		return res.ContainerID != ""
	}

	if trimmed := strings.TrimSpace(out); trimmed != "" && try(trimmed) {
		return res
	}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "{") {
			continue
		}
		if try(line) {
			break
		}
	}
	return res
}
