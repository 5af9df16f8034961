package docker

import "encoding/json"

const (
	// LabelLocalFolder is set by the devcontainer CLI to the host workspace path.
	LabelLocalFolder = "devcontainer.local_folder"
	// LabelMetadata holds the merged devcontainer configuration as a JSON array.
	LabelMetadata = "devcontainer.metadata"
)

// Metadata is the part of the devcontainer metadata label nook reads.
type Metadata struct {
	RemoteUser            string
	RemoteWorkspaceFolder string
}

// ParseMetadata reads the metadata label. Each entry of the array comes from
// one layer (features, image, devcontainer.json); the first non-empty value
// of each field wins. Malformed labels yield an empty result.
func ParseMetadata(label string) Metadata {
	var entries []struct {
		RemoteUser            string `json:"remoteUser"`
		RemoteWorkspaceFolder string `json:"remoteWorkspaceFolder"`
		WorkspaceFolder       string `json:"workspaceFolder"`
	}
	var m Metadata
	if label == "" || json.Unmarshal([]byte(label), &entries) != nil {
		return m
	}
	for _, e := range entries {
		if m.RemoteUser == "" {
			m.RemoteUser = e.RemoteUser
		}
		if m.RemoteWorkspaceFolder == "" {
			m.RemoteWorkspaceFolder = e.RemoteWorkspaceFolder
		}
		if m.RemoteWorkspaceFolder == "" {
			m.RemoteWorkspaceFolder = e.WorkspaceFolder
		}
	}
	return m
}
