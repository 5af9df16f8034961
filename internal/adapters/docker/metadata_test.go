package docker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMetadata(t *testing.T) {
	label := `[{"id":"ghcr.io/devcontainers/features/go:1"},{"remoteUser":"vscode"},{"remoteUser":"node","workspaceFolder":"/workspaces/web"}]`
	assert.Equal(t, Metadata{RemoteUser: "vscode", RemoteWorkspaceFolder: "/workspaces/web"}, ParseMetadata(label))
}

func TestParseMetadataMalformed(t *testing.T) {
	assert.Equal(t, Metadata{}, ParseMetadata(""))
	assert.Equal(t, Metadata{}, ParseMetadata("{not json"))
	assert.Equal(t, Metadata{}, ParseMetadata(`{"remoteUser":"x"}`))
}
