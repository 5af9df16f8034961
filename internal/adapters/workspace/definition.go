package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"
)

// Definition is the part of devcontainer.json nook reads.
type Definition struct {
	Name            string `json:"name"`
	RemoteUser      string `json:"remoteUser"`
	WorkspaceFolder string `json:"workspaceFolder"`
}

var definitionPaths = []string{
	filepath.Join(".devcontainer", "devcontainer.json"),
	".devcontainer.json",
}

// ReadDefinition loads the workspace's devcontainer.json, trying the
// .devcontainer directory first.
func ReadDefinition(root string) (Definition, bool, error) {
	for _, rel := range definitionPaths {
		data, err := os.ReadFile(filepath.Join(root, rel))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Definition{}, false, fmt.Errorf("failed to read %s: %w", rel, err)
		}
		std, err := hujson.Standardize(data)
		if err != nil {
			return Definition{}, true, fmt.Errorf("failed to parse %s: %w", rel, err)
		}
		var def Definition
		if err := json.Unmarshal(std, &def); err != nil {
			return Definition{}, true, fmt.Errorf("failed to parse %s: %w", rel, err)
		}
		return def, true, nil
	}
	return Definition{}, false, nil
}
