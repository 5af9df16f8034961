package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"

	"github.com/snjax/nook/internal/core/domain"
	"github.com/snjax/nook/internal/core/ports"
)

var _ ports.WorkspaceInspector = (*Inspector)(nil)

// Inspector reads a project directory: its git branch and devcontainer
// definition.
type Inspector struct{}

func NewInspector() *Inspector { return &Inspector{} }

// Inspect fails only when path is not a readable directory. A missing git
// repository or devcontainer definition leaves the matching fields empty.
func (i *Inspector) Inspect(path string) (domain.Workspace, error) {
	st, err := os.Stat(path)
	if err != nil {
		return domain.Workspace{}, fmt.Errorf("failed to stat workspace: %w", err)
	}
	if !st.IsDir() {
		return domain.Workspace{}, fmt.Errorf("workspace %q is not a directory", path)
	}

	ws := domain.Workspace{
		Path:   path,
		Name:   filepath.Base(path),
		Branch: Branch(path),
	}

	def, found, err := ReadDefinition(path)
	if err != nil {
		return domain.Workspace{}, err
	}
	ws.HasDefinition = found
	ws.RemoteUser = def.RemoteUser
	ws.WorkspaceFolder = def.WorkspaceFolder
	return ws, nil
}

// Branch returns the checked-out branch of the repository containing path,
// a short commit hash for a detached HEAD, or "" outside a repository.
func Branch(path string) string {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}
	head, err := repo.Head()
	if err != nil {
		return ""
	}
	if head.Name().IsBranch() {
		return head.Name().Short()
	}
	return head.Hash().String()[:7]
}
