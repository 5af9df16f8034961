package workspace

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const devcontainerJSON = `{
	// Go workspace
	"name": "web",
	"image": "mcr.microsoft.com/devcontainers/go:1", /* pinned */
	"remoteUser": "vscode",
	"workspaceFolder": "/workspaces/web",
	"forwardPorts": [3000, 5432,],
	"postCreateCommand": "echo 'http://x' // not a comment",
}
`

func initRepo(t *testing.T, dir string) *git.Repository {
	t.Helper()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hi\n"), 0o644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("README.md")
	require.NoError(t, err)
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "dev", Email: "dev@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return repo
}

func TestInspect(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "web")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".devcontainer"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".devcontainer", "devcontainer.json"), []byte(devcontainerJSON), 0o644))
	repo := initRepo(t, dir)

	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName("feature/ports"), Create: true}))

	ws, err := NewInspector().Inspect(dir)
	require.NoError(t, err)
	assert.Equal(t, "web", ws.Name)
	assert.Equal(t, "feature/ports", ws.Branch)
	assert.True(t, ws.HasDefinition)
	assert.Equal(t, "vscode", ws.RemoteUser)
	assert.Equal(t, "/workspaces/web", ws.WorkspaceFolder)
}

func TestInspectPlainDirectory(t *testing.T) {
	dir := t.TempDir()
	ws, err := NewInspector().Inspect(dir)
	require.NoError(t, err)
	assert.Empty(t, ws.Branch)
	assert.False(t, ws.HasDefinition)

	_, err = NewInspector().Inspect(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestBranchFromSubdirectory(t *testing.T) {
	dir := t.TempDir()
	initRepo(t, dir)
	sub := filepath.Join(dir, "services", "api")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	assert.Equal(t, "master", Branch(sub))
}

func TestReadDefinitionRootFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".devcontainer.json"), []byte(`{"remoteUser":"node"}`), 0o644))

	def, found, err := ReadDefinition(dir)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "node", def.RemoteUser)
}

func TestReadDefinitionWithComments(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".devcontainer"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".devcontainer", "devcontainer.json"),
		[]byte(`{"name": "a\"//b", /* block */ "remoteUser": "vscode", // user
}`), 0o644))

	def, found, err := ReadDefinition(dir)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `a"//b`, def.Name)
	assert.Equal(t, "vscode", def.RemoteUser)
}

func TestReadDefinitionMalformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".devcontainer.json"), []byte(`{"name": `), 0o644))

	_, found, err := ReadDefinition(dir)
	assert.True(t, found)
	assert.ErrorContains(t, err, "failed to parse .devcontainer.json")
}
