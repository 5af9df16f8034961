package lifecycle

import (
	"context"
	"path"
	"strings"

	"github.com/snjax/nook/internal/core/ports"
)

const fallbackShell = "/bin/sh"

var preferredShells = []string{"/usr/bin/fish", "/bin/fish", "/usr/bin/zsh", "/bin/zsh", "/bin/bash"}

// IsRealShell reports whether shell is an interactive shell worth
// remembering, as opposed to sh or a login-disabling stub.
func IsRealShell(shell string) bool {
	switch path.Base(strings.TrimSpace(shell)) {
	case "", ".", "/", "sh", "nologin", "false":
		return false
	}
	return true
}

func lastLine(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

func shellExists(ctx context.Context, rt ports.ContainerRuntime, containerID, user, shell string) bool {
	out, err := rt.Exec(ctx, containerID, user, []string{"sh", "-c", `test -x "$1" && echo ok`, "sh", shell})
	return err == nil && lastLine(out) == "ok"
}

// DetectShell picks the interactive shell for user inside the container:
// the user's login $SHELL when it is real and executable, then the first
// installed of fish, zsh and bash, else /bin/sh.
func DetectShell(ctx context.Context, rt ports.ContainerRuntime, containerID, user string) string {
	if rt == nil || containerID == "" {
		return fallbackShell
	}
	out, err := rt.Exec(ctx, containerID, user, []string{"sh", "-lc", "echo $SHELL"})
	if err == nil {
		if s := lastLine(out); IsRealShell(s) && shellExists(ctx, rt, containerID, user, s) {
			return s
		}
	}
	for _, s := range preferredShells {
		if shellExists(ctx, rt, containerID, user, s) {
			return s
		}
	}
	return fallbackShell
}
