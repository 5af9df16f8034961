package lifecycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/snjax/nook/internal/adapters/fake"
)

func TestIsRealShell(t *testing.T) {
	for _, s := range []string{"/bin/bash", "/usr/bin/zsh", "/usr/bin/fish"} {
		assert.True(t, IsRealShell(s), s)
	}
	for _, s := range []string{"", "/bin/sh", "sh", "/usr/sbin/nologin", "/bin/false"} {
		assert.False(t, IsRealShell(s), s)
	}
}

// shellRuntime answers shell lookups as if login reports loginShell and only
// the given shells are installed.
func shellRuntime(loginShell string, installed ...string) *fake.Runtime {
	rt := fake.NewRuntime()
	have := make(map[string]bool)
	for _, s := range installed {
		have[s] = true
	}
	rt.ExecFn = func(ctx context.Context, id, user string, cmd []string) (string, error) {
		if len(cmd) >= 3 && cmd[0] == "sh" && cmd[1] == "-lc" {
			return "Welcome!\n" + loginShell + "\n", nil
		}
		if len(cmd) == 5 && cmd[0] == "sh" && cmd[1] == "-c" && have[cmd[4]] {
			return "ok\n", nil
		}
		return "", nil
	}
	return rt
}

func TestDetectShellPrefersLoginShell(t *testing.T) {
	rt := shellRuntime("/bin/bash", "/bin/bash", "/usr/bin/zsh")
	assert.Equal(t, "/bin/bash", DetectShell(context.Background(), rt, "c1", "node"))
}

func TestDetectShellFallsBackInOrder(t *testing.T) {
	rt := shellRuntime("/bin/sh", "/bin/bash", "/bin/zsh")
	assert.Equal(t, "/bin/zsh", DetectShell(context.Background(), rt, "c1", "node"))

	rt = shellRuntime("/usr/bin/fish")
	assert.Equal(t, "/bin/sh", DetectShell(context.Background(), rt, "c1", "node"))
}

func TestDetectShellWithoutRuntime(t *testing.T) {
	assert.Equal(t, "/bin/sh", DetectShell(context.Background(), nil, "c1", ""))
}
