package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	nethttp "net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snjax/nook/internal/adapters/fake"
	"github.com/snjax/nook/internal/config"
	"github.com/snjax/nook/internal/core/domain"
	"github.com/snjax/nook/internal/core/lifecycle"
	"github.com/snjax/nook/internal/core/portproxy"
	"github.com/snjax/nook/internal/core/ports"
	"github.com/snjax/nook/internal/core/registry"
)

const upSuccess = `{"outcome":"success","containerId":"c1","remoteUser":"node","remoteWorkspaceFolder":"/workspaces/web"}`

type testAPI struct {
	app     *fiber.App
	reg     *registry.Registry
	ctrl    *lifecycle.Controller
	runtime *fake.Runtime
	builder *fake.Builder
	applied []config.Settings
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	api := &testAPI{
		reg:     registry.New(0),
		runtime: fake.NewRuntime(),
		builder: &fake.Builder{},
	}
	api.runtime.AddContainer(domain.ContainerInfo{ID: "c1", Name: "/web_devcontainer", Image: "mcr.microsoft.com/devcontainers/base", IPAddress: "127.0.0.1", Running: true})
	api.builder.UpFn = func(ctx context.Context, workspace string, opts ports.UpOptions) (string, error) {
		return upSuccess, nil
	}
	api.ctrl = lifecycle.New(lifecycle.Deps{
		Registry:  api.reg,
		Runtime:   api.runtime,
		Builder:   api.builder,
		Store:     fake.NewStore(),
		Workspace: &fake.Workspace{Branch: "main"},
		Notifier:  &fake.Notifier{},
	}, lifecycle.Options{})
	engine := portproxy.NewEngine(api.reg, api.runtime, "127.0.0.1", nil)

	holder, err := config.NewHolder(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)

	api.app = NewApp(Handlers{
		Pods: NewPodHandler(api.ctrl, engine),
		Settings: NewSettingsHandler(holder, func(s config.Settings) {
			api.applied = append(api.applied, s)
		}),
		Proxy: NewProxyHandler(api.reg, func() string { return "127.0.0.1" }),
	})
	t.Cleanup(func() {
		for _, p := range api.reg.List() {
			_ = api.ctrl.ForceStop(context.Background(), p.ID)
		}
	})
	return api
}

func (a *testAPI) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func (a *testAPI) addPod(t *testing.T) domain.Pod {
	t.Helper()
	status, body := a.do(t, nethttp.MethodPost, "/api/v1/pods", AddPodRequest{Path: "/home/dev/web"})
	require.Equal(t, fiber.StatusCreated, status, string(body))
	var pod domain.Pod
	require.NoError(t, json.Unmarshal(body, &pod))
	return pod
}

func decodePod(t *testing.T, body []byte) domain.Pod {
	t.Helper()
	var pod domain.Pod
	require.NoError(t, json.Unmarshal(body, &pod), string(body))
	return pod
}

func freePort(t *testing.T) uint16 {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return uint16(port)
}

func TestAddAndListPods(t *testing.T) {
	api := newTestAPI(t)
	pod := api.addPod(t)
	assert.Equal(t, "web", pod.Name)
	assert.Equal(t, domain.StatusStopped, pod.Status)
	assert.Equal(t, "main", pod.GitBranch)

	status, body := api.do(t, nethttp.MethodGet, "/api/v1/pods", nil)
	require.Equal(t, fiber.StatusOK, status)
	var pods []domain.Pod
	require.NoError(t, json.Unmarshal(body, &pods))
	require.Len(t, pods, 1)
	assert.Equal(t, pod.ID, pods[0].ID)
}

func TestAddPodRequiresPath(t *testing.T) {
	api := newTestAPI(t)
	status, _ := api.do(t, nethttp.MethodPost, "/api/v1/pods", AddPodRequest{})
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestUnknownPodIs404(t *testing.T) {
	api := newTestAPI(t)
	for _, tc := range []struct{ method, path string }{
		{nethttp.MethodGet, "/api/v1/pods/nope"},
		{nethttp.MethodPost, "/api/v1/pods/nope/start"},
		{nethttp.MethodPost, "/api/v1/pods/nope/cancel-build"},
		{nethttp.MethodGet, "/api/v1/pods/nope/logs"},
		{nethttp.MethodDelete, "/api/v1/pods/nope"},
	} {
		status, body := api.do(t, tc.method, tc.path, nil)
		assert.Equal(t, fiber.StatusNotFound, status, tc.path)
		assert.Contains(t, string(body), "pod not found", tc.path)
	}
}

func TestStartStopLifecycle(t *testing.T) {
	api := newTestAPI(t)
	id := api.addPod(t).ID

	status, body := api.do(t, nethttp.MethodPost, "/api/v1/pods/"+id+"/start", nil)
	require.Equal(t, fiber.StatusOK, status, string(body))
	pod := decodePod(t, body)
	assert.Equal(t, domain.StatusRunning, pod.Status)
	assert.Equal(t, "c1", pod.ContainerID)

	status, _ = api.do(t, nethttp.MethodPost, "/api/v1/pods/"+id+"/start", nil)
	assert.Equal(t, fiber.StatusConflict, status)

	status, body = api.do(t, nethttp.MethodPost, "/api/v1/pods/"+id+"/stop", nil)
	require.Equal(t, fiber.StatusOK, status, string(body))
	assert.Equal(t, domain.StatusStopped, decodePod(t, body).Status)
}

func TestStartBuildFailureIs502(t *testing.T) {
	api := newTestAPI(t)
	id := api.addPod(t).ID
	api.builder.UpFn = func(ctx context.Context, workspace string, opts ports.UpOptions) (string, error) {
		return `{"outcome":"error","message":"no docker"}`, nil
	}

	status, body := api.do(t, nethttp.MethodPost, "/api/v1/pods/"+id+"/start", nil)
	assert.Equal(t, fiber.StatusBadGateway, status, string(body))

	_, body = api.do(t, nethttp.MethodGet, "/api/v1/pods/"+id, nil)
	assert.Equal(t, domain.StatusError, decodePod(t, body).Status)
}

func TestRemovePod(t *testing.T) {
	api := newTestAPI(t)
	id := api.addPod(t).ID

	status, _ := api.do(t, nethttp.MethodDelete, "/api/v1/pods/"+id, nil)
	assert.Equal(t, fiber.StatusNoContent, status)
	status, _ = api.do(t, nethttp.MethodGet, "/api/v1/pods/"+id, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestExposeAndUnexposePort(t *testing.T) {
	api := newTestAPI(t)
	id := api.addPod(t).ID
	status, _ := api.do(t, nethttp.MethodPost, "/api/v1/pods/"+id+"/start", nil)
	require.Equal(t, fiber.StatusOK, status)

	hostPort := freePort(t)
	status, body := api.do(t, nethttp.MethodPost, "/api/v1/pods/"+id+"/ports", ExposePortRequest{ContainerPort: 3000, HostPort: hostPort})
	require.Equal(t, fiber.StatusCreated, status, string(body))
	var ep domain.ExposedPort
	require.NoError(t, json.Unmarshal(body, &ep))
	assert.Equal(t, domain.PortActive, ep.Status)
	assert.Equal(t, hostPort, ep.HostPort)

	_, body = api.do(t, nethttp.MethodGet, "/api/v1/pods/"+id, nil)
	require.Len(t, decodePod(t, body).ExposedPorts, 1)

	status, _ = api.do(t, nethttp.MethodDelete, "/api/v1/pods/"+id+"/ports/3000", nil)
	assert.Equal(t, fiber.StatusNoContent, status)
	_, body = api.do(t, nethttp.MethodGet, "/api/v1/pods/"+id, nil)
	assert.Empty(t, decodePod(t, body).ExposedPorts)
}

func TestInvalidPortIs400(t *testing.T) {
	api := newTestAPI(t)
	id := api.addPod(t).ID

	status, _ := api.do(t, nethttp.MethodDelete, "/api/v1/pods/"+id+"/ports/abc", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	status, _ = api.do(t, nethttp.MethodPost, "/api/v1/pods/"+id+"/ports", ExposePortRequest{})
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestLogsEndpoint(t *testing.T) {
	api := newTestAPI(t)
	id := api.addPod(t).ID
	api.reg.AppendLogs(id, []domain.LogEntry{
		{Source: domain.LogSourceContainer, Level: domain.LogStdout, Message: "listening on 3000"},
		{Source: domain.LogSourceContainer, Level: domain.LogStderr, Message: "warning: slow"},
	})

	status, body := api.do(t, nethttp.MethodGet, "/api/v1/pods/"+id+"/logs?filter=LISTENING", nil)
	require.Equal(t, fiber.StatusOK, status)
	var logs []domain.LogEntry
	require.NoError(t, json.Unmarshal(body, &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, "listening on 3000", logs[0].Message)

	status, _ = api.do(t, nethttp.MethodDelete, "/api/v1/pods/"+id+"/logs", nil)
	assert.Equal(t, fiber.StatusNoContent, status)
	_, body = api.do(t, nethttp.MethodGet, "/api/v1/pods/"+id+"/logs", nil)
	assert.JSONEq(t, `[]`, string(body))
}

func TestPodSettingsEndpoint(t *testing.T) {
	api := newTestAPI(t)
	id := api.addPod(t).ID

	status, body := api.do(t, nethttp.MethodPut, "/api/v1/pods/"+id+"/settings", domain.PodConfig{Alias: "front", Shell: "/bin/fish"})
	require.Equal(t, fiber.StatusOK, status, string(body))
	pod := decodePod(t, body)
	assert.Equal(t, "front", pod.Alias)
	assert.Equal(t, "/bin/fish", pod.DefaultShell)

	_, body = api.do(t, nethttp.MethodGet, "/api/v1/pods/"+id+"/settings", nil)
	var cfg domain.PodConfig
	require.NoError(t, json.Unmarshal(body, &cfg))
	assert.Equal(t, "front", cfg.Alias)
	assert.Equal(t, "web", cfg.Name)
}

func TestSettingsEndpoint(t *testing.T) {
	api := newTestAPI(t)

	status, body := api.do(t, nethttp.MethodGet, "/api/v1/settings", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(body), `"stopGrace":"10s"`)

	status, body = api.do(t, nethttp.MethodPut, "/api/v1/settings", map[string]any{"stopGrace": "2s"})
	require.Equal(t, fiber.StatusOK, status, string(body))
	require.Len(t, api.applied, 1)
	assert.Equal(t, config.Duration(2e9), api.applied[0].StopGrace)

	status, _ = api.do(t, nethttp.MethodPut, "/api/v1/settings", map[string]any{"bindAddress": "everywhere"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Len(t, api.applied, 1)
}

func TestDependenciesEndpoint(t *testing.T) {
	api := newTestAPI(t)
	status, body := api.do(t, nethttp.MethodGet, "/api/v1/dependencies", nil)
	require.Equal(t, fiber.StatusOK, status)
	var deps []domain.DependencyCheck
	require.NoError(t, json.Unmarshal(body, &deps))
	require.Len(t, deps, 2)
	for _, d := range deps {
		assert.True(t, d.Satisfied, d.Name)
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, fiber.StatusGatewayTimeout, statusFor(domain.ErrBuildTimeout))
	assert.Equal(t, fiber.StatusServiceUnavailable, statusFor(domain.ErrBuilderNotFound))
	assert.Equal(t, fiber.StatusConflict, statusFor(domain.ErrBuildCancelled))
	assert.Equal(t, fiber.StatusInternalServerError, statusFor(io.EOF))
}
