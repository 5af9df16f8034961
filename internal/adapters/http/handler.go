package http

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/snjax/nook/internal/core/domain"
	"github.com/snjax/nook/internal/core/lifecycle"
	"github.com/snjax/nook/internal/core/portproxy"
)

type PodHandler struct {
	pods  *lifecycle.Controller
	ports *portproxy.Engine
}

func NewPodHandler(pods *lifecycle.Controller, ports *portproxy.Engine) *PodHandler {
	return &PodHandler{pods: pods, ports: ports}
}

// statusFor maps core errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrPodNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyRunning), errors.Is(err, domain.ErrBuildCancelled):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrInvalidPort):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrBuildFailed):
		return fiber.StatusBadGateway
	case errors.Is(err, domain.ErrRuntimeUnavailable), errors.Is(err, domain.ErrBuilderNotFound):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, domain.ErrBuildTimeout):
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

func fail(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
	})
}

func (h *PodHandler) ListPods(c *fiber.Ctx) error {
	return c.JSON(h.pods.ListPods())
}

func (h *PodHandler) GetPod(c *fiber.Ctx) error {
	pod, err := h.pods.GetPod(c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(pod)
}

type AddPodRequest struct {
	Path string `json:"path"`
}

func (h *PodHandler) AddPod(c *fiber.Ctx) error {
	var req AddPodRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Path == "" {
		return badRequest(c, "Project path is required")
	}
	pod, err := h.pods.AddPod(c.UserContext(), req.Path)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(pod)
}

func (h *PodHandler) RemovePod(c *fiber.Ctx) error {
	if err := h.pods.Remove(c.UserContext(), c.Params("id"), c.QueryBool("volumes")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// action runs a lifecycle operation and answers with the pod's resulting state.
func (h *PodHandler) action(c *fiber.Ctx, op func(id string) error) error {
	id := c.Params("id")
	if err := op(id); err != nil {
		return fail(c, err)
	}
	pod, err := h.pods.GetPod(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(pod)
}

func (h *PodHandler) StartPod(c *fiber.Ctx) error {
	return h.action(c, func(id string) error { return h.pods.Start(c.UserContext(), id) })
}

func (h *PodHandler) StopPod(c *fiber.Ctx) error {
	return h.action(c, func(id string) error { return h.pods.Stop(c.UserContext(), id) })
}

func (h *PodHandler) ForceStopPod(c *fiber.Ctx) error {
	return h.action(c, func(id string) error { return h.pods.ForceStop(c.UserContext(), id) })
}

func (h *PodHandler) RestartPod(c *fiber.Ctx) error {
	return h.action(c, func(id string) error { return h.pods.Restart(c.UserContext(), id) })
}

func (h *PodHandler) RebuildPod(c *fiber.Ctx) error {
	return h.action(c, func(id string) error { return h.pods.Rebuild(c.UserContext(), id) })
}

func (h *PodHandler) CancelBuild(c *fiber.Ctx) error {
	return h.action(c, h.pods.CancelBuild)
}

type ExposePortRequest struct {
	ContainerPort uint16 `json:"containerPort"`
	HostPort      uint16 `json:"hostPort"`
}

func (h *PodHandler) ExposePort(c *fiber.Ctx) error {
	var req ExposePortRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.HostPort == 0 {
		req.HostPort = req.ContainerPort
	}
	ep, err := h.ports.Expose(c.UserContext(), c.Params("id"), req.ContainerPort, req.HostPort)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(ep)
}

func portParam(c *fiber.Ctx) (uint16, error) {
	n, err := strconv.ParseUint(c.Params("port"), 10, 16)
	if err != nil || n == 0 {
		return 0, domain.ErrInvalidPort
	}
	return uint16(n), nil
}

func (h *PodHandler) UnexposePort(c *fiber.Ctx) error {
	port, err := portParam(c)
	if err != nil {
		return fail(c, err)
	}
	if err := h.ports.Unexpose(c.Params("id"), port); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *PodHandler) IgnorePort(c *fiber.Ctx) error {
	port, err := portParam(c)
	if err != nil {
		return fail(c, err)
	}
	if err := h.ports.Ignore(c.Params("id"), port); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *PodHandler) GetLogs(c *fiber.Ctx) error {
	logs, err := h.pods.Logs(c.Params("id"), c.QueryInt("tail"), c.Query("filter"))
	if err != nil {
		return fail(c, err)
	}
	if logs == nil {
		logs = []domain.LogEntry{}
	}
	return c.JSON(logs)
}

func (h *PodHandler) ClearLogs(c *fiber.Ctx) error {
	if err := h.pods.ClearLogs(c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *PodHandler) GetPodSettings(c *fiber.Ctx) error {
	cfg, err := h.pods.PodSettings(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(cfg)
}

func (h *PodHandler) SavePodSettings(c *fiber.Ctx) error {
	var cfg domain.PodConfig
	if err := c.BodyParser(&cfg); err != nil {
		return badRequest(c, "Invalid request body")
	}
	pod, err := h.pods.SavePodSettings(c.UserContext(), c.Params("id"), cfg)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(pod)
}

func (h *PodHandler) Dependencies(c *fiber.Ctx) error {
	return c.JSON(h.pods.CheckDependencies(c.UserContext()))
}
