package http

import (
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Pods     *PodHandler
	Settings *SettingsHandler
	Events   *EventsHandler
	Proxy    *ProxyHandler
}

// NewApp builds the fiber application serving the API under /api/v1 and,
// when a proxy handler is given, <pod>.localhost forwarding in front of it.
func NewApp(h Handlers) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "nook",
		DisableStartupMessage: true,
	})

	if h.Proxy != nil {
		app.Use(h.Proxy.ProxyRequest)
	}

	api := app.Group("/api")
	v1 := api.Group("/v1")

	pods := v1.Group("/pods")
	pods.Get("/", h.Pods.ListPods)
	pods.Post("/", h.Pods.AddPod)
	pods.Get("/:id", h.Pods.GetPod)
	pods.Delete("/:id", h.Pods.RemovePod)

	pods.Post("/:id/start", h.Pods.StartPod)
	pods.Post("/:id/stop", h.Pods.StopPod)
	pods.Post("/:id/force-stop", h.Pods.ForceStopPod)
	pods.Post("/:id/restart", h.Pods.RestartPod)
	pods.Post("/:id/rebuild", h.Pods.RebuildPod)
	pods.Post("/:id/cancel-build", h.Pods.CancelBuild)

	pods.Post("/:id/ports", h.Pods.ExposePort)
	pods.Delete("/:id/ports/:port", h.Pods.UnexposePort)
	pods.Post("/:id/ports/:port/ignore", h.Pods.IgnorePort)

	pods.Get("/:id/logs", h.Pods.GetLogs)
	pods.Delete("/:id/logs", h.Pods.ClearLogs)
	pods.Get("/:id/settings", h.Pods.GetPodSettings)
	pods.Put("/:id/settings", h.Pods.SavePodSettings)

	v1.Get("/dependencies", h.Pods.Dependencies)

	if h.Settings != nil {
		v1.Get("/settings", h.Settings.GetSettings)
		v1.Put("/settings", h.Settings.UpdateSettings)
	}
	if h.Events != nil {
		v1.Get("/events", h.Events.Stream)
	}

	return app
}
