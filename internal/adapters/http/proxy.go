package http

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/snjax/nook/internal/core/domain"
	"github.com/snjax/nook/internal/core/registry"
)

const proxyDomain = ".localhost"

// ProxyHandler routes <pod>.localhost requests to the pod's web port.
type ProxyHandler struct {
	reg      *registry.Registry
	bindAddr func() string
}

// NewProxyHandler creates a proxy handler. bindAddr reports the host address
// exposed ports listen on.
func NewProxyHandler(reg *registry.Registry, bindAddr func() string) *ProxyHandler {
	return &ProxyHandler{reg: reg, bindAddr: bindAddr}
}

// findTarget returns the first active http(s) exposure of the running pod
// whose name or alias is label.
func (h *ProxyHandler) findTarget(label string) (domain.ExposedPort, bool) {
	for _, pod := range h.reg.List() {
		if pod.Status != domain.StatusRunning {
			continue
		}
		if !strings.EqualFold(pod.Name, label) && !strings.EqualFold(pod.Alias, label) {
			continue
		}
		for _, ep := range pod.ExposedPorts {
			if ep.Status == domain.PortActive && (ep.Protocol == "http" || ep.Protocol == "https") {
				return ep, true
			}
		}
	}
	return domain.ExposedPort{}, false
}

func (h *ProxyHandler) dialHost() string {
	host := "127.0.0.1"
	if h.bindAddr != nil {
		if ip := net.ParseIP(h.bindAddr()); ip != nil && !ip.IsUnspecified() {
			host = ip.String()
		}
	}
	return host
}

// ProxyRequest intercepts requests to subdomains (e.g., web.localhost)
// and forwards them to the exposed host port of the matching pod.
func (h *ProxyHandler) ProxyRequest(c *fiber.Ctx) error {
	host := strings.ToLower(c.Hostname())
	if i := strings.LastIndexByte(host, ':'); i > 0 && !strings.Contains(host[i:], "]") {
		host = host[:i]
	}
	sub, ok := strings.CutSuffix(host, proxyDomain)
	if !ok || sub == "" {
		return c.Next()
	}
	label := sub[strings.LastIndexByte(sub, '.')+1:]

	ep, found := h.findTarget(label)
	if !found {
		return c.Status(fiber.StatusNotFound).SendString(fmt.Sprintf("Pod '%s' not found or has no web port", label))
	}

	remote := &url.URL{
		Scheme: ep.Protocol,
		Host:   net.JoinHostPort(h.dialHost(), strconv.Itoa(int(ep.HostPort))),
	}
	proxy := httputil.NewSingleHostReverseProxy(remote)
	if remote.Scheme == "https" {
		proxy.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}} //nolint:gosec // dev certificates
	}

	originalDirector := proxy.Director
	proxy.Director = func(req *http.Request) {
		originalDirector(req)
		req.Host = remote.Host
	}
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(fmt.Sprintf("proxy target=%s error=%v", remote.Host, err)))
	}

	return adaptor.HTTPHandler(proxy)(c)
}
