// Package detect guesses which protocol a listening port speaks.
package detect

import (
	"path"
	"strings"

	"github.com/snjax/nook/internal/core/domain"
)

var wellKnownPorts = map[uint16]string{
	80: "http", 8080: "http", 8000: "http", 8888: "http", 3000: "http", 3001: "http",
	4200: "http", 5000: "http", 5173: "http", 5174: "http", 5500: "http", 9000: "http",
	443: "https", 8443: "https",
	5432:  "postgres",
	3306:  "mysql",
	33060: "mysql",
	6379:  "redis",
	27017: "mongodb",
	27018: "mongodb",
	5672:  "amqp",
	15672: "amqp",
	9200:  "elasticsearch",
	9300:  "elasticsearch",
	8500:  "consul",
	8501:  "consul",
	22:    "ssh",
	25:    "smtp",
	465:   "smtp",
	587:   "smtp",
	53:    "dns",
	6443:  "kubernetes",
	2181:  "zookeeper",
	9092:  "kafka",
	11211: "memcached",
	1433:  "mssql",
	1521:  "oracle",
}

var processProtocols = map[string]string{
	"node": "http", "deno": "http", "bun": "http", "python": "http", "python3": "http",
	"ruby": "http", "php": "http", "java": "http", "go": "http", "dotnet": "http",
	"uvicorn": "http", "gunicorn": "http", "flask": "http", "django": "http",
	"next-server": "http", "webpack": "http", "vite": "http", "nginx": "http",
	"apache2": "http", "httpd": "http", "caddy": "http",

	"postgres": "postgres", "pg_isready": "postgres", "postgresql": "postgres",
	"mysqld": "mysql", "mariadbd": "mysql", "mysql": "mysql",
	"redis-server": "redis", "redis-sentinel": "redis",
	"mongod": "mongodb", "mongos": "mongodb",
	"rabbitmq-server": "amqp", "beam.smp": "amqp",
	"elasticsearch": "elasticsearch", "opensearch": "elasticsearch",
	"sshd": "ssh",
}

// ProtocolForPort looks port up in overrides, then in the well-known table.
func ProtocolForPort(port uint16, overrides map[uint16]string) (string, bool) {
	if p, ok := overrides[port]; ok && p != "" {
		return p, true
	}
	p, ok := wellKnownPorts[port]
	return p, ok
}

// ProtocolForProcess matches the last path segment of name, lowercased.
func ProtocolForProcess(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	base := strings.ToLower(path.Base(strings.TrimSpace(name)))
	p, ok := processProtocols[base]
	return p, ok
}

// UnknownProtocol is reported for ports no rule recognises.
const UnknownProtocol = "unknown"

// Resolve classifies a detected port: explicit override or well-known port
// first, then the owning process, then unknown.
func Resolve(port uint16, processName string, overrides map[uint16]string) domain.DetectedPort {
	dp := domain.DetectedPort{
		ContainerPort:   port,
		Protocol:        UnknownProtocol,
		ProcessName:     processName,
		DetectionMethod: domain.DetectedUnknown,
		Confidence:      domain.ConfidenceLow,
	}
	if p, ok := ProtocolForPort(port, overrides); ok {
		dp.Protocol = p
		dp.DetectionMethod = domain.DetectedWellKnown
		dp.Confidence = domain.ConfidenceHigh
		return dp
	}
	if p, ok := ProtocolForProcess(processName); ok {
		dp.Protocol = p
		dp.DetectionMethod = domain.DetectedProcessName
		dp.Confidence = domain.ConfidenceHigh
	}
	return dp
}

type cacheKey struct {
	port    uint16
	process string
}

// Cache memoizes Resolve results by (port, process). It is not safe for
// concurrent use.
type Cache struct {
	overrides map[uint16]string
	entries   map[cacheKey]domain.DetectedPort
}

func NewCache(overrides map[uint16]string) *Cache {
	return &Cache{overrides: overrides, entries: make(map[cacheKey]domain.DetectedPort)}
}

func (c *Cache) Resolve(port uint16, processName string) domain.DetectedPort {
	k := cacheKey{port: port, process: processName}
	if dp, ok := c.entries[k]; ok {
		return dp
	}
	dp := Resolve(port, processName, c.overrides)
	c.entries[k] = dp
	return dp
}
