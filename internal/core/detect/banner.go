package detect

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"
)

const bannerReadSize = 1024

// IdentifyBanner maps the first bytes a server sends to a protocol name.
func IdentifyBanner(banner string) (string, bool) {
	if banner == "" {
		return "", false
	}
	lower := strings.ToLower(banner)

	switch {
	case strings.HasPrefix(banner, "HTTP/"), strings.Contains(lower, "http/"):
		return "http", true
	case strings.HasPrefix(banner, "SSH-"):
		return "ssh", true
	case strings.HasPrefix(banner, "+OK"):
		return "pop3", true
	case strings.HasPrefix(banner, "220 "):
		if strings.Contains(lower, "ftp") {
			return "ftp", true
		}
		return "smtp", true
	case strings.Contains(lower, "postgres"):
		return "postgres", true
	case strings.HasPrefix(banner, "-ERR"), strings.HasPrefix(banner, "+PONG"), strings.HasPrefix(banner, "$"):
		return "redis", true
	case strings.Contains(lower, "mysql"), strings.Contains(lower, "mariadb"):
		return "mysql", true
	case strings.Contains(lower, "mongodb"), strings.Contains(lower, "mongod"):
		return "mongodb", true
	case strings.Contains(lower, "redis"):
		return "redis", true
	}
	return "", false
}

// BannerGrab connects to host:port, reads whatever the server volunteers
// within timeout and identifies it. Servers that wait for the client to speak
// first are not recognized.
func BannerGrab(ctx context.Context, host string, port uint16, timeout time.Duration) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(int(port))))
	if err != nil {
		return "", false
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	_ = conn.SetReadDeadline(deadline)

	buf := make([]byte, bannerReadSize)
	n, _ := conn.Read(buf)
	if n == 0 {
		return "", false
	}
	return IdentifyBanner(string(buf[:n]))
}
