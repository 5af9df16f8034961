package detect

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
)

// Listener is a TCP socket in LISTEN state inside a container.
type Listener struct {
	Port    uint16
	Process string
	PID     uint32
}

var (
	ssAddrPort = regexp.MustCompile(`:(\d+)$`)
	ssUsers    = regexp.MustCompile(`users:\(\("([^"]+)",pid=(\d+)`)
)

// ParseSS parses `ss -tlnp` output. Ports are deduplicated; the first line
// naming a port wins.
func ParseSS(out string) []Listener {
	var listeners []Listener
	seen := make(map[uint16]bool)

	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "LISTEN") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		m := ssAddrPort.FindStringSubmatch(fields[3])
		if m == nil {
			continue
		}
		port, err := strconv.ParseUint(m[1], 10, 16)
		if err != nil || port == 0 || seen[uint16(port)] {
			continue
		}
		seen[uint16(port)] = true

		l := Listener{Port: uint16(port)}
		if u := ssUsers.FindStringSubmatch(line); u != nil {
			l.Process = u[1]
			if pid, err := strconv.ParseUint(u[2], 10, 32); err == nil {
				l.PID = uint32(pid)
			}
		}
		listeners = append(listeners, l)
	}
	return listeners
}

const tcpListen = "0A"

// ParseProcNetTCP parses /proc/net/tcp or /proc/net/tcp6 content and returns
// listening ports. Process names are not available from this source.
func ParseProcNetTCP(out string) []Listener {
	var listeners []Listener
	seen := make(map[uint16]bool)

	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 || fields[3] != tcpListen {
			continue
		}
		idx := strings.LastIndexByte(fields[1], ':')
		if idx < 0 {
			continue
		}
		port, err := strconv.ParseUint(fields[1][idx+1:], 16, 16)
		if err != nil || port == 0 || seen[uint16(port)] {
			continue
		}
		seen[uint16(port)] = true
		listeners = append(listeners, Listener{Port: uint16(port)})
	}
	return listeners
}
