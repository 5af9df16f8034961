package detect

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifyBanner(t *testing.T) {
	tests := []struct {
		banner string
		want   string
	}{
		{"HTTP/1.1 400 Bad Request\r\n", "http"},
		{"SSH-2.0-OpenSSH_9.6\r\n", "ssh"},
		{"+OK POP3 ready", "pop3"},
		{"220 ProFTPD Server ready", "ftp"},
		{"220 mail.example.com ESMTP", "smtp"},
		{"-ERR unknown command", "redis"},
		{"+PONG", "redis"},
		{"J\x00\x00\x00\n8.0.36 mysql_native_password", "mysql"},
		{"5.5.5-10.11.6-MariaDB", "mysql"},
		{"It looks like you are trying to access MongoDB over HTTP", "mongodb"},
		{"mongod ready", "mongodb"},
	}
	for _, tt := range tests {
		got, ok := IdentifyBanner(tt.banner)
		assert.True(t, ok, tt.banner)
		assert.Equal(t, tt.want, got, tt.banner)
	}

	_, ok := IdentifyBanner("")
	assert.False(t, ok)
	_, ok = IdentifyBanner("\x00\x01garbage")
	assert.False(t, ok)
}

func TestBannerGrab(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = conn.Write([]byte("SSH-2.0-test\r\n"))
	}()

	port := uint16(ln.Addr().(*net.TCPAddr).Port)
	got, ok := BannerGrab(context.Background(), "127.0.0.1", port, time.Second)
	assert.True(t, ok)
	assert.Equal(t, "ssh", got)
}

func TestBannerGrabSilentServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		time.Sleep(300 * time.Millisecond)
		conn.Close()
	}()

	port := uint16(ln.Addr().(*net.TCPAddr).Port)
	_, ok := BannerGrab(context.Background(), "127.0.0.1", port, 100*time.Millisecond)
	assert.False(t, ok)
}
