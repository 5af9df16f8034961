package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snjax/nook/internal/core/domain"
)

func TestParseProcessTable(t *testing.T) {
	table := domain.ProcessTable{
		Titles: []string{"USER", "PID", "%CPU", "%MEM", "VSZ", "RSS", "TTY", "STAT", "START", "TIME", "COMMAND"},
		Rows: [][]string{
			{"node", "42", "12.5", "1.0", "900000", "2048", "?", "Sl", "10:00", "0:01", "/usr/bin/node server.js --port 3000"},
			{"root", "oops", "0.0", "0.0", "0", "0", "?", "S", "10:00", "0:00", "broken"},
			{"root", "1", "0.0", "0.0", "4000", "512", "?", "Ss", "10:00", "0:00", "sleep infinity"},
		},
	}

	procs := ParseProcessTable(table)
	require.Len(t, procs, 2)
	assert.Equal(t, domain.Process{PID: 42, Name: "/usr/bin/node", CPUPercent: 12.5, MemoryBytes: 2048 * 1024}, procs[0])
	assert.Equal(t, "sleep", procs[1].Name)
}

func TestParseProcessTableFallbackColumns(t *testing.T) {
	table := domain.ProcessTable{
		Titles: []string{"UID", "PID", "PPID", "C", "STIME", "TTY", "TIME", "CMD"},
		Rows:   [][]string{{"root", "7", "1", "0", "10:00", "?", "00:00:00", "bash -l"}},
	}

	procs := ParseProcessTable(table)
	require.Len(t, procs, 1)
	assert.Equal(t, uint32(7), procs[0].PID)
	assert.Equal(t, "bash", procs[0].Name)
}

func TestParseProcessTableEmpty(t *testing.T) {
	assert.Empty(t, ParseProcessTable(domain.ProcessTable{}))
}
