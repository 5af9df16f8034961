package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/snjax/nook/internal/core/domain"
)

func TestCPUPercent(t *testing.T) {
	tests := []struct {
		name      string
		cur, prev domain.CPUCounters
		want      float64
	}{
		{
			name: "two cpus at half load",
			cur:  domain.CPUCounters{Total: 200, System: 2000, OnlineCPUs: 2},
			prev: domain.CPUCounters{Total: 100, System: 1000},
			want: 20,
		},
		{
			name: "falls back to per-cpu count",
			cur:  domain.CPUCounters{Total: 150, System: 1100, PerCPU: 4},
			prev: domain.CPUCounters{Total: 100, System: 1000},
			want: 200,
		},
		{
			name: "falls back to one cpu",
			cur:  domain.CPUCounters{Total: 150, System: 1100},
			prev: domain.CPUCounters{Total: 100, System: 1000},
			want: 50,
		},
		{
			name: "no system progress",
			cur:  domain.CPUCounters{Total: 150, System: 1000, OnlineCPUs: 2},
			prev: domain.CPUCounters{Total: 100, System: 1000},
			want: 0,
		},
		{
			name: "counter reset",
			cur:  domain.CPUCounters{Total: 50, System: 2000, OnlineCPUs: 2},
			prev: domain.CPUCounters{Total: 100, System: 1000},
			want: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CPUPercent(tt.cur, tt.prev), 0.0001)
		})
	}
}
