// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/ManuGH/camhls/internal/domain/stream/ports"
)

// StatsProbe samples transcoder CPU and RSS through gopsutil.
type StatsProbe struct{}

func (StatsProbe) Sample(ctx context.Context, pid int) (ports.ProcessStats, error) {
	if pid <= 0 {
		return ports.ProcessStats{}, fmt.Errorf("invalid pid %d", pid)
	}
	proc, err := process.NewProcessWithContext(ctx, int32(pid)) // #nosec G115 -- pids fit int32
	if err != nil {
		return ports.ProcessStats{}, err
	}

	var stats ports.ProcessStats
	if cpu, err := proc.CPUPercentWithContext(ctx); err == nil {
		stats.CPUPercent = cpu
	}
	mem, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return stats, err
	}
	stats.RSSBytes = mem.RSS
	return stats, nil
}
