package ws

import (
	"context"
	"fmt"
	"runtime"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
)

// HostInfo describes the machine running the coordinator.
type HostInfo struct {
	Hostname        string  `json:"hostname"`
	OS              string  `json:"os"`
	Platform        string  `json:"platform"`
	PlatformVersion string  `json:"platformVersion"`
	KernelVersion   string  `json:"kernelVersion"`
	Uptime          uint64  `json:"uptime"`
	Procs           uint64  `json:"procs"`
	Goroutines      int     `json:"goroutines"`
	Load1           float64 `json:"load1"`
	Load5           float64 `json:"load5"`
	Load15          float64 `json:"load15"`
}

// ReadHostInfo queries the OS. Load averages are left zero where the
// platform does not report them.
func ReadHostInfo(ctx context.Context) (HostInfo, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return HostInfo{}, fmt.Errorf("host info: %w", err)
	}
	hi := HostInfo{
		Hostname:        info.Hostname,
		OS:              info.OS,
		Platform:        info.Platform,
		PlatformVersion: info.PlatformVersion,
		KernelVersion:   info.KernelVersion,
		Uptime:          info.Uptime,
		Procs:           info.Procs,
		Goroutines:      runtime.NumGoroutine(),
	}

	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("load average unavailable")
		return hi, nil
	}
	hi.Load1, hi.Load5, hi.Load15 = avg.Load1, avg.Load5, avg.Load15
	return hi, nil
}
