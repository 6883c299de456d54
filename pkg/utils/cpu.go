package utils

import "github.com/shirou/gopsutil/cpu"

var cpuPercent = cpu.Percent

// CheckCPUUsage samples system-wide CPU usage and reports whether it is at or below maxCPUUsage.
// A sampling error is treated as "busy" so callers back off rather than pile on.
func CheckCPUUsage(maxCPUUsage float64) (bool, float64) {
	usage, err := cpuPercent(0, false)
	if err != nil || len(usage) == 0 {
		return false, 0
	}
	return usage[0] <= maxCPUUsage, usage[0]
}
