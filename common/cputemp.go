package common

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"
)

const InvalidCpuTemp = float32(-99.0)

const cpuTempFile = "/sys/class/thermal/thermal_zone0/temp"

type CpuTempUpdateFunc func(cpuTemp float32)

/* CpuTempMonitor() reads the RPi board temperature every second and
calls a callback until ctx is done. Reading the sysfs file sometimes hangs
for a while, so run it on its own goroutine. */

func CpuTempMonitor(ctx context.Context, updater CpuTempUpdateFunc) {
	timer := time.NewTicker(1 * time.Second)
	defer timer.Stop()
	for {
		if t := ReadCpuTemp(cpuTempFile); IsCPUTempValid(t) {
			updater(t)
		}
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
}

// ReadCpuTemp parses a thermal zone file in millidegrees (or whole degrees on
// some kernels). InvalidCpuTemp is returned on any error.
func ReadCpuTemp(path string) float32 {
	temp, err := os.ReadFile(path)
	if err != nil {
		return InvalidCpuTemp
	}
	tInt, err := strconv.Atoi(strings.Trim(string(temp), "\n"))
	if err != nil {
		return InvalidCpuTemp
	}
	if tInt > 1000 {
		return float32(tInt) / float32(1000.0)
	}
	return float32(tInt) // case where Temp is returned as simple integer
}

// Check if CPU temperature is valid. Assume <= 0 is invalid.
func IsCPUTempValid(cpuTemp float32) bool {
	return cpuTemp > 0
}
