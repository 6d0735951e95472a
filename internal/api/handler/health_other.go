//go:build !linux && !darwin

package handler

import (
	"errors"
	"time"
)

var errStatsUnsupported = errors.New("system stats not supported on this platform")

func statDisk(string) (diskUsage, error) {
	return diskUsage{}, errStatsUnsupported
}

func processCPUTime() (time.Duration, error) {
	return 0, errStatsUnsupported
}
