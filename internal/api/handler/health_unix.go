//go:build linux || darwin

package handler

import (
	"syscall"
	"time"
)

func statDisk(path string) (diskUsage, error) {
	var fs syscall.Statfs_t
	if err := syscall.Statfs(path, &fs); err != nil {
		return diskUsage{}, err
	}
	bsize := int64(fs.Bsize)
	return diskUsage{
		Total: int64(fs.Blocks) * bsize,
		Free:  int64(fs.Bavail) * bsize,
	}, nil
}

// processCPUTime is user plus system time consumed by this process.
func processCPUTime() (time.Duration, error) {
	var ru syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &ru); err != nil {
		return 0, err
	}
	tv := func(t syscall.Timeval) time.Duration {
		return time.Duration(t.Sec)*time.Second + time.Duration(t.Usec)*time.Microsecond
	}
	return tv(ru.Utime) + tv(ru.Stime), nil
}
