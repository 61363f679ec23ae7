package tools

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v4/process"
)

// MemoryUsageMB returns the resident set size of the current process in MB.
func MemoryUsageMB() (float64, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, fmt.Errorf("failed to inspect process: %w", err)
	}
	info, err := proc.MemoryInfo()
	if err != nil {
		return 0, fmt.Errorf("failed to read memory info: %w", err)
	}
	return float64(info.RSS) / 1024 / 1024, nil
}
