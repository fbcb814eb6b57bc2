package benchmark

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/process"
)

// ProcessRSS returns the resident set size of this process in kilobytes.
func ProcessRSS() (float64, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, fmt.Errorf("failed to inspect process: %w", err)
	}
	info, err := p.MemoryInfo()
	if err != nil {
		return 0, fmt.Errorf("failed to read memory info: %w", err)
	}
	return float64(info.RSS) / 1024, nil
}
