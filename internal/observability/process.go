package observability

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessReport описывает потребление ресурсов процессом
type ProcessReport struct {
	Uptime     time.Duration
	CPUPercent float64
	RSSMB      float64
	HeapMB     float64
	NumGC      uint32
	Goroutines int
}

// CollectProcessReport снимает отчёт о текущем процессе. start: время запуска.
func CollectProcessReport(start time.Time) (ProcessReport, error) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	report := ProcessReport{
		Uptime:     time.Since(start),
		HeapMB:     float64(m.HeapAlloc) / 1024 / 1024,
		NumGC:      m.NumGC,
		Goroutines: runtime.NumGoroutine(),
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return report, fmt.Errorf("process info: %w", err)
	}
	if mem, err := proc.MemoryInfo(); err == nil {
		report.RSSMB = float64(mem.RSS) / 1024 / 1024
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		// Если не удалось получить метрику процесса, попробуем системную
		cpuPercents, err := cpu.Percent(100*time.Millisecond, false)
		if err != nil || len(cpuPercents) == 0 {
			return report, err
		}
		cpuPercent = cpuPercents[0]
	}
	report.CPUPercent = cpuPercent
	return report, nil
}

func (r ProcessReport) String() string {
	return fmt.Sprintf("uptime=%s cpu=%.1f%% rss=%.1fMB heap=%.1fMB gc=%d goroutines=%d",
		r.Uptime.Round(time.Millisecond), r.CPUPercent, r.RSSMB, r.HeapMB, r.NumGC, r.Goroutines)
}
