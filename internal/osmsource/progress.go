package osmsource

import (
	"fmt"
	"time"
)

// progressTracker estimates completion of a scan from bytes consumed.
type progressTracker struct {
	totalBytes int64
	startTime  time.Time
}

func newProgressTracker(totalBytes int64) *progressTracker {
	return &progressTracker{totalBytes: totalBytes, startTime: time.Now()}
}

// progress holds current progress information
type progress struct {
	Percentage float64
	ETA        time.Duration
	Throughput float64 // objects per second
}

func (p *progressTracker) calculate(count, bytesProcessed int64) progress {
	elapsed := time.Since(p.startTime)

	var out progress
	if p.totalBytes > 0 && bytesProcessed > 0 {
		out.Percentage = float64(bytesProcessed) / float64(p.totalBytes) * 100
		if out.Percentage < 100 {
			if rate := float64(bytesProcessed) / elapsed.Seconds(); rate > 0 {
				out.ETA = (time.Duration(float64(p.totalBytes-bytesProcessed)/rate) * time.Second).Round(time.Second)
			}
		}
	}
	if elapsed.Seconds() > 0 {
		out.Throughput = float64(count) / elapsed.Seconds()
	}
	return out
}

// formatETA formats the ETA duration in a human-readable format
func formatETA(d time.Duration) string {
	if d <= 0 {
		return "calculating..."
	}
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// formatThroughput formats throughput as human-readable objects per second
func formatThroughput(perSec float64) string {
	if perSec >= 1_000_000 {
		return fmt.Sprintf("%.1fM/s", perSec/1_000_000)
	}
	if perSec >= 1_000 {
		return fmt.Sprintf("%.1fK/s", perSec/1_000)
	}
	return fmt.Sprintf("%.0f/s", perSec)
}

// FormatBytes formats bytes in a human-readable format
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
