package cli

import (
	"fmt"
	"time"
)

// FormatDuration formats milliseconds to human readable string
func FormatDuration(ms int) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	secs := float64(ms) / 1000
	if secs < 60 {
		return fmt.Sprintf("%.1fs", secs)
	}
	mins := int(secs / 60)
	secs = secs - float64(mins*60)
	return fmt.Sprintf("%dm%.1fs", mins, secs)
}

// FormatElapsed formats a wall-clock duration with [FormatDuration].
func FormatElapsed(d time.Duration) string {
	return FormatDuration(int(d.Milliseconds()))
}

// FormatRate formats a processing rate as items per second.
func FormatRate(n int, d time.Duration, unit string) string {
	if d <= 0 {
		return fmt.Sprintf("- %s/s", unit)
	}
	return fmt.Sprintf("%.2f %s/s", float64(n)/d.Seconds(), unit)
}
