package domain

import "fmt"

// FormatViewerCount renders a viewer count the way the broadcast overlay shows it:
// 999, 1.5K, 12K, 1.2M.
func FormatViewerCount(count int) string {
	switch {
	case count < 1000:
		return fmt.Sprintf("%d", count)
	case count < 10000:
		return fmt.Sprintf("%.1fK", float64(count)/1000.0)
	case count < 1000000:
		return fmt.Sprintf("%dK", count/1000)
	default:
		return fmt.Sprintf("%.1fM", float64(count)/1000000.0)
	}
}
