package output

import (
	"fmt"
	"strings"
)

// DefaultBarWidth is the cell count of a Bar.
const DefaultBarWidth = 20

// Bar renders done/total as a fixed-width bar, e.g. "██████░░░░ 3/5".
// Values above total render as a full bar.
func Bar(done, total, width int) string {
	if width <= 0 {
		width = DefaultBarWidth
	}
	filled := 0
	if total > 0 {
		filled = done * width / total
	}
	filled = clamp(filled, 0, width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled) +
		fmt.Sprintf(" %d/%d", done, total)
}

// PercentBar renders a percentage in [0,100] as a bar, e.g. "█████░░░░░  50%".
func PercentBar(pct float64, width int) string {
	if width <= 0 {
		width = DefaultBarWidth
	}
	filled := clamp(int(pct*float64(width)/100), 0, width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled) +
		fmt.Sprintf(" %3.0f%%", pct)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
