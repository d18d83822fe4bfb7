package output

import (
	"strings"
	"testing"
)

func TestBar(t *testing.T) {
	tests := []struct {
		done, total, width int
		want               string
	}{
		{3, 5, 10, "██████░░░░ 3/5"},
		{0, 5, 4, "░░░░ 0/5"},
		{7, 5, 4, "████ 7/5"},
		{1, 0, 4, "░░░░ 1/0"},
	}
	for _, tt := range tests {
		if got := Bar(tt.done, tt.total, tt.width); got != tt.want {
			t.Errorf("Bar(%d, %d, %d) = %q, want %q", tt.done, tt.total, tt.width, got, tt.want)
		}
	}
	if got := Bar(1, 2, 0); strings.Count(got, "█") != DefaultBarWidth/2 {
		t.Errorf("default width bar = %q", got)
	}
}

func TestPercentBar(t *testing.T) {
	if got := PercentBar(50, 10); got != "█████░░░░░  50%" {
		t.Errorf("PercentBar(50) = %q", got)
	}
	if got := PercentBar(130, 4); !strings.HasPrefix(got, "████ ") {
		t.Errorf("PercentBar(130) = %q", got)
	}
}
