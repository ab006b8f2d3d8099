package status

import (
	"strings"
	"testing"
	"time"

	"github.com/flagpole/c2/internal/session"
)

func TestRemaining(t *testing.T) {
	m := Model{Elapsed: 2 * time.Second, Duration: 5 * time.Second}
	if got := m.Remaining(); got != 3*time.Second {
		t.Errorf("Remaining() = %v, want 3s", got)
	}
	m.Elapsed = 7 * time.Second
	if got := m.Remaining(); got != 0 {
		t.Errorf("Remaining() past the deadline = %v, want 0", got)
	}
}

func TestView(t *testing.T) {
	m := Model{
		Connected: true,
		State:     session.Running,
		Elapsed:   1500 * time.Millisecond,
		Duration:  time.Minute,
		Active:    2,
		Nodes:     3,
		Width:     120,
	}
	v := m.View()
	for _, want := range []string{"Connected", "running", "Time Elapsed: 1.5 seconds", "2/3 nodes active"} {
		if !strings.Contains(v, want) {
			t.Errorf("status bar missing %q:\n%s", want, v)
		}
	}
}
