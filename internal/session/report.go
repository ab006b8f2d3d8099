package session

import (
	"fmt"
	"io"

	"github.com/flagpole/c2/internal/contest"
)

// TextReporter writes the session's textual output: elapsed time once per
// tick, then both totals and the winning team.
type TextReporter struct {
	W     io.Writer
	Teams contest.Teams
}

func (r *TextReporter) Report(ev Event) {
	switch ev.Type {
	case EventProgress:
		fmt.Fprintf(r.W, "Time Elapsed: %.1f seconds\n", ev.Elapsed.Seconds())
	case EventCompleted:
		if ev.Result == nil {
			return
		}
		res := ev.Result
		fmt.Fprintf(r.W, "Total %s time: %.2f seconds, total %s time: %.2f seconds\n",
			r.Teams.Name(contest.SideA), res.TotalA.Seconds(),
			r.Teams.Name(contest.SideB), res.TotalB.Seconds())
		fmt.Fprintf(r.W, "%s team won!\n", r.Teams.Name(res.Winner))
	}
}
