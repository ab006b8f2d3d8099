// Package report renders the final session result as markdown.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/flagpole/c2/internal/contest"
)

// Markdown builds the result document.
func Markdown(res contest.Result, teams contest.Teams) string {
	nameA := teams.Name(contest.SideA)
	nameB := teams.Name(contest.SideB)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s team won!\n\n", teams.Name(res.Winner))
	if res.TotalA == res.TotalB {
		fmt.Fprintf(&b, "_Held time was tied; ties go to %s._\n\n", nameB)
	}
	fmt.Fprintf(&b, "Total %s time: **%.2f seconds**, total %s time: **%.2f seconds**\n\n",
		nameA, res.TotalA.Seconds(), nameB, res.TotalB.Seconds())

	reason := "the session clock ran out"
	if res.Reason == contest.ReasonCancelled {
		reason = "the operator stopped the session"
	}
	fmt.Fprintf(&b, "Session ran %s and ended because %s.\n\n", res.Duration.Truncate(100*time.Millisecond), reason)

	if len(res.Nodes) > 0 {
		fmt.Fprintf(&b, "| Node | Holder | %s | %s | Flips |\n", nameA, nameB)
		b.WriteString("|---|---|---:|---:|---:|\n")
		for _, n := range res.Nodes {
			fmt.Fprintf(&b, "| %s | %s | %.2fs | %.2fs | %d |\n",
				n.ID, teams.Name(n.Holder), n.TimeA.Seconds(), n.TimeB.Seconds(), n.Flips)
		}
	}
	return b.String()
}

// Render turns the result into styled terminal output wrapped at width.
// style is a glamour standard style name such as "dark" or "notty".
func Render(res contest.Result, teams contest.Teams, width int, style string) (string, error) {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("creating renderer: %w", err)
	}
	out, err := r.Render(Markdown(res, teams))
	if err != nil {
		return "", fmt.Errorf("rendering report: %w", err)
	}
	return out, nil
}
