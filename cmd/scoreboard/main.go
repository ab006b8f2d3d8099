// Command scoreboard is the terminal console for a running c2 session.
package main

import (
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/flagpole/c2/internal/tui/app"
	"github.com/flagpole/c2/internal/tui/client"
)

func main() {
	wsURL := flag.String("url", "ws://127.0.0.1:8080/ws", "WebSocket URL of the c2 status feed")
	token := flag.String("token", "", "Auth token (if the coordinator requires it)")
	logPath := flag.String("log", "", "Append debug logs to this file")
	stale := flag.Duration("stale", client.DefaultStaleAfter, "Treat the feed as lost after this long without a frame")
	style := flag.String("style", app.ReportStyle, "Glamour style for the final report")
	flag.Parse()

	// The terminal belongs to the UI, so logs go to a file or nowhere.
	var logOut io.Writer = io.Discard
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}
	log.Logger = zerolog.New(logOut).With().Timestamp().Str("component", "scoreboard").Logger()
	app.ReportStyle = *style

	feed := client.NewFeed(*wsURL, *token)
	feed.StaleAfter = *stale
	httpClient := client.NewHTTPClient(deriveHTTPBase(*wsURL), *token)

	p := tea.NewProgram(app.New(feed, httpClient), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Error().Err(err).Msg("console exited")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// deriveHTTPBase converts ws://host:port/ws → http://host:port
func deriveHTTPBase(wsURL string) string {
	u, err := url.Parse(wsURL)
	if err != nil || u.Host == "" {
		return "http://127.0.0.1:8080"
	}
	scheme := "http"
	if strings.HasPrefix(u.Scheme, "wss") {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, u.Host)
}
