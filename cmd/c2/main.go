// Command c2 runs one timed flagpole contest over the nodes listed in a
// node file and prints the winning team.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/flagpole/c2/internal/config"
	"github.com/flagpole/c2/internal/contest"
	"github.com/flagpole/c2/internal/flagpole"
	"github.com/flagpole/c2/internal/ownership"
	"github.com/flagpole/c2/internal/roster"
	"github.com/flagpole/c2/internal/session"
	"github.com/flagpole/c2/internal/ws"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	configPath string
	minutes    float64
	listen     string
	seed       int64
	mode       string
	logLevel   string
	nodeFile   string
	set        map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("c2", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: c2 [flags] <nodefile>")
		fs.PrintDefaults()
	}

	o := &options{}
	fs.StringVar(&o.configPath, "config", "", "Path to config file (optional)")
	fs.Float64Var(&o.minutes, "time", 5, "Session length in minutes")
	fs.StringVar(&o.listen, "listen", "", "Serve the status feed on host:port")
	fs.Int64Var(&o.seed, "seed", 0, "Seed for simulated ownership (0 = random)")
	fs.StringVar(&o.mode, "mode", "", "Ownership mode: random or hardware")
	fs.StringVar(&o.logLevel, "log-level", "", "Override log level")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	o.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })

	if fs.NArg() != 1 {
		fs.Usage()
		return nil, contest.Invalid("nodefile", "exactly one node file is required")
	}
	o.nodeFile = fs.Arg(0)
	return o, nil
}

// apply layers command line overrides onto cfg.
func (o *options) apply(cfg *config.Config) error {
	if o.set["time"] {
		if math.IsNaN(o.minutes) || math.IsInf(o.minutes, 0) {
			return contest.Invalid("time", "must be a finite number of minutes")
		}
		if o.minutes <= 0 {
			return contest.Invalid("time", "must be greater than zero")
		}
		cfg.Session.Duration = time.Duration(o.minutes * float64(time.Minute))
	}
	if o.set["mode"] {
		cfg.Ownership.Mode = o.mode
	}
	if o.set["seed"] {
		cfg.Ownership.Seed = o.seed
	}
	if o.set["log-level"] {
		cfg.Log.Level = o.logLevel
	}
	if o.listen != "" {
		host, portStr, err := net.SplitHostPort(o.listen)
		if err != nil {
			return &contest.ConfigError{Field: "listen", Reason: "want host:port", Err: err}
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return &contest.ConfigError{Field: "listen", Reason: "bad port", Err: err}
		}
		cfg.Server.Enabled = true
		cfg.Server.Host = host
		cfg.Server.Port = port
	}
	return cfg.Validate()
}

func setupLogging(cfg config.LogConfig, w io.Writer) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
		return
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()
}

// run returns the process exit status: 0 after a completed session,
// 1 on configuration errors.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "c2: %v\n", err)
		return 1
	}

	cfg, err := config.LoadOrDefault(o.configPath)
	if err == nil {
		err = o.apply(cfg)
	}
	if err != nil {
		fmt.Fprintf(stderr, "c2: %v\n", err)
		return 1
	}
	setupLogging(cfg.Log, stderr)

	nodes, err := roster.Load(o.nodeFile)
	if err != nil {
		log.Error().Err(err).Msg("cannot read node list")
		return 1
	}

	// Background services outlive the session so the final result still
	// reaches status clients; they stop when run returns.
	bgCtx, cancelBg := context.WithCancel(context.Background())
	defer cancelBg()

	var (
		sources ownership.Factory
		presser ws.Presser
	)
	switch cfg.Ownership.Mode {
	case config.ModeHardware:
		bank := flagpole.NewBank(nodes, nil, flagpole.WithPoll(cfg.Ownership.PollInterval))
		go func() {
			if err := bank.Run(bgCtx); err != nil {
				log.Error().Err(err).Msg("flagpole devices stopped")
			}
		}()
		sources = bank.Factory(nil)
		presser = bank
	default:
		sources, err = ownership.NewRandomFactory(cfg.Ownership.Probability, cfg.Ownership.Seed)
		if err != nil {
			log.Error().Err(err).Msg("invalid ownership settings")
			return 1
		}
	}

	// The feed needs the coordinator for snapshots and the coordinator
	// reports into the feed; feed is assigned before Start spawns anything.
	var feed *ws.Broadcaster
	coord := session.New(session.Options{
		Duration: cfg.Session.Duration,
		Tick:     cfg.Session.Tick,
		Sources:  sources,
		Reporter: session.MultiReporter{
			&session.TextReporter{W: stdout, Teams: cfg.Teams},
			session.ReporterFunc(func(ev session.Event) {
				if feed != nil {
					feed.Report(ev)
				}
			}),
		},
	})

	if cfg.Server.Enabled {
		feed = ws.NewBroadcaster(coord, cfg.Teams,
			cfg.Broadcast.Throttle, cfg.Broadcast.SnapshotInterval, cfg.Broadcast.MaxConns)
		defer feed.Stop()

		server := ws.NewServer(cfg.Server, coord, feed, presser)
		go func() {
			if err := ws.ListenAndServe(bgCtx, cfg.Addr(), server.Handler()); err != nil {
				log.Error().Err(err).Msg("status server stopped")
			}
		}()
	}

	if err := coord.Start(nodes); err != nil {
		log.Error().Err(err).Msg("cannot start session")
		return 1
	}

	res, err := coord.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("session failed")
		return 1
	}

	log.Info().
		Str("session", res.SessionID).
		Str("reason", string(res.Reason)).
		Dur("elapsed", res.Duration).
		Msg("done")
	return 0
}
