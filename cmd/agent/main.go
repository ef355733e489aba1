package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/agent"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/attendance"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/syncqueue"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/geo"
)

const usage = `usage: agent [-config path] [-positions file|-] <command> [args]

commands:
  run                          track position and replay the queue on reconnect
  clock-in [-field -reason r -description d]
  clock-out
  break-start
  break-end
  position                     print the current geofence state
  status [-status pending|failed|synced]
  flush                        replay queued operations now
  retry <item-id>
  clear <item-id>
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("Agent exited with error", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := flag.NewFlagSet("agent", flag.ContinueOnError)
	flags.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	configPath := flags.String("config", "agent.yaml", "agent config file")
	positions := flags.String("positions", "", "newline-delimited JSON positions, - for stdin")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() == 0 {
		flags.Usage()
		return errors.New("missing command")
	}

	cfg, err := agent.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	})).With(slog.String("app", "attendance-agent")))

	source, closeSource, err := positionSource(*positions, cfg)
	if err != nil {
		return err
	}
	defer closeSource()

	a, err := agent.New(*cfg, source)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, cmdArgs := flags.Arg(0), flags.Args()[1:]
	switch cmd {
	case "run":
		return a.Run(ctx)
	case "clock-in":
		in, err := parseClockIn(cmdArgs)
		if err != nil {
			return err
		}
		return printResult(a.ClockIn(ctx, in))
	case "clock-out":
		return printResult(a.ClockOut(ctx))
	case "break-start":
		return printResult(a.StartBreak(ctx))
	case "break-end":
		return printResult(a.EndBreak(ctx))
	case "position":
		state, err := a.Locate(ctx)
		if err != nil && !errors.Is(err, agent.ErrNoPosition) {
			return err
		}
		return printJSON(state)
	case "status":
		fs := flag.NewFlagSet("status", flag.ContinueOnError)
		status := fs.String("status", "", "filter by sync status")
		if err := fs.Parse(cmdArgs); err != nil {
			return err
		}
		var filter *syncqueue.Status
		if *status != "" {
			s := syncqueue.Status(*status)
			filter = &s
		}
		return printResult(a.Pending(ctx, filter))
	case "flush":
		if !a.Online(ctx) {
			return errors.New("server unreachable, queue left untouched")
		}
		return printResult(a.Flush(ctx))
	case "retry":
		if len(cmdArgs) != 1 {
			return errors.New("retry needs an item id")
		}
		return printResult(a.Retry(ctx, cmdArgs[0]))
	case "clear":
		if len(cmdArgs) != 1 {
			return errors.New("clear needs an item id")
		}
		return a.Clear(ctx, cmdArgs[0])
	default:
		flags.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func parseClockIn(args []string) (agent.ClockInInput, error) {
	fs := flag.NewFlagSet("clock-in", flag.ContinueOnError)
	field := fs.Bool("field", false, "clock in away from the office")
	reason := fs.String("reason", "", "field work reason")
	description := fs.String("description", "", "field work description")
	if err := fs.Parse(args); err != nil {
		return agent.ClockInInput{}, err
	}

	in := agent.ClockInInput{LocationType: attendance.LocationOffice}
	if *field {
		in.LocationType = attendance.LocationField
		in.FieldReason = *reason
		in.FieldDescription = *description
	}
	return in, nil
}

func positionSource(path string, cfg *agent.Config) (geo.PositionSource, func(), error) {
	switch path {
	case "":
		return agent.StaticSource{Position: cfg.Position.Fixed}, func() {}, nil
	case "-":
		return agent.ReaderSource{R: os.Stdin}, func() {}, nil
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open positions: %w", err)
		}
		return agent.ReaderSource{R: f}, func() { f.Close() }, nil
	}
}

func printResult[T any](v T, err error) error {
	if err != nil {
		return err
	}
	return printJSON(v)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func logLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
