// Command deconflict verifies a primary drone mission against competing
// flights from a scenario file or a built-in demo.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/signalsfoundry/airspace-deconfliction/core"
	"github.com/signalsfoundry/airspace-deconfliction/internal/config"
	"github.com/signalsfoundry/airspace-deconfliction/internal/logging"
	"github.com/signalsfoundry/airspace-deconfliction/internal/report"
	"github.com/signalsfoundry/airspace-deconfliction/internal/scenario"
)

// Exit codes.
const (
	exitSafe   = 0
	exitUnsafe = 1
	exitError  = 2
)

type options struct {
	scenarioPath string
	demo         string
	allDemos     bool
	listDemos    bool
	configPath   string
	format       string
	timeout      time.Duration
	maxPerGroup  int
	replay       bool
	replayStep   float64
	replayPace   time.Duration

	// Set only when the flag was given explicitly.
	buffer     *float64
	resolution *float64
	workers    *int
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitSafe
		}
		return exitError
	}

	if opts.listDemos {
		for _, name := range scenario.BuiltinNames() {
			s, _ := scenario.Builtin(name)
			fmt.Fprintf(stdout, "%-20s %s\n", name, s.Description)
		}
		return exitSafe
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "deconflict: %v\n", err)
		return exitError
	}
	logCfg := cfg.Logging.Logger()
	if logCfg.File == "" {
		logCfg.Output = stderr
	}
	log := logging.New(logCfg)

	scenarios, err := selectScenarios(opts)
	if err != nil {
		fmt.Fprintf(stderr, "deconflict: %v\n", err)
		return exitError
	}

	code := exitSafe
	for _, s := range scenarios {
		c := verifyScenario(ctx, s, cfg.Deconfliction.Detector(), opts, log, stdout, stderr)
		code = max(code, c)
	}
	return code
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("deconflict", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.scenarioPath, "scenario", "", "path to a JSON scenario file")
	fs.StringVar(&opts.demo, "demo", "", "name of a built-in demo scenario (default sample)")
	fs.BoolVar(&opts.allDemos, "all-demos", false, "verify every built-in demo scenario")
	fs.BoolVar(&opts.listDemos, "list-demos", false, "list built-in demo scenarios and exit")
	fs.StringVar(&opts.configPath, "config", "", "optional YAML/JSON configuration file")
	fs.StringVar(&opts.format, "format", "text", "output format: text or json")
	fs.DurationVar(&opts.timeout, "timeout", 0, "abort verification after this long (0 = no limit)")
	fs.IntVar(&opts.maxPerGroup, "max-per-group", report.DefaultMaxPerGroup, "conflicts listed per competing mission")
	fs.BoolVar(&opts.replay, "replay", false, "replay the primary window tick by tick after verifying")
	fs.Float64Var(&opts.replayStep, "replay-step", 5, "replay tick in mission seconds")
	fs.DurationVar(&opts.replayPace, "replay-pace", 0, "wall-clock delay between replay ticks (0 = as fast as possible)")
	buffer := fs.Float64("buffer", core.DefaultSafetyBuffer, "safety buffer in metres (overrides scenario)")
	resolution := fs.Float64("resolution", core.DefaultTimeResolution, "sampling resolution in seconds (overrides scenario)")
	workers := fs.Int("workers", 0, "detector workers (0 = configuration default)")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "buffer":
			opts.buffer = buffer
		case "resolution":
			opts.resolution = resolution
		case "workers":
			opts.workers = workers
		}
	})

	if opts.format != "text" && opts.format != "json" {
		fmt.Fprintf(stderr, "deconflict: unknown format %q\n", opts.format)
		return opts, fmt.Errorf("unknown format %q", opts.format)
	}
	if opts.scenarioPath != "" && (opts.demo != "" || opts.allDemos) {
		fmt.Fprintln(stderr, "deconflict: -scenario cannot be combined with -demo or -all-demos")
		return opts, errors.New("conflicting scenario flags")
	}
	return opts, nil
}

func selectScenarios(opts options) ([]*scenario.Scenario, error) {
	switch {
	case opts.scenarioPath != "":
		s, err := scenario.LoadFile(opts.scenarioPath)
		if err != nil {
			return nil, err
		}
		return []*scenario.Scenario{s}, nil
	case opts.allDemos:
		var out []*scenario.Scenario
		for _, name := range scenario.BuiltinNames() {
			s, err := scenario.Builtin(name)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	default:
		name := opts.demo
		if name == "" {
			name = "sample"
		}
		s, err := scenario.Builtin(name)
		if err != nil {
			return nil, err
		}
		return []*scenario.Scenario{s}, nil
	}
}

// verifyScenario runs one scenario and writes its report, returning the exit
// code it deserves.
func verifyScenario(ctx context.Context, s *scenario.Scenario, base core.DetectorConfig, opts options, log logging.Logger, stdout, stderr io.Writer) int {
	cfg := s.Detector(base)
	if opts.buffer != nil {
		cfg.SafetyBuffer = *opts.buffer
	}
	if opts.resolution != nil {
		cfg.TimeResolution = *opts.resolution
	}
	if opts.workers != nil {
		cfg.Workers = *opts.workers
	}

	det, err := core.NewDetector(cfg, core.WithLogger(log))
	if err != nil {
		fmt.Fprintf(stderr, "deconflict: %s: %v\n", s.Name, err)
		return exitError
	}

	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	log.Info(ctx, "verifying scenario",
		logging.String("scenario", s.Name),
		logging.String("primary_id", s.Primary.ID()),
		logging.Int("others", len(s.Others)),
		logging.Float("safety_buffer", cfg.SafetyBuffer),
		logging.Float("time_resolution", cfg.TimeResolution),
	)
	res, verr := det.Verify(ctx, s.Primary, s.Others)
	if verr != nil && res.Status != core.StatusIncomplete {
		fmt.Fprintf(stderr, "deconflict: %s: %v\n", s.Name, verr)
		return exitError
	}

	if err := writeResult(stdout, s, res, opts); err != nil {
		fmt.Fprintf(stderr, "deconflict: %s: %v\n", s.Name, err)
		return exitError
	}

	if opts.replay && verr == nil {
		replay(ctx, stdout, s, cfg.SafetyBuffer, opts.replayStep, opts.replayPace)
	}

	switch res.Status {
	case core.StatusSafe:
		return exitSafe
	case core.StatusUnsafe:
		return exitUnsafe
	default:
		fmt.Fprintf(stderr, "deconflict: %s: verification incomplete: %v\n", s.Name, verr)
		return exitError
	}
}

func writeResult(w io.Writer, s *scenario.Scenario, res core.Result, opts options) error {
	if opts.format == "json" {
		data, err := report.JSON(s.Primary.ID(), res, opts.maxPerGroup)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	}

	fmt.Fprintf(w, "=== %s ===\n", s.Name)
	if s.Description != "" {
		fmt.Fprintln(w, s.Description)
	}
	p := s.Primary
	fmt.Fprintf(w, "Primary %s: %d waypoints, %.1fs-%.1fs, path %.1fm, implied speed %.2fm/s\n",
		p.ID(), p.NumWaypoints(), p.StartTime(), p.EndTime(), p.PathLength(), p.ImpliedSpeed())
	fmt.Fprintf(w, "Checked against %d mission(s) at %d sample(s)\n\n", len(s.Others), res.Samples)
	_, err := fmt.Fprintf(w, "%s\n\n", report.ResultSummary(res, opts.maxPerGroup))
	return err
}
