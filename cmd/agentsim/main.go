// Command agentsim flies a scenario to completion as fast as possible and
// prints a summary of the run. With -survey it flies a magnetic mapping
// survey instead, and with -list it prints the runs stored in -db.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"magnav-sim/internal/agent"
	"magnav-sim/internal/config"
	mlog "magnav-sim/internal/log"
	"magnav-sim/internal/report"
	"magnav-sim/internal/sim"
	"magnav-sim/internal/telemetry"
)

var (
	scenarioPath = flag.String("scenario", "", "Scenario JSON file (default: built-in patrol)")
	duration     = flag.Float64("duration", 0, "Override the scenario duration in seconds")
	dbPath       = flag.String("db", "", "SQLite file to store the run in")
	plotDir      = flag.String("plots", "", "Directory to write trajectory and altitude PNGs to")
	exportPath   = flag.String("export", "", "Write the run as a compressed msgpack archive")
	listRuns     = flag.Bool("list", false, "List the runs stored in -db and exit")
	surveyPasses = flag.Int("survey", 0, "Fly a magnetic survey with this many passes instead of the scenario")
	surveyRes    = flag.Float64("survey-res", 50, "Reconstruction grid cell size in metres")
	logDir       = flag.String("log-dir", "", "Directory for rotated JSON logs")
	logLevel     = flag.String("log-level", "warn", "Log level: debug, info, warn, error")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "agentsim: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	lg, err := mlog.New(mlog.Options{Dir: *logDir, Name: "agentsim.slog", Level: *logLevel, Stderr: true})
	if err != nil {
		return err
	}
	defer lg.Close()

	if *listRuns {
		return list(lg.Logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *surveyPasses > 0 {
		return survey(ctx, lg.Logger)
	}

	sc := config.Default()
	if *scenarioPath != "" {
		if sc, err = config.Load(*scenarioPath); err != nil {
			return err
		}
	}
	if *duration > 0 {
		sc.Sim.Duration = *duration
	}

	runner, err := sim.NewRunner(sc, lg.Logger)
	if err != nil {
		return err
	}

	samples, err := runner.Run(ctx)
	if err != nil {
		lg.Warn("run interrupted", slog.Int("samples", len(samples)), slog.Any("error", err))
	}

	fmt.Printf("scenario %q: %d cycles of %.2fs\n", sc.Name, len(samples), sc.Sim.DT)
	if err := report.Summarize(samples).Write(os.Stdout); err != nil {
		return err
	}

	if *dbPath != "" {
		store, err := telemetry.Open(*dbPath, lg.Logger)
		if err != nil {
			return err
		}
		defer store.Close()
		r, err := store.CreateRun(sc)
		if err != nil {
			return err
		}
		if err := store.InsertSamples(r.RunID, samples); err != nil {
			return err
		}
		fmt.Printf("stored run %s in %s\n", r.RunID, *dbPath)
		if *exportPath != "" {
			if err := store.Export(r.RunID, *exportPath); err != nil {
				return err
			}
			fmt.Printf("exported run to %s\n", *exportPath)
		}
	} else if *exportPath != "" {
		r, err := telemetry.NewRun(sc)
		if err != nil {
			return err
		}
		if err := telemetry.WriteArchive(*exportPath, telemetry.Archive{Run: r, Samples: samples}); err != nil {
			return err
		}
		fmt.Printf("exported run to %s\n", *exportPath)
	}

	if *plotDir != "" {
		if err := os.MkdirAll(*plotDir, 0o755); err != nil {
			return err
		}
		wps, err := sc.Waypoints()
		if err != nil {
			return err
		}
		files, err := report.SavePlots(*plotDir, samples, wps)
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Printf("wrote %s\n", f)
		}
	}
	return nil
}

func list(lg *slog.Logger) error {
	if *dbPath == "" {
		return fmt.Errorf("-list needs -db")
	}
	store, err := telemetry.Open(*dbPath, lg)
	if err != nil {
		return err
	}
	defer store.Close()

	version, dirty, err := store.Version()
	if err != nil {
		return err
	}
	fmt.Printf("%s: schema version %d (dirty=%t)\n", *dbPath, version, dirty)

	runs, err := store.Runs()
	if err != nil {
		return err
	}
	for _, r := range runs {
		counts, err := store.ModeCounts(r.RunID)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %-20s %s  steps=%d", r.RunID, r.Name, r.CreatedAt.Format(time.RFC3339), r.Steps)
		for _, m := range []agent.NavigationMode{agent.ModeGPS, agent.ModeMagNav, agent.ModeDeadReckoning} {
			if n := counts[m]; n > 0 {
				fmt.Printf(" %s=%d", m, n)
			}
		}
		fmt.Println()
	}
	return nil
}

func survey(ctx context.Context, lg *slog.Logger) error {
	cfg := sim.DefaultSurvey(*surveyPasses)
	res, err := sim.RunSurvey(ctx, cfg, lg)
	if err != nil {
		return err
	}
	fmt.Printf("survey: %d passes, %d steps, %d readings, completed=%t\n",
		cfg.Passes, res.Steps, len(res.Observations), res.Completed)

	rep, err := res.Reconstruct(*surveyRes, cfg.Altitude)
	if err != nil {
		return err
	}
	fmt.Printf("reconstruction at %.0fm: rmse=%.2fnT coverage=%.1f%%\n",
		cfg.Altitude, rep.RMSE, 100*rep.Coverage)

	if *plotDir != "" {
		if err := os.MkdirAll(*plotDir, 0o755); err != nil {
			return err
		}
		files, err := report.SaveFieldPlots(*plotDir, rep.Truth, rep.Reconstructed, res.Path)
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Printf("wrote %s\n", f)
		}
	}
	return nil
}
