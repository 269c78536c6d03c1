// Command calo-impact extrapolates tracks from an event file to the
// calorimeter, matches each impact point to the nearest cluster and writes
// the results, optionally with eta-phi plots.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/calo-impact/internal/config"
	"github.com/banshee-data/calo-impact/internal/eventio"
	"github.com/banshee-data/calo-impact/internal/field"
	"github.com/banshee-data/calo-impact/internal/impact"
	"github.com/banshee-data/calo-impact/internal/monitoring"
	"github.com/banshee-data/calo-impact/internal/propagation"
	"github.com/banshee-data/calo-impact/internal/report"
	"github.com/banshee-data/calo-impact/internal/security"
	"github.com/banshee-data/calo-impact/internal/timeutil"
	"github.com/banshee-data/calo-impact/internal/version"
)

// clock stamps results and times the run.
var clock timeutil.Clock = timeutil.RealClock{}

// Config holds the command-line options.
type Config struct {
	EventsFile  string
	ConfigFile  string
	FieldMap    string
	OutputJSON  string
	PlotFile    string
	PlotDir     string
	HTMLFile    string
	Workers     int
	Verbose     bool
	ShowVersion bool
}

func main() {
	cfg := parseFlags()

	if cfg.ShowVersion {
		fmt.Println(version.String())
		return
	}
	if cfg.EventsFile == "" {
		log.Fatal("events file is required (-events)")
	}
	monitoring.SetVerbose(cfg.Verbose)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("calo-impact: %v", err)
	}
}

func parseFlags() Config {
	cfg := Config{}

	flag.StringVar(&cfg.EventsFile, "events", "", "Event file (.json, .yaml or .yml)")
	flag.StringVar(&cfg.ConfigFile, "config", "", "Tuning config JSON (defaults built in)")
	flag.StringVar(&cfg.FieldMap, "field-map", "", "Optional r,z,br,bz field map CSV; uniform solenoid from config otherwise")
	flag.StringVar(&cfg.OutputJSON, "out", "", "Write results JSON to this path (stdout if empty)")
	flag.StringVar(&cfg.PlotFile, "plot", "", "Write an eta-phi plot (png, svg or pdf)")
	flag.StringVar(&cfg.PlotDir, "plot-dir", "", "Write one eta-phi plot per event into this directory")
	flag.StringVar(&cfg.HTMLFile, "html", "", "Write an interactive eta-phi chart (html)")
	flag.IntVar(&cfg.Workers, "workers", -1, "Resolver goroutines (0 = GOMAXPROCS, -1 = from config)")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "Print version and exit")

	flag.Parse()

	return cfg
}

func run(ctx context.Context, cfg Config) error {
	tuning := config.EmptyTuningConfig()
	if cfg.ConfigFile != "" {
		var err error
		if tuning, err = config.LoadTuningConfig(cfg.ConfigFile); err != nil {
			return err
		}
	}

	f, err := loadField(cfg.FieldMap, tuning)
	if err != nil {
		return err
	}

	events, err := eventio.Load(cfg.EventsFile)
	if err != nil {
		return err
	}
	inputs := events.Inputs(tuning.GetEventMomentumFloor())

	resolver := newResolver(f, tuning)
	workers := cfg.Workers
	if workers < 0 {
		workers = tuning.GetWorkers()
	}

	start := clock.Now()
	outputs := make([]impact.Output, len(inputs))
	drawn := make([]report.Event, len(inputs))
	for i, in := range inputs {
		out, err := resolver.FindConcurrent(ctx, in.Tracks, in.Clusters, workers)
		if err != nil {
			return fmt.Errorf("event %s: %w", in.ID, err)
		}
		barrel, endcap, failed := out.Counts()
		monitoring.Logf("[calo-impact] %s: %d tracks, %d clusters, barrel=%d endcap=%d failed=%d",
			in.ID, out.Len(), in.Clusters.Len(), barrel, endcap, failed)
		outputs[i] = out
		drawn[i] = report.Event{ID: in.ID, Output: out, Clusters: in.Clusters}
	}
	monitoring.Logf("[calo-impact] resolved %d events in %v", len(inputs), clock.Since(start))

	res, err := eventio.NewResult(inputs, outputs, eventio.WithClock(clock))
	if err != nil {
		return err
	}
	if cfg.OutputJSON != "" {
		if err := eventio.WriteResultFile(cfg.OutputJSON, res); err != nil {
			return err
		}
		monitoring.Logf("[calo-impact] results written to %s", cfg.OutputJSON)
	} else if err := eventio.WriteResult(os.Stdout, res); err != nil {
		return err
	}

	var reportErrs []error
	if cfg.PlotFile != "" {
		if err := report.WritePNG(cfg.PlotFile, drawn); err != nil {
			reportErrs = append(reportErrs, err)
		} else {
			monitoring.Logf("[calo-impact] plot written to %s", cfg.PlotFile)
		}
	}
	if cfg.PlotDir != "" {
		if err := writeEventPlots(cfg.PlotDir, drawn); err != nil {
			reportErrs = append(reportErrs, err)
		}
	}
	if cfg.HTMLFile != "" {
		if err := report.WriteHTML(cfg.HTMLFile, drawn); err != nil {
			reportErrs = append(reportErrs, err)
		} else {
			monitoring.Logf("[calo-impact] chart written to %s", cfg.HTMLFile)
		}
	}
	return errors.Join(reportErrs...)
}

// writeEventPlots saves one plot per event, named after the event ID.
func writeEventPlots(dir string, events []report.Event) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create plot directory: %w", err)
	}
	for _, ev := range events {
		path, err := security.OutputFile(dir, ev.ID, ".png")
		if err != nil {
			return fmt.Errorf("event %s: %w", ev.ID, err)
		}
		if err := report.WritePNG(path, []report.Event{ev}); err != nil {
			return fmt.Errorf("event %s: %w", ev.ID, err)
		}
		monitoring.Debugf("[calo-impact] %s plot written to %s", ev.ID, path)
	}
	monitoring.Logf("[calo-impact] %d event plots written to %s", len(events), dir)
	return nil
}

// loadField reads the field map at path, or builds the uniform solenoid
// described by the tuning config when path is empty.
func loadField(path string, tuning *config.TuningConfig) (field.Field, error) {
	if path == "" {
		return field.NewSolenoid(tuning.GetFieldBzTesla(), tuning.GetFieldRadiusCM(), tuning.GetFieldHalfLengthCM()), nil
	}

	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open field map: %w", err)
	}
	defer fh.Close()

	m, err := field.LoadRZMapCSV(fh, tuning.GetFieldMapLengthUnit(), tuning.GetFieldMapFieldUnit())
	if err != nil {
		return nil, fmt.Errorf("field map %s: %w", path, err)
	}
	return m, nil
}

func newResolver(f field.Field, tuning *config.TuningConfig) *impact.Resolver {
	return impact.NewResolver(f,
		impact.WithBarrelEtaMax(tuning.GetBarrelEtaMax()),
		impact.WithPropagationOptions(
			propagation.WithMass(tuning.GetMassGeV()),
			propagation.WithStep(tuning.GetStepCM()),
			propagation.WithMaxPath(tuning.GetMaxPathCM()),
			propagation.WithCrossingTolerance(tuning.GetCrossingToleranceCM()),
			propagation.WithMaxRefineIterations(tuning.GetMaxRefineIterations()),
		),
	)
}
