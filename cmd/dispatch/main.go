package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"

	"github.com/prometheus/common/expfmt"
	"go.uber.org/zap"

	"casualty-dispatch/internal/config"
	"casualty-dispatch/internal/database"
	"casualty-dispatch/internal/distance"
	"casualty-dispatch/internal/geocoding"
	"casualty-dispatch/internal/logging"
	"casualty-dispatch/internal/metrics"
	"casualty-dispatch/internal/models"
	"casualty-dispatch/internal/notify"
	"casualty-dispatch/internal/scenario"
	"casualty-dispatch/internal/scheduling"
	"casualty-dispatch/internal/sqlite"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	scenarioPath := flag.String("scenario", getEnv("DISPATCH_SCENARIO", ""), "scenario YAML file to replay")
	configPath := flag.String("config", getEnv("DISPATCH_CONFIG", ""), "config file (default ~/.casualty-dispatch/config.yaml)")
	addressPath := flag.String("addresses", "", "address table CSV produced by the geocode tool")
	metricsOut := flag.String("metrics-out", "", "write Prometheus metrics to this file after the replay")

	var query historyQuery
	flag.IntVar(&query.Passes, "history", 0, "print the N most recent journaled passes")
	flag.StringVar(&query.PatientID, "patient", "", "print the journaled binding of this patient")
	flag.StringVar(&query.VehicleID, "vehicle", "", "print the journaled bindings of this vehicle")
	flag.StringVar(&query.HospitalID, "hospital", "", "print the journaled admissions of this hospital")
	flag.Parse()

	if *scenarioPath == "" && !query.requested() {
		return fmt.Errorf("a scenario file is required (-scenario or DISPATCH_SCENARIO)")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, "dispatch")
	if err != nil {
		return err
	}
	defer logger.Sync()

	var store *sqlite.Store
	if cfg.Journal.Enabled {
		store, err = sqlite.New(cfg.Journal.Path, logger)
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		defer store.Close()
	}
	if query.requested() && store == nil {
		return fmt.Errorf("journal lookups need journal.enabled or DISPATCH_DB_PATH")
	}

	if *scenarioPath != "" {
		if err := replay(cfg, logger, store, *scenarioPath, *addressPath, *metricsOut); err != nil {
			return err
		}
	}

	if query.requested() {
		if *scenarioPath != "" {
			fmt.Fprintln(os.Stdout)
		}
		return printHistory(context.Background(), os.Stdout, store, query)
	}
	return nil
}

// replay runs the scenario through a fresh scheduler. A nil store disables journaling.
func replay(cfg *config.Config, logger *zap.Logger, store *sqlite.Store, scenarioPath, addressPath, metricsOut string) error {
	estimatorCfg, err := cfg.EstimatorSettings()
	if err != nil {
		return err
	}
	estimator, err := distance.NewEstimatorWithConfig(estimatorCfg)
	if err != nil {
		return err
	}
	policy, err := cfg.SchedulingPolicy()
	if err != nil {
		return err
	}

	sc, err := scenario.LoadFile(scenarioPath)
	if err != nil {
		return err
	}

	var addresses map[string]models.Location
	if addressPath != "" {
		addresses, err = loadAddresses(addressPath)
		if err != nil {
			return err
		}
		logger.Info("address table loaded", zap.String("path", addressPath), zap.Int("entries", len(addresses)))
	}

	passMetrics := metrics.NewPassMetrics()
	replayer := scenario.NewReplayer(sc, addresses, logger)

	opts := []scheduling.Option{
		scheduling.WithEstimator(estimator),
		scheduling.WithPolicy(policy),
		scheduling.WithClock(replayer.Clock().Now),
		scheduling.WithLogger(logger),
		scheduling.WithObserver(passMetrics),
	}

	if store != nil {
		opts = append(opts, scheduling.WithObserver(database.NewRecorder(store, logger)))
	}

	if cfg.Notify.RedisURL != "" {
		notifier, err := notify.NewRedisNotifier(cfg.Notify.RedisURL, cfg.Notify.Channel, logger)
		if err != nil {
			return err
		}
		defer notifier.Close()
		opts = append(opts, scheduling.WithObserver(notifier))
		logger.Info("publishing pass events", zap.String("channel", notifier.Channel()))
	}

	scheduler, err := scheduling.New(scheduling.NewGreedyStrategy(), opts...)
	if err != nil {
		return err
	}

	logger.Info("replaying scenario", zap.String("name", sc.Name), zap.Int("events", len(sc.Events)))
	outcome, err := replayer.Run(scheduler)
	if err != nil {
		return fmt.Errorf("replay failed: %w", err)
	}

	printOutcome(os.Stdout, outcome)

	if metricsOut != "" {
		return writeMetrics(metricsOut, passMetrics)
	}
	return nil
}

func loadAddresses(path string) (map[string]models.Location, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open address table: %w", err)
	}
	defer f.Close()
	return geocoding.LoadTable(f)
}

func printOutcome(w io.Writer, out *scenario.Outcome) {
	fmt.Fprintln(w, "Timeline:")
	for _, step := range out.Steps {
		fmt.Fprintf(w, "  %s  %-8s %-10s created=%d\n", step.At.Format("2006-01-02 15:04"), step.Kind, step.Subject, len(step.Created))
	}

	fmt.Fprintln(w, "\nAssignments (hours, current traffic):")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  PATIENT\tSEVERITY\tVEHICLE\tHOSPITAL\tPICKUP\tTRANSPORT\tTOTAL")
	for _, d := range out.Assignments {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%.2f\t%.2f\t%.2f\n",
			d.PatientID, d.PatientSeverity, d.VehicleID, d.HospitalID,
			d.EstimatedPickupTime, d.EstimatedTransportTime, d.TotalEstimatedTime)
	}
	tw.Flush()

	if len(out.Pending) > 0 {
		fmt.Fprintf(w, "\nPending: %v\n", out.Pending)
	}
}

func writeMetrics(path string, m *metrics.PassMetrics) error {
	families, err := m.Registry().Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create metrics file: %w", err)
	}
	defer f.Close()

	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(f, mf); err != nil {
			return fmt.Errorf("failed to write metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
