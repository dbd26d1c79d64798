package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"autocare-monitor/internal/api"
	"autocare-monitor/internal/catalog"
	"autocare-monitor/internal/config"
	"autocare-monitor/internal/db"
	"autocare-monitor/internal/evaluator"
	"autocare-monitor/internal/logging"
	"autocare-monitor/internal/maintenance"
	"autocare-monitor/internal/models"
	"autocare-monitor/internal/notify"
	"autocare-monitor/internal/parser"
	"autocare-monitor/internal/telemetry"
	"autocare-monitor/internal/tracker"
	"autocare-monitor/internal/wear"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	cfg      *config.Config
	logger   *slog.Logger
	database db.Store

	dbDriver     string
	dbDSN        string
	logLevel     string
	outputFormat string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "autocare",
		Short: "AutoCare Monitor - driving sessions, maintenance projections and wear alerts",
		Long: `A CLI tool for tracking personal vehicles: it turns motion samples into
driving sessions, projects when each maintenance item falls due, and scores
driving wear to decide when to raise a predictive maintenance alert.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = config.Load(); err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("driver") {
				cfg.DBDriver = dbDriver
			}
			if flags.Changed("db") {
				cfg.DBDSN = dbDSN
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			logger = logging.New(os.Stderr, cfg.ServiceName, cfg.LogLevel)
			return cfg.Validate()
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&dbDriver, "driver", "sqlite", "Storage driver (sqlite, postgres)")
	rootCmd.PersistentFlags().StringVar(&dbDSN, "db", "autocare.db", "SQLite path or PostgreSQL connection string")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table, json)")

	rootCmd.AddCommand(serverCmd())
	rootCmd.AddCommand(evaluateCmd())
	rootCmd.AddCommand(segmentCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(wearCmd())
	rootCmd.AddCommand(vehicleCmd())
	rootCmd.AddCommand(serviceCmd())
	rootCmd.AddCommand(sessionCmd())
	rootCmd.AddCommand(catalogCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(generateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initDB opens the configured store
func initDB(ctx context.Context) error {
	var err error
	database, err = db.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	return nil
}

// buildDispatcher assembles the alert chain: the first outlet deduplicates,
// the store and the log always see delivered alerts.
func buildDispatcher(ctx context.Context) (notify.Dispatcher, func(), error) {
	cooldown := cfg.AlertCooldown()
	logOut := notify.NewLogDispatcher(logger)

	if cfg.RedisAddr == "" {
		logger.Info("redis not configured, deduplicating alerts in memory")
		return notify.NewMulti(database, notify.NewCooldown(logOut, cooldown)), func() {}, nil
	}

	rd, err := notify.NewRedisDispatcher(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cooldown)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("publishing alerts to redis", "addr", cfg.RedisAddr)
	return notify.NewMulti(database, rd, logOut), func() { rd.Close() }, nil
}

func newEvaluator(dispatcher notify.Dispatcher) *evaluator.Evaluator {
	e := evaluator.New(database, dispatcher, logger)
	e.Workers = cfg.EvalWorkers
	e.Interval = cfg.EvalInterval()
	return e
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
}

func today() time.Time {
	y, m, d := time.Now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return today(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

func optInt(p *int) string {
	if p == nil {
		return "-"
	}
	return strconv.Itoa(*p)
}

// serverCmd starts the REST API server and the background evaluator
func serverCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				cfg.HTTPPort = port
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := initDB(ctx); err != nil {
				return err
			}
			defer database.Close()

			dispatcher, closeDispatcher, err := buildDispatcher(ctx)
			if err != nil {
				return err
			}
			defer closeDispatcher()

			var opts []tracker.Option
			if !cfg.PurgeSamples {
				opts = append(opts, tracker.KeepSamples())
			}
			trips := tracker.NewManager(database, logger, opts...)
			eval := newEvaluator(dispatcher)

			go eval.Run(ctx)

			server := api.NewServer(database, trips, eval, logger)
			httpServer := &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
				Handler:           server.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("api server listening", "addr", httpServer.Addr, "driver", cfg.DBDriver)
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case <-ctx.Done():
				logger.Info("shutting down")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("http shutdown failed", "error", err)
			}
			trips.StopAll(shutdownCtx)
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Server port")
	return cmd
}

// evaluateCmd runs the evaluation pass once, or on the configured interval
func evaluateCmd() *cobra.Command {
	var loop bool
	var vehicleID string

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score every vehicle and dispatch maintenance alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := initDB(ctx); err != nil {
				return err
			}
			defer database.Close()

			dispatcher, closeDispatcher, err := buildDispatcher(ctx)
			if err != nil {
				return err
			}
			defer closeDispatcher()
			eval := newEvaluator(dispatcher)

			if loop {
				eval.Run(ctx)
				return nil
			}

			if vehicleID != "" {
				res, err := eval.EvaluateVehicle(ctx, vehicleID)
				if err != nil {
					return err
				}
				if outputFormat == "json" {
					return printJSON(res)
				}
				fmt.Printf("%s: score %d, alert %v, delivered %v\n",
					res.VehicleID, res.Wear.Score, res.Alert != nil, res.Delivered)
				return nil
			}

			report, err := eval.RunOnce(ctx)
			if err != nil {
				return err
			}
			if outputFormat == "json" {
				return printJSON(report)
			}
			fmt.Printf("Evaluated %d vehicles in %v, %d alerts delivered\n",
				report.Evaluated, report.Duration.Round(time.Millisecond), report.Alerts)
			for _, id := range report.FailedVehicles() {
				fmt.Printf("  failed %s: %v\n", id, report.Failures[id])
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&loop, "loop", false, "Keep evaluating on the configured interval")
	cmd.Flags().StringVarP(&vehicleID, "vehicle", "V", "", "Evaluate a single vehicle")
	return cmd
}

// segmentCmd turns a sample file into one driving session per vehicle
func segmentCmd() *cobra.Command {
	var format string
	var save bool

	cmd := &cobra.Command{
		Use:   "segment [file]",
		Short: "Segment a sample file into driving sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := args[0]
			if format == "" {
				format = parser.FormatFromPath(file)
			}

			samples, err := parser.NewParser(format, logger).ParseFile(file)
			if err != nil {
				return err
			}

			byVehicle := make(map[string][]models.RawSample)
			rejected := 0
			for i := range samples {
				if errs := parser.ValidateSample(&samples[i]); len(errs) > 0 {
					rejected++
					continue
				}
				byVehicle[samples[i].VehicleID] = append(byVehicle[samples[i].VehicleID], samples[i])
			}
			if rejected > 0 {
				logger.Warn("rejected invalid samples", "file", file, "count", rejected)
			}

			ids := make([]string, 0, len(byVehicle))
			for id := range byVehicle {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			var sessions []models.DrivingSession
			for _, id := range ids {
				vs := byVehicle[id]
				sort.SliceStable(vs, func(i, j int) bool { return vs[i].Timestamp.Before(vs[j].Timestamp) })
				s, ok := telemetry.SegmentSession(vs, vs[0].Timestamp, vs[len(vs)-1].Timestamp)
				if !ok {
					logger.Warn("too few samples for a session", "vehicle_id", id, "samples", len(vs))
					continue
				}
				sessions = append(sessions, s)
			}

			if save && len(sessions) > 0 {
				ctx := cmd.Context()
				if err := initDB(ctx); err != nil {
					return err
				}
				defer database.Close()
				for i := range sessions {
					if err := database.FinalizeTrip(ctx, &sessions[i], false); err != nil {
						return fmt.Errorf("save session for %s: %w", sessions[i].VehicleID, err)
					}
				}
			}

			if outputFormat == "json" {
				return printJSON(sessions)
			}
			w := newTable()
			fmt.Fprintln(w, "VEHICLE\tSTART\tDURATION\tKM\tMAX KM/H\tAVG KM/H\tACCEL\tBRAKE")
			for _, s := range sessions {
				fmt.Fprintf(w, "%s\t%s\t%v\t%.2f\t%.1f\t%.1f\t%d\t%d\n",
					s.VehicleID, s.StartTime.Format(time.RFC3339), s.Duration(),
					s.DistanceKm(), s.MaxSpeed*3.6, s.AverageSpeed*3.6, s.Accelerations, s.Brakings)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "File format (csv, json, log); guessed from the extension when empty")
	cmd.Flags().BoolVar(&save, "save", false, "Store the sessions")
	return cmd
}

// snapshotResult loads one vehicle and evaluates it without dispatching
func snapshotResult(ctx context.Context, vehicleID string) (*models.VehicleSnapshot, *evaluator.Result, error) {
	if err := initDB(ctx); err != nil {
		return nil, nil, err
	}
	defer database.Close()

	snap, err := database.Snapshot(ctx, vehicleID)
	if err != nil {
		return nil, nil, err
	}
	res := evaluator.Evaluate(*snap, catalog.Default(), time.Now().UTC(), wear.Window)
	return snap, res, nil
}

// projectCmd prints the maintenance projection for one vehicle
func projectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "project [vehicle]",
		Short: "Project when each maintenance item falls due",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, res, err := snapshotResult(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if outputFormat == "json" {
				return printJSON(res.Projections)
			}

			fmt.Printf("Vehicle %s at %d km (catalog %s)\n\n", res.VehicleID, res.CurrentKm, catalog.Version)
			w := newTable()
			fmt.Fprintln(w, "ITEM\tNEXT KM\tREMAINING KM\tNEXT DATE\tREMAINING DAYS\tSTATUS")
			for _, p := range res.Projections {
				next := "-"
				if p.NextDate != nil {
					next = p.NextDate.Format("2006-01-02")
				}
				status := string(p.Status)
				if maintenance.IsUrgent(p) {
					status += " !"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					p.ItemType, optInt(p.NextKm), optInt(p.RemainingKm), next, optInt(p.RemainingDays), status)
			}
			return w.Flush()
		},
	}
}

// wearCmd prints the wear score and alert decision for one vehicle
func wearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wear [vehicle]",
		Short: "Score recent driving wear",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, res, err := snapshotResult(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if outputFormat == "json" {
				return printJSON(res)
			}

			ws := res.Wear
			fmt.Printf("Wear score for %s\n", res.VehicleID)
			fmt.Printf("  Score:           %d/100\n", ws.Score)
			fmt.Printf("  Recent sessions: %d (%.1f km)\n", ws.Sessions, ws.DistanceKm)
			fmt.Printf("  Events per km:   %.2f\n", ws.EventsPerKm)
			fmt.Printf("  Avg speed:       %.1f km/h\n", ws.AvgSpeedKmh)
			fmt.Printf("  Due soon items:  %d\n", ws.DueSoonItems)
			if res.Alert != nil {
				fmt.Printf("  Alert:           %s\n", res.Alert.Type)
			} else {
				fmt.Println("  Alert:           none")
			}
			return nil
		},
	}
}

// vehicleCmd manages vehicles
func vehicleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vehicle",
		Short: "Vehicle management commands",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all vehicles",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initDB(cmd.Context()); err != nil {
				return err
			}
			defer database.Close()

			vehicles, err := database.ListVehicles(cmd.Context())
			if err != nil {
				return fmt.Errorf("error listing vehicles: %w", err)
			}
			if outputFormat == "json" {
				return printJSON(vehicles)
			}
			if len(vehicles) == 0 {
				fmt.Println("No vehicles found. Use 'autocare vehicle add' to register one.")
				return nil
			}

			w := newTable()
			fmt.Fprintln(w, "ID\tNAME\tPLATE\tFUEL\tBASELINE KM\tREGISTERED")
			for _, v := range vehicles {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
					v.ID, v.Name, v.LicensePlate, v.FuelType, v.BaselineKm, v.RegisteredAt.Format("2006-01-02"))
			}
			return w.Flush()
		},
	}

	var id, name, plate, fuel, registered string
	var baseline int
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Register a vehicle",
		RunE: func(cmd *cobra.Command, args []string) error {
			ft, err := models.ParseFuelType(fuel)
			if err != nil {
				return err
			}
			regDate, err := parseDay(registered)
			if err != nil {
				return err
			}
			if name == "" || plate == "" {
				return fmt.Errorf("--name and --plate are required")
			}
			if baseline < 0 {
				return fmt.Errorf("--baseline cannot be negative")
			}
			if id == "" {
				id = uuid.NewString()
			}

			if err := initDB(cmd.Context()); err != nil {
				return err
			}
			defer database.Close()

			v := models.Vehicle{
				ID:           id,
				Name:         name,
				LicensePlate: plate,
				FuelType:     ft,
				BaselineKm:   baseline,
				RegisteredAt: regDate,
			}
			if err := database.InsertVehicle(cmd.Context(), &v); err != nil {
				return err
			}
			fmt.Printf("Registered vehicle %s\n", v.ID)
			return nil
		},
	}
	addCmd.Flags().StringVar(&id, "id", "", "Vehicle ID (generated when empty)")
	addCmd.Flags().StringVar(&name, "name", "", "Display name")
	addCmd.Flags().StringVar(&plate, "plate", "", "License plate")
	addCmd.Flags().StringVar(&fuel, "fuel", "gasoline", "Fuel type (gasoline, diesel, hybrid, electric)")
	addCmd.Flags().IntVar(&baseline, "baseline", 0, "Odometer reading at registration, km")
	addCmd.Flags().StringVar(&registered, "registered", "", "Registration date YYYY-MM-DD (today when empty)")

	deleteCmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a vehicle with its history and sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initDB(cmd.Context()); err != nil {
				return err
			}
			defer database.Close()

			if err := database.DeleteVehicle(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted vehicle %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(listCmd, addCmd, deleteCmd)
	return cmd
}

// serviceCmd manages the maintenance history
func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Maintenance history commands",
	}

	var item, date string
	var odometer int
	var cost float64
	addCmd := &cobra.Command{
		Use:   "add [vehicle]",
		Short: "Log a completed maintenance job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !catalog.IsKnown(item) {
				return fmt.Errorf("unknown item type %q, see 'autocare catalog'", item)
			}
			if odometer < 0 || cost < 0 {
				return fmt.Errorf("--odometer and --cost cannot be negative")
			}
			day, err := parseDay(date)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if err := initDB(ctx); err != nil {
				return err
			}
			defer database.Close()

			if _, err := database.GetVehicle(ctx, args[0]); err != nil {
				return err
			}
			rec := models.ServiceRecord{
				VehicleID:   args[0],
				ItemType:    item,
				ServiceDate: day,
				OdometerKm:  odometer,
				Cost:        cost,
			}
			if err := database.InsertServiceRecord(ctx, &rec); err != nil {
				return err
			}
			fmt.Printf("Logged %s for %s (record %d)\n", item, args[0], rec.ID)
			return nil
		},
	}
	addCmd.Flags().StringVar(&item, "item", "", "Catalog item type, e.g. engine_oil")
	addCmd.Flags().StringVar(&date, "date", "", "Service date YYYY-MM-DD (today when empty)")
	addCmd.Flags().IntVar(&odometer, "odometer", 0, "Odometer at service, km")
	addCmd.Flags().Float64Var(&cost, "cost", 0, "Cost of the job")

	listCmd := &cobra.Command{
		Use:   "list [vehicle]",
		Short: "List the maintenance history of a vehicle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := initDB(ctx); err != nil {
				return err
			}
			defer database.Close()

			records, err := database.ListServiceRecords(ctx, args[0])
			if err != nil {
				return err
			}
			if outputFormat == "json" {
				return printJSON(records)
			}
			w := newTable()
			fmt.Fprintln(w, "ID\tITEM\tDATE\tODOMETER KM\tCOST")
			for _, r := range records {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%.2f\n",
					r.ID, r.ItemType, r.ServiceDate.Format("2006-01-02"), r.OdometerKm, r.Cost)
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(addCmd, listCmd)
	return cmd
}

// sessionCmd lists and removes driving sessions
func sessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Driving session commands",
	}

	var startTime, endTime string
	var limit, offset int
	listCmd := &cobra.Command{
		Use:   "list [vehicle]",
		Short: "List driving sessions, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := models.SessionQuery{Limit: limit, Offset: offset}
			if len(args) == 1 {
				q.VehicleID = args[0]
			}
			if startTime != "" {
				t, err := time.Parse(time.RFC3339, startTime)
				if err != nil {
					return fmt.Errorf("invalid start time format (use RFC3339): %w", err)
				}
				q.StartTime = t
			}
			if endTime != "" {
				t, err := time.Parse(time.RFC3339, endTime)
				if err != nil {
					return fmt.Errorf("invalid end time format (use RFC3339): %w", err)
				}
				q.EndTime = t
			}

			ctx := cmd.Context()
			if err := initDB(ctx); err != nil {
				return err
			}
			defer database.Close()

			start := time.Now()
			sessions, err := database.ListSessions(ctx, q)
			if err != nil {
				return fmt.Errorf("query error: %w", err)
			}
			if outputFormat == "json" {
				return printJSON(sessions)
			}

			fmt.Printf("Found %d sessions (query time: %v)\n\n", len(sessions), time.Since(start))
			w := newTable()
			fmt.Fprintln(w, "ID\tVEHICLE\tSTART\tDURATION\tKM\tMAX KM/H\tACCEL\tBRAKE")
			for _, s := range sessions {
				fmt.Fprintf(w, "%d\t%s\t%s\t%v\t%.2f\t%.1f\t%d\t%d\n",
					s.ID, s.VehicleID, s.StartTime.Format("2006-01-02 15:04:05"), s.Duration(),
					s.DistanceKm(), s.MaxSpeed*3.6, s.Accelerations, s.Brakings)
			}
			return w.Flush()
		},
	}
	listCmd.Flags().StringVarP(&startTime, "start", "s", "", "Sessions starting at or after (RFC3339)")
	listCmd.Flags().StringVarP(&endTime, "end", "e", "", "Sessions starting at or before (RFC3339)")
	listCmd.Flags().IntVarP(&limit, "limit", "l", 100, "Maximum sessions to return")
	listCmd.Flags().IntVar(&offset, "offset", 0, "Sessions to skip")

	deleteCmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a driving session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid session id %q", args[0])
			}
			if err := initDB(cmd.Context()); err != nil {
				return err
			}
			defer database.Close()

			if err := database.DeleteSession(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Printf("Deleted session %d\n", id)
			return nil
		},
	}

	cmd.AddCommand(listCmd, deleteCmd)
	return cmd
}

// catalogCmd prints the maintenance catalog
func catalogCmd() *cobra.Command {
	var fuel string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Show the maintenance catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries := catalog.Default()
			if fuel != "" {
				ft, err := models.ParseFuelType(fuel)
				if err != nil {
					return err
				}
				entries = catalog.ForFuel(entries, ft)
			}
			if outputFormat == "json" {
				return printJSON(entries)
			}

			fmt.Printf("Maintenance catalog %s\n\n", catalog.Version)
			w := newTable()
			fmt.Fprintln(w, "ITEM\tEVERY KM\tEVERY MONTHS\tDESCRIPTION")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.ItemType, optInt(e.IntervalKm), optInt(e.IntervalMonths), e.Description)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&fuel, "fuel", "", "Only items that apply to this fuel type")
	return cmd
}

// statsCmd shows database statistics
func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initDB(cmd.Context()); err != nil {
				return err
			}
			defer database.Close()

			stats, err := database.GetStats(cmd.Context())
			if err != nil {
				return fmt.Errorf("error getting stats: %w", err)
			}
			if outputFormat == "json" {
				return printJSON(stats)
			}

			fmt.Println("AutoCare Monitor Statistics")
			fmt.Println("===========================")
			fmt.Printf("  Vehicles:         %v\n", stats["total_vehicles"])
			fmt.Printf("  Service records:  %v\n", stats["total_service_records"])
			fmt.Printf("  Sessions:         %v\n", stats["total_sessions"])
			fmt.Printf("  Pending samples:  %v\n", stats["pending_samples"])
			fmt.Printf("  Alerts:           %v\n", stats["total_alerts"])
			fmt.Printf("  Database:         %s (%s)\n", cfg.DBDSN, cfg.DBDriver)
			return nil
		},
	}
}
