package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/weightandsee/core/internal/adapters/repository"
	"github.com/weightandsee/core/internal/application/services"
	"github.com/weightandsee/core/internal/domain/entities"
	"github.com/weightandsee/core/internal/infrastructure/config"
	"github.com/weightandsee/core/internal/infrastructure/logger"
	"github.com/weightandsee/core/internal/infrastructure/metrics"
	"github.com/weightandsee/core/internal/infrastructure/server"
	"github.com/weightandsee/core/internal/infrastructure/watcher"
	"github.com/weightandsee/core/internal/ports"
)

// Version is overridden at build time with -ldflags.
var Version = "dev"

type globalFlags struct {
	dataDir  string
	logLevel string
}

// app bundles everything a command needs once the store is loaded
type app struct {
	cfg      *config.Config
	logger   *logger.Logger
	store    *services.ExerciseService
	events   *services.EventHub
	registry *prometheus.Registry
}

// NewRootCommand builds the weightandsee command tree
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "weightandsee",
		Short:         "WeightAndSee exercise store",
		Long:          `WeightAndSee keeps a local log of exercises and their progress history, with a small HTTP API for the app front end.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "Directory holding exercises.json (default: per-user config dir)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newServeCommand(flags),
		newListCommand(flags),
		newShowCommand(flags),
		newHistoryCommand(flags),
		newAddCommand(flags),
		newUpdateCommand(flags),
		newRemoveCommand(flags),
		newRemoveEntryCommand(flags),
		newResetCommand(flags),
		newClearCommand(flags),
		newExportCommand(flags),
		newImportCommand(flags),
		newPathCommand(flags),
		newVersionCommand(),
	)

	return rootCmd
}

// newApp loads configuration, applies flag overrides and loads the store.
// Non-serve commands log at warn unless asked otherwise, since their output
// is meant for the terminal.
func newApp(ctx context.Context, flags *globalFlags, quiet bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if flags.dataDir != "" {
		cfg.Storage.DataDir = flags.dataDir
	}
	switch {
	case flags.logLevel != "":
		cfg.Logger.Level = flags.logLevel
	case quiet:
		cfg.Logger.Level = "warn"
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	registry := prometheus.NewRegistry()
	hub := services.NewEventHub()
	repo := repository.NewDocumentRepository(cfg.Storage.FilePath())

	opts := []services.Option{}
	if cfg.Metrics.Enabled {
		opts = append(opts, services.WithMetrics(metrics.NewStoreMetrics(registry)))
	}
	store := services.NewExerciseService(repo, hub, appLogger, opts...)

	hub.SubscribeMessages(func(m entities.Message) {
		switch m.Severity {
		case entities.SeverityError:
			appLogger.Errorw(m.Title, "detail", m.Body)
		case entities.SeverityWarning:
			appLogger.Warnw(m.Title, "detail", m.Body)
		default:
			appLogger.Infow(m.Title, "detail", m.Body)
		}
	})

	if _, err := store.Load(ctx); err != nil {
		appLogger.Warnw("Initial load could not persist the document", "error", err)
	}

	return &app{
		cfg:      cfg,
		logger:   appLogger,
		store:    store,
		events:   hub,
		registry: registry,
	}, nil
}

func (a *app) close() {
	_ = a.logger.Close()
}

func newServeCommand(flags *globalFlags) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the local HTTP API",
		Long:  "Start the local HTTP API and reload the store whenever the file is edited outside the app",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, flags, false)
			if err != nil {
				return err
			}
			defer a.close()

			if cmd.Flags().Changed("host") {
				a.cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}

			return runServer(ctx, a)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Listen host")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port")

	return cmd
}

func runServer(ctx context.Context, a *app) error {
	srv, err := server.New(a.cfg, a.store, a.events, a.registry, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	if a.cfg.Watcher.Enabled {
		w, err := watcher.New(a.store.Path(), a.store, a.cfg.Watcher.Debounce, a.logger)
		if err != nil {
			a.logger.Warnw("File watcher unavailable", "error", err)
		} else if err := w.Start(ctx); err != nil {
			a.logger.Warnw("File watcher unavailable", "error", err)
		} else {
			defer w.Stop()
		}
	}

	a.logger.Infow("Starting WeightAndSee API server",
		"address", a.cfg.Server.GetAddr(),
		"data", a.store.Path(),
		"environment", a.cfg.App.Environment,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(a.cfg.Server.GetAddr())
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newListCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List exercises",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), flags, true)
			if err != nil {
				return err
			}
			defer a.close()

			return printSummaries(cmd.OutOrStdout(), a.store.List())
		},
	}
}

func newShowCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Show one exercise as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), flags, true)
			if err != nil {
				return err
			}
			defer a.close()

			ex, ok := a.store.Exercise(args[0])
			if !ok {
				return fmt.Errorf("%q: %w", args[0], entities.ErrExerciseNotFound)
			}
			return printJSON(cmd.OutOrStdout(), ex)
		},
	}
}

func newHistoryCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "history NAME",
		Short: "Print the history of an exercise, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), flags, true)
			if err != nil {
				return err
			}
			defer a.close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tTIMESTAMP\tVALUE\tUNIT\tSETS\tREPS")
			for i, e := range a.store.History(args[0]) {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\n", i, e.Timestamp, formatValue(e.Value), e.Unit, e.Sets, e.Repetitions)
			}
			return tw.Flush()
		},
	}
}

func newAddCommand(flags *globalFlags) *cobra.Command {
	req := ports.AddExerciseRequest{}

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add or overwrite an exercise",
		Long:  "Add an exercise. An existing exercise with the same name is replaced, history included.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Name = args[0]
			if err := server.NewValidator().Validate(&req); err != nil {
				return fmt.Errorf("invalid exercise: %w", err)
			}

			a, err := newApp(cmd.Context(), flags, true)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.store.AddExercise(cmd.Context(), req); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", req.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.MuscleGroup, "muscle-group", "", "Muscle group")
	cmd.Flags().Float64Var(&req.Value, "value", 0, "Weight or other measured value")
	cmd.Flags().StringVar(&req.Unit, "unit", "", "Unit of value (default \"-\")")
	cmd.Flags().IntVar(&req.Sets, "sets", 0, "Number of sets")
	cmd.Flags().IntVar(&req.Repetitions, "reps", 0, "Repetitions per set")

	return cmd
}

func newUpdateCommand(flags *globalFlags) *cobra.Command {
	req := ports.UpdateExerciseRequest{}

	cmd := &cobra.Command{
		Use:   "update NAME",
		Short: "Record a new measurement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := server.NewValidator().Validate(&req); err != nil {
				return fmt.Errorf("invalid measurement: %w", err)
			}

			a, err := newApp(cmd.Context(), flags, true)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.store.UpdateExercise(cmd.Context(), args[0], req); err != nil {
				return fmt.Errorf("%q: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().Float64Var(&req.Value, "value", 0, "Weight or other measured value")
	cmd.Flags().StringVar(&req.Unit, "unit", "", "Unit of value")
	cmd.Flags().IntVar(&req.Sets, "sets", 0, "Number of sets")
	cmd.Flags().IntVar(&req.Repetitions, "reps", 0, "Repetitions per set")

	return cmd
}

func newRemoveCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "remove NAME",
		Short: "Remove an exercise and its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), flags, true)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.store.RemoveExercise(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("%q: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}
}

func newRemoveEntryCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-entry NAME INDEX",
		Short: "Remove one history entry, counting from the oldest",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid index %q: %w", args[1], err)
			}

			a, err := newApp(cmd.Context(), flags, true)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.store.RemoveHistoryEntry(cmd.Context(), args[0], index); err != nil {
				return fmt.Errorf("%q: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed entry %d of %s\n", index, args[0])
			return nil
		},
	}
}

func newResetCommand(flags *globalFlags) *cobra.Command {
	var sample bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Replace all data with the default exercises",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), flags, true)
			if err != nil {
				return err
			}
			defer a.close()

			if sample {
				err = a.store.ResetToSample(cmd.Context())
			} else {
				err = a.store.ResetToDefault(cmd.Context())
			}
			if err != nil {
				return err
			}
			return printSummaries(cmd.OutOrStdout(), a.store.List())
		},
	}

	cmd.Flags().BoolVar(&sample, "sample", false, "Load several weeks of sample history instead")

	return cmd
}

func newClearCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every exercise",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), flags, true)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.store.DeleteAll(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All exercises deleted")
			return nil
		},
	}
}

func newExportCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "export PATH",
		Short: "Write the document to PATH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), flags, true)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.store.Export(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d exercises to %s\n", len(a.store.Names()), args[0])
			return nil
		},
	}
}

func newImportCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import PATH",
		Short: "Replace the document with the one at PATH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), flags, true)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.store.Import(cmd.Context(), args[0]); err != nil {
				return err
			}
			return printSummaries(cmd.OutOrStdout(), a.store.List())
		},
	}
}

func newPathCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the location of the exercise document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if flags.dataDir != "" {
				cfg.Storage.DataDir = flags.dataDir
			}
			fmt.Fprintln(cmd.OutOrStdout(), cfg.Storage.FilePath())
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print WeightAndSee version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "WeightAndSee %s\n", Version)
		},
	}
}

func printSummaries(w io.Writer, rows []ports.ExerciseSummary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tMUSCLE GROUP\tVALUE\tUNIT\tSETS\tREPS\tLAST UPDATED\tENTRIES")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%d\n",
			r.Name, r.MuscleGroup, formatValue(r.CurrentValue), r.Unit, r.Sets, r.Repetitions, r.LastUpdated, r.Entries)
	}
	return tw.Flush()
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
