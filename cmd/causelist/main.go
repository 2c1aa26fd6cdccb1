// Command causelist runs the cause list lookups and fetches from a shell,
// printing JSON. It reads the same configuration as the API server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/court-causelist/backend/internal/cache/redis"
	"github.com/court-causelist/backend/internal/causelist"
	"github.com/court-causelist/backend/internal/scraper"
	"github.com/court-causelist/backend/internal/storage/sqlite"
	"github.com/court-causelist/backend/pkg/config"
	appLogger "github.com/court-causelist/backend/pkg/logger"
)

type app struct {
	site    string
	driver  string
	timeout time.Duration

	service *causelist.Service
	store   *sqlite.Client
}

func main() {
	a := &app{}

	root := &cobra.Command{
		Use:           "causelist",
		Short:         "Look up courts and fetch daily cause lists",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.store != nil {
				a.store.Close()
			}
			appLogger.Sync()
		},
	}
	root.PersistentFlags().StringVar(&a.site, "site", "", "court website (ecourts, delhi); defaults to scraper.defaultSite")
	root.PersistentFlags().StringVar(&a.driver, "driver", "", "override scraper.driver (chrome, mock)")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 10*time.Minute, "give up after this long")

	root.AddCommand(
		&cobra.Command{
			Use:   "states",
			Short: "List states",
			Args:  cobra.NoArgs,
			RunE: a.run(func(ctx context.Context, _ []string) (any, error) {
				return a.service.ListStates(ctx, a.site)
			}),
		},
		&cobra.Command{
			Use:   "districts STATE",
			Short: "List the districts of a state",
			Args:  cobra.ExactArgs(1),
			RunE: a.run(func(ctx context.Context, args []string) (any, error) {
				return a.service.ListDistricts(ctx, a.site, args[0])
			}),
		},
		&cobra.Command{
			Use:   "courts STATE DISTRICT",
			Short: "List the court complexes of a district",
			Args:  cobra.ExactArgs(2),
			RunE: a.run(func(ctx context.Context, args []string) (any, error) {
				return a.service.ListCourtComplexes(ctx, a.site, args[0], args[1])
			}),
		},
		&cobra.Command{
			Use:   "judges STATE DISTRICT COURT_COMPLEX",
			Short: "List the judges of a court complex",
			Args:  cobra.ExactArgs(3),
			RunE: a.run(func(ctx context.Context, args []string) (any, error) {
				return a.service.ListJudges(ctx, a.site, scraper.Path{
					State: args[0], District: args[1], CourtComplex: args[2],
				})
			}),
		},
		a.fetchCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (a *app) fetchCommand() *cobra.Command {
	var judge, caseType string

	cmd := &cobra.Command{
		Use:   "fetch STATE DISTRICT COURT_COMPLEX DATE",
		Short: "Fetch the cause lists of a court complex for a date (YYYY-MM-DD)",
		Args:  cobra.ExactArgs(4),
		RunE: a.run(func(ctx context.Context, args []string) (any, error) {
			return a.service.Fetch(ctx, causelist.FetchRequest{
				State:        args[0],
				District:     args[1],
				CourtComplex: args[2],
				Date:         args[3],
				CourtName:    judge,
				CaseType:     caseType,
				Site:         a.site,
			})
		}),
	}
	cmd.Flags().StringVar(&judge, "judge", "", "only judges whose name contains this text")
	cmd.Flags().StringVar(&caseType, "case-type", "both", "civil, criminal or both")
	return cmd
}

func (a *app) setup() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.driver != "" {
		cfg.Scraper.Driver = a.driver
	}

	// Logs go to stderr so stdout stays machine readable.
	if err := appLogger.Init(cfg.Logging.Level, "console", "stderr"); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	a.store, err = sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		return err
	}
	if err := a.store.InitSchema(); err != nil {
		return err
	}

	var cache redis.Cache = redis.Nop{}
	if cfg.Redis.Enabled {
		client, err := redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL())
		if err != nil {
			appLogger.Warn("Redis unavailable, metadata caching disabled", zap.Error(err))
		} else {
			cache = client
		}
	}

	a.service, err = causelist.NewServiceFromConfig(cfg, cache, a.store, appLogger.Named("causelist"))
	return err
}

func (a *app) run(fn func(ctx context.Context, args []string) (any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		ctx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()

		out, err := fn(ctx, args)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
}
