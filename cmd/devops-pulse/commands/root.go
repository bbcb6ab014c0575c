package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"devops-pulse/internal/api"
	"devops-pulse/internal/config"
	"devops-pulse/internal/insights"
	"devops-pulse/internal/logging"
	"devops-pulse/internal/registry"

	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose     bool
	openBrowser bool
	cfg         *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "devops-pulse",
	Short: "DevOps Pulse serves an engineering-metrics dashboard fed by MCP tool servers",
	Long: `An orchestration engine that connects to Azure DevOps MCP tool servers and
aggregates their raw tool responses into sprint metrics (velocity, burndown,
capacity, activity feed), exposed as a dashboard API and a tool-calling chat agent.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(verbose)

		var err error
		cfg, err = config.Load()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Msg("DevOps Pulse starting")
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		reg, err := bootstrapRegistry(ctx)
		if err != nil {
			return err
		}
		defer reg.Close()

		svc := insights.New(reg, cfg.Project, cfg.Team)
		server := api.NewServer(svc, cfg.WebDir, cfg.RequestTimeout)

		httpServer := &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: server.Handler(),
		}

		go func() {
			<-ctx.Done()
			log.Info().Msg("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = httpServer.Shutdown(shutdownCtx)
		}()

		if openBrowser {
			go func() {
				if err := browser.OpenURL("http://localhost" + cfg.HTTPAddr); err != nil {
					log.Warn().Err(err).Msg("Failed to open dashboard in browser")
				}
			}()
		}

		log.Info().Str("addr", cfg.HTTPAddr).Msg("Dashboard API listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

// bootstrapRegistry connects every configured tool server and registers its
// tools. A server that fails to connect is logged and skipped so one dead
// endpoint does not take the whole dashboard down.
func bootstrapRegistry(ctx context.Context) (*registry.Registry, error) {
	reg := registry.New()

	connected := 0
	for _, sc := range cfg.Servers {
		session, err := registry.Connect(ctx, sc)
		if err != nil {
			log.Error().Err(err).Str("server", sc.ID).Msg("Failed to connect tool server")
			continue
		}
		if err := reg.Register(ctx, sc.ID, session); err != nil {
			log.Error().Err(err).Str("server", sc.ID).Msg("Failed to register tool server")
			_ = session.Close()
			continue
		}
		connected++
	}

	if connected == 0 {
		reg.Close()
		return nil, errors.New("no tool servers could be connected")
	}
	return reg, nil
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.Flags().BoolVar(&openBrowser, "open", false, "open the dashboard in a browser after startup")
}
