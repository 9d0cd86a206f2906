package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"callrouter/internal/config"
	"callrouter/internal/enum"
	"callrouter/internal/ifc"
	"callrouter/internal/logger"
	"callrouter/internal/routing"
	"callrouter/internal/sipmsg"
	"callrouter/internal/trace"
	"callrouter/pkg/logging"
)

var (
	configFile string
)

// @title           Call Routing Service API
// @version         1.0
// @description     Application server selection, ENUM translation and BGCF route lookup for SIP requests

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1

// @schemes   http https

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   serviceName,
		Short: "SIP call routing decision service",
		Long:  "Routing Service selects application servers from subscriber filter criteria and translates numbers through ENUM",
		RunE:  serveCmd().RunE,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (required for serve and translate)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(translateCmd())
	rootCmd.AddCommand(evaluateCmd())

	return rootCmd
}

func loadConfig(earlyLog *logging.EarlyLog) (*config.Config, error) {
	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
		if configFile == "" {
			earlyLog.Error("Config file is required. Use --config flag or CONFIG_FILE environment variable")
			return nil, fmt.Errorf("config file is required")
		}
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		earlyLog.Error("Failed to load config: %v", err)
		return nil, err
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the routing service",
		RunE: func(cmd *cobra.Command, args []string) error {
			earlyLog := logging.NewEarlyLog(serviceName)

			cfg, err := loadConfig(earlyLog)
			if err != nil {
				return err
			}

			log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
			if err != nil {
				earlyLog.Error("Failed to init logger: %v", err)
				return err
			}
			defer log.Sync()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			log.InfowCtx(ctx, "Starting Routing Service")

			app := NewApp(cfg, log)
			if err := app.Initialize(ctx); err != nil {
				log.ErrorwCtx(ctx, "Failed to initialize application", "error", err)
				_ = app.Shutdown(context.Background())
				return err
			}

			log.InfowCtx(ctx, "Service running")
			if err := app.Run(ctx); err != nil && err != context.Canceled {
				log.ErrorwCtx(ctx, "Service stopped with error", "error", err)
				return err
			}
			log.InfowCtx(ctx, "Service shutdown complete")
			return nil
		},
	}
}

func translateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "translate <number>",
		Short: "Translate a number with the configured ENUM backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			earlyLog := logging.NewEarlyLog(serviceName)

			cfg, err := loadConfig(earlyLog)
			if err != nil {
				return err
			}

			log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
			if err != nil {
				return err
			}
			defer log.Sync()

			translator, err := enum.NewTranslator(cfg.Enum, cfg.CircuitBreaker, trace.NewLogSink(log), log)
			if err != nil {
				return err
			}

			svc := routing.NewService(cfg.Routing.HomeDomains, routing.Dependencies{Translator: translator}, log)
			uri := svc.TranslateNumber(cmd.Context(), args[0])
			if uri == "" {
				return fmt.Errorf("no ENUM translation for %s", args[0])
			}

			fmt.Fprintln(cmd.OutOrStdout(), uri)
			return nil
		},
	}
}

func evaluateCmd() *cobra.Command {
	var (
		ifcFile      string
		messageFile  string
		sessionCase  string
		unregistered bool
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Print the application servers an iFC document selects for a SIP request",
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := ifc.ParseSessionCase(sessionCase)
			if err != nil {
				return err
			}

			document, err := os.ReadFile(ifcFile)
			if err != nil {
				return fmt.Errorf("failed to read iFC document: %w", err)
			}

			message, err := os.ReadFile(messageFile)
			if err != nil {
				return fmt.Errorf("failed to read SIP message: %w", err)
			}

			req, err := sipmsg.Parse(string(message))
			if err != nil {
				return err
			}

			log, err := logger.New("warn", "console")
			if err != nil {
				return err
			}
			defer log.Sync()

			filters, err := ifc.NewService(nil, log)
			if err != nil {
				return err
			}

			servers := filters.SelectApplicationServers(cmd.Context(), string(document), ifc.MatchContext{
				Request:     req,
				SessionCase: sc,
				Registered:  !unregistered,
			})

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(servers)
		},
	}

	cmd.Flags().StringVar(&ifcFile, "ifc", "", "Path to the iFC XML document")
	cmd.Flags().StringVar(&messageFile, "message", "", "Path to the raw SIP request")
	cmd.Flags().StringVar(&sessionCase, "session-case", "orig", "Session case: orig, term or orig-cdiv")
	cmd.Flags().BoolVar(&unregistered, "unregistered", false, "Evaluate for an unregistered served user")
	_ = cmd.MarkFlagRequired("ifc")
	_ = cmd.MarkFlagRequired("message")

	return cmd
}
