package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/trytheo/outreach/internal/config"
	"github.com/trytheo/outreach/internal/llm"
	"github.com/trytheo/outreach/internal/llm/gemini"
	"github.com/trytheo/outreach/internal/orgio"
	"github.com/trytheo/outreach/internal/outreach"
	"github.com/trytheo/outreach/internal/server"
	"github.com/trytheo/outreach/internal/session"
)

var (
	flagConfig string
	flagDebug  bool
)

func main() {
	root := &cobra.Command{
		Use:           "outreach",
		Short:         "Cold-outreach email generation pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to YAML config file (default: $CONFIG_FILE or config.yaml)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")

	root.AddCommand(newRunCmd(), newServeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	var inputPath, outputPath, templatePath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate emails for a local organizations CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputPath == "" || outputPath == "" || templatePath == "" {
				return fmt.Errorf("run requires --input, --output and --template")
			}

			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if err := cfg.ValidateForGeneration(); err != nil {
				return err
			}

			ctx := cmd.Context()
			orch, validator, err := buildPipeline(ctx, cfg, logger)
			if err != nil {
				return err
			}

			template, err := os.ReadFile(templatePath)
			if err != nil {
				return fmt.Errorf("read template: %w", err)
			}

			inF, err := os.Open(inputPath)
			if err != nil {
				return err
			}
			defer func() { _ = inF.Close() }()

			orgs, _, err := orgio.ReadOrganizations(inF, validator)
			if err != nil {
				return err
			}
			logger.Info("starting generation run",
				zap.Int("organizations", len(orgs)),
				zap.String("model", cfg.Gemini.Model))

			progress := func(ev outreach.ProgressEvent) {
				logger.Info("progress",
					zap.Int("org", ev.OrgIndex),
					zap.Int("total", ev.OrgTotal),
					zap.String("step", ev.Step),
					zap.String("detail", ev.Detail))
			}

			results := orch.Run(ctx, orgs, string(template), progress)
			rows := outreach.FlattenResults(results)

			outF, err := os.Create(outputPath)
			if err != nil {
				return err
			}
			defer func() { _ = outF.Close() }()
			if err := orgio.WriteExport(outF, rows); err != nil {
				return err
			}
			if err := outF.Close(); err != nil {
				return err
			}

			summary := outreach.Summarize(rows)
			logger.Info("run complete",
				zap.Int("emails", summary.TotalEmails),
				zap.Int("flagged", summary.FlaggedCount),
				zap.Int("avg_confidence", summary.AvgConfidence))
			return nil
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "Input organizations CSV path")
	cmd.Flags().StringVar(&outputPath, "output", "", "Output export CSV path")
	cmd.Flags().StringVar(&templatePath, "template", "", "Email template text file path")
	return cmd
}

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the upload/generate/review HTTP app",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if err := cfg.ValidateForGeneration(); err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx := cmd.Context()
			orch, validator, err := buildPipeline(ctx, cfg, logger)
			if err != nil {
				return err
			}

			store, err := session.NewStore(filepath.Join(cfg.Server.DataDir, "sessions"))
			if err != nil {
				return err
			}

			srv := server.New(store, orch, validator, logger)
			logger.Info("listening",
				zap.String("addr", cfg.Server.Addr),
				zap.String("model", cfg.Gemini.Model))
			return http.ListenAndServe(cfg.Server.Addr, srv.Handler())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	return cmd
}

func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, nil, err
	}

	zc := zap.NewProductionConfig()
	if flagDebug {
		zc = zap.NewDevelopmentConfig()
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := zc.Build()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// buildPipeline wires the live Gemini capability into the orchestrator.
func buildPipeline(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*outreach.Orchestrator, *outreach.Validator, error) {
	client, err := gemini.New(ctx, gemini.Config{
		APIKey:  cfg.Gemini.APIKey,
		Model:   cfg.Gemini.Model,
		BaseURL: cfg.Gemini.BaseURL,
	})
	if err != nil {
		return nil, nil, err
	}
	gen := llm.WithRetry(client, llm.RetryOptions{
		MaxRetries:     cfg.Gemini.TransportRetries,
		RequestTimeout: cfg.Gemini.RequestTimeout,
		RateLimitRPS:   cfg.Gemini.RateLimitRPS,
	})

	validator := outreach.NewValidator(cfg.Pipeline.MinContactConfidence)
	researcher := outreach.NewResearcher(gen, validator, cfg.Pipeline.MaxContactsPerOrg, cfg.Heuristics, logger)
	writer := outreach.NewWriter(gen, outreach.WriterConfig{
		MaxTokens:   cfg.Gemini.MaxTokens,
		Temperature: cfg.Gemini.Temperature,
		Sender:      cfg.Sender,
	}, logger)
	qc := outreach.NewQualityControl(cfg.Heuristics, cfg.Pipeline.MinConfidenceScore)

	orch := outreach.NewOrchestrator(researcher, writer, qc, outreach.Options{
		MaxRetries: cfg.Pipeline.MaxRetries,
		RetryDelay: cfg.Pipeline.RetryDelay,
		FastPath:   cfg.Pipeline.FastPathEnabled(),
	}, logger)
	return orch, validator, nil
}
