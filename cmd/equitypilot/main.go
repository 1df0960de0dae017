// EquityPilot — LLM-backed stock analysis pipeline.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/raghavkal/equitypilot/api"
	"github.com/raghavkal/equitypilot/internal/config"
	"github.com/raghavkal/equitypilot/internal/llm"
	"github.com/raghavkal/equitypilot/internal/logging"
	"github.com/raghavkal/equitypilot/internal/marketdata"
	"github.com/raghavkal/equitypilot/internal/news"
	"github.com/raghavkal/equitypilot/internal/pipeline"
	"github.com/raghavkal/equitypilot/internal/report"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var (
	cfg *config.Config
	log *zap.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "equitypilot",
	Short: "EquityPilot — LLM-backed stock analysis pipeline",
	Long: `EquityPilot answers "should I buy, hold, or sell this stock?"
by running a staged analysis pipeline: a coordinator plans the work,
financial and sentiment agents gather and judge the evidence, and a
synthesizer produces the final recommendation with confidence and
reasoning.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := cfg.Logging.Level
		if override, _ := cmd.Flags().GetString("log-level"); override != "" {
			level = override
		}
		log, err = logging.New(level, cfg.Logging.Format)
		if err != nil {
			return fmt.Errorf("failed to set up logging: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
}

// buildPipeline assembles the analysis pipeline from the loaded config.
func buildPipeline() (*pipeline.Pipeline, error) {
	var (
		provider llm.Provider
		err      error
	)
	providerOpts := []llm.OpenAIOption{}
	if cfg.LLM.Model != "" {
		providerOpts = append(providerOpts, llm.WithModel(cfg.LLM.Model))
	}
	switch cfg.LLM.Provider {
	case "openai":
		provider, err = llm.NewOpenAIProvider(cfg.LLM.OpenAIKey, providerOpts...)
	case "groq", "":
		provider, err = llm.NewGroqProvider(cfg.LLM.GroqKey, providerOpts...)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("llm setup failed: %w", err)
	}

	completer := llm.NewCompleter(provider,
		time.Duration(cfg.LLM.TimeoutSec)*time.Second, cfg.LLM.MaxRetries)

	market := marketdata.NewClient(
		marketdata.WithCacheTTL(time.Duration(cfg.Market.CacheTTL) * time.Second))

	var fetcher pipeline.NewsFetcher
	switch cfg.News.Provider {
	case "rss":
		fetcher = news.NewRSSClient()
	case "newsapi", "":
		fetcher, err = news.NewNewsAPIClient(cfg.News.NewsAPIKey,
			news.WithMaxResults(cfg.News.MaxResults))
		if err != nil {
			return nil, fmt.Errorf("news setup failed: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown news provider %q", cfg.News.Provider)
	}

	return pipeline.New(market, fetcher, completer, pipeline.Config{
		Parallel: cfg.Pipeline.Parallel,
		ChatOptions: &llm.ChatOptions{
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		},
	}, log), nil
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("EquityPilot %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Analyze Command ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze [ticker] [question...]",
	Short: "Run a full analysis on a stock",
	Long: `Run the complete analysis pipeline on a stock and print the
recommendation report. Any words after the ticker are treated as your
question, e.g.:

  equitypilot analyze AAPL
  equitypilot analyze TSLA is it too risky right now`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ticker := strings.ToUpper(strings.TrimSpace(args[0]))
		query := strings.Join(args[1:], " ")
		if query == "" {
			query = fmt.Sprintf("Should I invest in %s?", ticker)
		}

		pipe, err := buildPipeline()
		if err != nil {
			return err
		}

		fmt.Printf("🔍 Analyzing %s — %q\n", ticker, query)
		start := time.Now()
		state := pipe.Run(cmd.Context(), ticker, query)
		fmt.Printf("   Done in %s\n", report.FormatDuration(time.Since(start)))

		out, err := report.GenerateText(state)
		if err != nil {
			return err
		}
		fmt.Println(out)

		if save, _ := cmd.Flags().GetBool("save"); save {
			path, err := report.SaveSnapshot(state, ".")
			if err != nil {
				return fmt.Errorf("failed to save analysis: %w", err)
			}
			fmt.Printf("💾 Saved analysis to %s\n", path)
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().Bool("save", false, "save the full analysis as JSON in the current directory")
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe, err := buildPipeline()
		if err != nil {
			return err
		}

		srv := api.NewServer(cfg, pipe, version, log)
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		fmt.Printf("🌐 Starting EquityPilot API server on %s\n", addr)
		return srv.ListenAndServe(addr)
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  EquityPilot — System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Println()

		fmt.Println("  Configuration:")
		model := cfg.LLM.Model
		if model == "" {
			model = "(provider default)"
		}
		fmt.Printf("    LLM Provider:  %s (model: %s)\n", cfg.LLM.Provider, model)
		fmt.Printf("    News Source:   %s\n", cfg.News.Provider)
		fmt.Printf("    Pipeline:      parallel=%t\n", cfg.Pipeline.Parallel)
		fmt.Printf("    API Server:    %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Println()

		fmt.Println("  API Keys:")
		keys := config.CheckAPIKeys(cfg)
		for _, k := range keys {
			status := "❌ not set"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-25s %s\n", k.Name+":", status)
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
