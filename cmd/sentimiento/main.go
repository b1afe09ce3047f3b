package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tsawler/sentimiento"
	"github.com/tsawler/sentimiento/internal/config"
	"github.com/tsawler/sentimiento/internal/secondary"
	"github.com/tsawler/sentimiento/internal/server"
)

var version = "dev"

var (
	verbose      bool
	configPath   string
	lexiconPath  string
	patternsPath string

	cfg    *config.Config
	logger *logrus.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "sentimiento",
	Short:   "Rule-based Spanish sentiment and emotion analysis",
	Long:    "sentimiento scores Spanish text with an emotion lexicon and idiomatic phrase patterns.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		// .env is optional
		_ = godotenv.Load()

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := cfg.ApplyEnv(os.Getenv); err != nil {
			return err
		}
		if lexiconPath != "" {
			cfg.Tables.Lexicon = lexiconPath
		}
		if patternsPath != "" {
			cfg.Tables.Patterns = patternsPath
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger, err = cfg.Logging.NewLogger(os.Stderr)
		if err != nil {
			return err
		}
		if path != "" {
			logger.WithField("path", path).Debug("loaded config")
		}
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&lexiconPath, "lexicon", "", "Lexicon file (JSON or YAML)")
	rootCmd.PersistentFlags().StringVar(&patternsPath, "patterns", "", "Patterns file (JSON or YAML)")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(sentencesCmd)
	rootCmd.AddCommand(gapsCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("sentimiento", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/sentimiento/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to point at custom tables or a secondary analyzer.")
		return nil
	},
}

// newEngine builds an engine from the configured tables.
func newEngine() (*sentimiento.Engine, error) {
	tables, err := sentimiento.LoadTables(cfg.Tables.Lexicon, cfg.Tables.Patterns, logger)
	if err != nil {
		return nil, err
	}
	return sentimiento.NewEngine(
		sentimiento.WithTables(tables),
		sentimiento.WithLogger(logger),
		sentimiento.WithLanguage(cfg.Analysis.Language),
	)
}

// newHybrid wires the engine to the configured secondary analyzer, if any.
func newHybrid() (*sentimiento.Hybrid, error) {
	engine, err := newEngine()
	if err != nil {
		return nil, err
	}
	h := sentimiento.NewHybrid(engine, nil)
	h.Threshold = cfg.Analysis.ConfidenceThreshold
	h.Logger = logger

	client := secondary.NewClient(cfg.Secondary.URL, cfg.Secondary.Timeout, logger)
	if client.Enabled() {
		h.Secondary = client
		logger.WithField("url", cfg.Secondary.URL).Info("secondary analyzer enabled")
	}
	return h, nil
}

// inputText joins args, or reads stdin when there are none.
func inputText(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(bufio.NewReader(stdin))
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// --- analyze command ---

var (
	asJSON  bool
	explain bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [text...]",
	Short: "Analyze text from arguments or stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := inputText(args, cmd.InOrStdin())
		if err != nil {
			return err
		}
		h, err := newHybrid()
		if err != nil {
			return err
		}

		res := h.Analyze(cmd.Context(), text)
		out := cmd.OutOrStdout()

		if asJSON {
			if explain {
				return printJSON(out, struct {
					sentimiento.HybridResult
					Breakdown sentimiento.Breakdown `json:"breakdown"`
				}{res, h.Engine.Breakdown(text)})
			}
			return printJSON(out, res)
		}

		printResult(out, res.AnalysisResult)
		if res.Escalated {
			fmt.Fprintln(out, "  Escalated:      yes")
		}
		if explain {
			printBreakdown(out, h.Engine.Breakdown(text))
		}
		return nil
	},
}

func printResult(w io.Writer, res sentimiento.AnalysisResult) {
	fmt.Fprintf(w, "Classification: %s\n", res.Classification)
	fmt.Fprintf(w, "  Score:          %d\n", res.Score)
	fmt.Fprintf(w, "  Intensity:      %s\n", res.Intensity)
	fmt.Fprintf(w, "  Confidence:     %.2f\n", res.Confidence)
	if dom := res.DominantEmotion(); dom != "" {
		fmt.Fprintf(w, "  Emotion:        %s (%d%%)\n", dom, res.Emotions[dom])
	}
	if len(res.Keywords) > 0 {
		fmt.Fprintf(w, "  Keywords:       %s\n", strings.Join(res.Keywords, ", "))
	}
	if res.IsAlert {
		fmt.Fprintln(w, "  ALERT:          yes")
	}
	fmt.Fprintf(w, "  %s\n", res.Explanation)
}

func printBreakdown(w io.Writer, b sentimiento.Breakdown) {
	fmt.Fprintln(w, "\nPatterns:")
	for _, p := range b.Patterns {
		fmt.Fprintf(w, "  %-30q %-14s %+6.1f\n", p.Phrase, p.Emotion, p.Score)
	}
	fmt.Fprintln(w, "Tokens:")
	for _, t := range b.Tokens {
		fmt.Fprintf(w, "  %3d %-26s %+6.1f\n", t.Position, t.Word, t.Score)
	}
	fmt.Fprintf(w, "Raw score: %.2f\n", b.RawScore)
}

// --- sentences command ---

var sentencesCmd = &cobra.Command{
	Use:   "sentences [text...]",
	Short: "Analyze each sentence separately",
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := inputText(args, cmd.InOrStdin())
		if err != nil {
			return err
		}
		engine, err := newEngine()
		if err != nil {
			return err
		}

		doc := engine.AnalyzeSentences(text)
		out := cmd.OutOrStdout()
		if asJSON {
			return printJSON(out, doc)
		}

		for i, s := range doc.Sentences {
			alert := ""
			if s.Result.IsAlert {
				alert = "  [ALERT]"
			}
			fmt.Fprintf(out, "%2d. %+4d %-8s %s%s\n", i+1, s.Result.Score, s.Result.Classification, s.Text, alert)
		}
		fmt.Fprintf(out, "\nMean score: %.2f  (stddev %.2f)\n", doc.MeanScore, doc.ScoreStdDev)
		fmt.Fprintf(out, "Alerts: %d\n", doc.Alerts)
		fmt.Fprintf(out, "Overall: %s\n", doc.Overall)
		return nil
	},
}

// --- gaps command ---

var gapsCmd = &cobra.Command{
	Use:   "gaps [text...]",
	Short: "List words the lexicon does not cover",
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := inputText(args, cmd.InOrStdin())
		if err != nil {
			return err
		}
		engine, err := newEngine()
		if err != nil {
			return err
		}

		lang, share := sentimiento.DetectLanguage(text)
		if lang != cfg.Analysis.Language {
			logger.WithFields(logrus.Fields{"detected": lang, "share": share}).
				Warn("text does not look like the configured language")
		}
		for _, w := range engine.Gaps(text) {
			fmt.Fprintln(cmd.OutOrStdout(), w)
		}
		return nil
	},
}

// --- validate command ---

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and check the configured tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		tables, err := sentimiento.LoadTables(cfg.Tables.Lexicon, cfg.Tables.Patterns, logger)
		if err != nil {
			return fmt.Errorf("tables invalid: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Tables OK")
		fmt.Fprintf(out, "  Lexicon words: %d\n", tables.Lexicon.Len())
		fmt.Fprintf(out, "  Patterns:      %d\n", len(tables.Patterns))
		fmt.Fprintf(out, "  Modifiers:     %d\n", tables.Modifiers.Len())
		fmt.Fprintf(out, "  Negations:     %d\n", tables.Negations.Len())
		return nil
	},
}

// --- serve command ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP analysis service",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := newHybrid()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv := server.New(h, cfg.Server.MaxBodyBytes, logger)
		return srv.Run(ctx, cfg.Server.Addr)
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	analyzeCmd.Flags().BoolVar(&explain, "explain", false, "Show matched patterns and scored tokens")
	sentencesCmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
}
