// transflow — transform web content into archival-quality Markdown artifacts.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/transflow/transflow/bundle"
	"github.com/transflow/transflow/config"
	"github.com/transflow/transflow/errdefs"
	"github.com/transflow/transflow/extract"
	"github.com/transflow/transflow/i18n"
	"github.com/transflow/transflow/langmeta"
	"github.com/transflow/transflow/llm"
	"github.com/transflow/transflow/translate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flag
// ---------------------------------------------------------------------------

var verbose bool

// setup loads the configuration and builds the logger every command
// shares. The --verbose flag overrides the configured log level.
func setup() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}

	level := parseLogLevel(cfg.LogLevel)
	if verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return cfg, log, nil
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// interruptibleContext returns a context cancelled on Ctrl-C.
func interruptibleContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		logWarning("Interrupted, shutting down...")
		cancel()
	}()

	return ctx, cancel
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "transflow",
		Short: "Transform web content into archival-quality Markdown artifacts",
		Long: `transflow — transform web content into archival-quality Markdown artifacts.

A modular pipeline for turning web pages into portable, translated,
self-contained Markdown bundles:

  download    Fetch a URL and convert it to clean Markdown
  translate   Translate Markdown while preserving structure
  bundle      Localize images and package into a bundle folder
  run         Full pipeline: download → translate → bundle

Configuration comes from TRANSFLOW_* environment variables or a .env
file. Run 'transflow config' to inspect the resolved values.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global persistent flag — inherited by all subcommands
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(
		newDownloadCmd(),
		newTranslateCmd(),
		newBundleCmd(),
		newRunCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")

	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(errdefs.ExitCode(err))
	}
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("transflow version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// download (URL → Markdown file)
// ---------------------------------------------------------------------------

func newDownloadCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "download URL",
		Short: "Download web content and convert to clean Markdown",
		Long: `Fetch a web page and convert it to Markdown with YAML front matter
holding the title, source URL and fetch timestamp.

The output filename is derived from the URL when -o is not given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}

			extractor, err := extract.New(cfg, log)
			if err != nil {
				return err
			}

			ctx, cancel := interruptibleContext()
			defer cancel()

			url := args[0]
			logInfo(i18n.T("Fetching content from %s"), url)

			path, err := extractor.FetchAndSave(ctx, url, output)
			if err != nil {
				return err
			}

			logSuccess(i18n.T("Saved to %s"), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output filename (default: derived from URL)")

	return cmd
}

// ---------------------------------------------------------------------------
// translate (Markdown file → translated Markdown file)
// ---------------------------------------------------------------------------

func newTranslateCmd() *cobra.Command {
	var (
		input  string
		output string
		lang   string
		model  string
	)

	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate Markdown content while preserving structure",
		Long: `Translate the prose of a Markdown document to the target language.

Headings, paragraphs and quotes are translated; code blocks, inline
code, raw HTML and front matter pass through untouched. Translation
goes through an OpenAI-compatible chat endpoint in batches, with a
per-paragraph fallback when a batch response cannot be aligned.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			if lang == "" {
				lang = cfg.DefaultLanguage
			}

			if _, err := os.Stat(input); err != nil {
				return errdefs.Validationf("input file not found: %s", input)
			}

			client, err := llm.New(cfg, model, log)
			if err != nil {
				return err
			}
			translator := translate.NewTranslator(client, lang, translate.DefaultBatchSize, log)

			ctx, cancel := interruptibleContext()
			defer cancel()

			meta := langmeta.Resolve(lang)
			logInfo(i18n.T("Translating %s to %s"), input, meta.Name)

			if err := translator.TranslateFile(ctx, input, output); err != nil {
				return err
			}

			logSuccess(i18n.T("Saved to %s"), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Source Markdown file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination Markdown file")
	cmd.Flags().StringVar(&lang, "lang", "", "Target language code (default: TRANSFLOW_DEFAULT_LANGUAGE)")
	cmd.Flags().StringVar(&model, "model", "", "Model to use (default: TRANSFLOW_OPENAI_MODEL)")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")

	return cmd
}

// ---------------------------------------------------------------------------
// bundle (Markdown file → self-contained folder)
// ---------------------------------------------------------------------------

func newBundleCmd() *cobra.Command {
	var (
		input  string
		output string
		folder string
	)

	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Localize assets and bundle into a folder",
		Long: `Download the remote images a Markdown document references, rewrite
the references to local assets/ paths, and write the result as a
self-contained folder with README.md, assets/ and meta.yaml.

Failed downloads are logged and left pointing at their original URL;
they never abort the bundle.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}

			if _, err := os.Stat(input); err != nil {
				return errdefs.Validationf("input file not found: %s", input)
			}

			ctx, cancel := interruptibleContext()
			defer cancel()

			dir, err := bundle.New(cfg, log).Bundle(ctx, input, output, folder)
			if err != nil {
				return err
			}

			logSuccess(i18n.T("Bundle created at %s"), dir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "The Markdown file to bundle")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Target directory for bundled content")
	cmd.Flags().StringVar(&folder, "folder", "{year}/{date}-{slug}", "Folder naming format")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")

	return cmd
}

// ---------------------------------------------------------------------------
// run (full pipeline: download → translate → bundle)
// ---------------------------------------------------------------------------

func newRunCmd() *cobra.Command {
	var (
		output string
		lang   string
		model  string
		folder string
	)

	cmd := &cobra.Command{
		Use:   "run URL",
		Short: "Run the complete pipeline: download, translate, bundle",
		Long: `Fetch a URL, translate the content, localize its images and write
a self-contained bundle folder. Intermediate files live in a
temporary directory that is removed afterwards.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			if lang == "" {
				lang = cfg.DefaultLanguage
			}

			extractor, err := extract.New(cfg, log)
			if err != nil {
				return err
			}
			client, err := llm.New(cfg, model, log)
			if err != nil {
				return err
			}

			ctx, cancel := interruptibleContext()
			defer cancel()

			tmpDir, err := os.MkdirTemp("", "transflow-*")
			if err != nil {
				return fmt.Errorf("creating temp directory: %w", err)
			}
			defer os.RemoveAll(tmpDir)

			url := args[0]
			logInfo(i18n.T("Fetching content from %s"), url)
			rawPath, err := extractor.FetchAndSave(ctx, url, tmpDir+"/raw.md")
			if err != nil {
				return err
			}

			meta := langmeta.Resolve(lang)
			logInfo(i18n.T("Translating %s to %s"), rawPath, meta.Name)
			translator := translate.NewTranslator(client, lang, translate.DefaultBatchSize, log)
			translatedPath := tmpDir + "/translated.md"
			if err := translator.TranslateFile(ctx, rawPath, translatedPath); err != nil {
				return err
			}

			dir, err := bundle.New(cfg, log).Bundle(ctx, translatedPath, output, folder)
			if err != nil {
				return err
			}

			logSuccess(i18n.T("Bundle created at %s"), dir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Target directory for final output")
	cmd.Flags().StringVar(&lang, "lang", "", "Target language for translation")
	cmd.Flags().StringVar(&model, "model", "", "Model to use (default: TRANSFLOW_OPENAI_MODEL)")
	cmd.Flags().StringVar(&folder, "folder", "{year}/{date}-{slug}", "Folder naming format")
	cmd.MarkFlagRequired("output")

	return cmd
}

// ---------------------------------------------------------------------------
// config (show or validate resolved configuration)
// ---------------------------------------------------------------------------

func newConfigCmd() *cobra.Command {
	var validate bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or validate the resolved configuration",
		Long: `Print the configuration resolved from TRANSFLOW_* environment
variables and the .env file, with secrets masked. With --validate,
only check the configuration and report problems.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup()
			if err != nil {
				return err
			}

			if validate {
				logSuccess(i18n.T("Configuration is valid"))
				return nil
			}

			showConfig(cfg)
			return nil
		},
	}

	cmd.Flags().BoolVar(&validate, "validate", false, "Validate configuration and exit")

	return cmd
}

func showConfig(cfg config.Config) {
	fmt.Fprintf(os.Stderr, "\n%sConfiguration%s\n", colorBlue, colorReset)

	fmt.Fprintln(os.Stderr, "\n  Extraction (Firecrawl)")
	fmt.Fprintf(os.Stderr, "    api key:     %s\n", keyStatus(cfg.FirecrawlAPIKey))
	fmt.Fprintf(os.Stderr, "    base url:    %s\n", cfg.FirecrawlBaseURL)
	fmt.Fprintf(os.Stderr, "    timeout:     %s\n", cfg.FirecrawlTimeout)

	fmt.Fprintln(os.Stderr, "\n  Translation (OpenAI-compatible)")
	fmt.Fprintf(os.Stderr, "    api key:     %s\n", keyStatus(cfg.OpenAIAPIKey))
	fmt.Fprintf(os.Stderr, "    base url:    %s\n", cfg.OpenAIBaseURL)
	fmt.Fprintf(os.Stderr, "    model:       %s\n", cfg.OpenAIModel)
	fmt.Fprintf(os.Stderr, "    language:    %s\n", cfg.DefaultLanguage)

	fmt.Fprintln(os.Stderr, "\n  HTTP")
	fmt.Fprintf(os.Stderr, "    timeout:     %s\n", cfg.HTTPTimeout)
	fmt.Fprintf(os.Stderr, "    max retries: %d\n", cfg.HTTPMaxRetries)
	fmt.Fprintf(os.Stderr, "    downloads:   %d concurrent\n", cfg.ConcurrentDownloads)

	fmt.Fprintf(os.Stderr, "\n  Log level: %s\n\n", cfg.LogLevel)
}

func keyStatus(secret string) string {
	if secret == "" {
		return colorRed + "[MISSING]" + colorReset
	}
	return colorGreen + "[SET]" + colorReset + " " + config.MaskSecret(secret)
}
