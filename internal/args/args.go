package args

import (
	"context"
	"errors"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/markis/geonames-rdf/internal/config"
)

const (
	CommandDecode  = "decode"
	CommandFormats = "formats"

	// Stdin is the input name standing for standard input.
	Stdin = "-"
)

var ErrNoInput = errors.New("no archive provided")

// Arguments represents the command-line arguments structure.
type Arguments struct {
	Command      string
	Input        string
	BaseIRI      string
	Output       string
	MaxLineSize  int
	LogLevel     string
	UsePlainText bool
	Summary      bool
	ConfigPath   string
}

// stdinIsTerminal is replaced in tests.
var stdinIsTerminal = func() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// ParseArgs parses argv, returning an Arguments struct. Flags default to the
// values in cfg; a file named with --config replaces cfg for every flag not
// given on the command line. Command is empty when only help was printed.
func ParseArgs(ctx context.Context, cfg config.Config, argv []string) (Arguments, error) {
	args := Arguments{
		MaxLineSize: cfg.MaxLineSize,
		LogLevel:    cfg.LogLevel,
	}

	rootCmd := &cobra.Command{
		Use:   "geonames-rdf [flags] <archive.zip|->",
		Short: "Decode a GeoNames RDF dump into a single RDF stream",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			if args.ConfigPath != "" {
				fileCfg, err := config.LoadFile(args.ConfigPath)
				if err != nil {
					return err
				}
				applyConfig(cmd, &args, *fileCfg)
			}

			args.Command = CommandDecode
			switch {
			case len(cmdArgs) > 0:
				args.Input = cmdArgs[0]
			case !stdinIsTerminal():
				args.Input = Stdin
			default:
				return ErrNoInput
			}
			return nil
		},
		SilenceErrors: true, // We'll handle error reporting
		SilenceUsage:  true, // We'll handle usage display
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&args.ConfigPath, "config", "", "Read settings from this YAML or TOML file")
	rootCmd.PersistentFlags().BoolVar(&args.UsePlainText, "plain", shouldUsePlainText(cfg), "Disable markdown rendering")

	rootCmd.Flags().StringVar(&args.BaseIRI, "base", cfg.BaseIRI, "Base IRI for relative references")
	rootCmd.Flags().StringVarP(&args.Output, "output", "o", cfg.Output, "Output format: nquads or jsonl")
	rootCmd.Flags().BoolVar(&args.Summary, "summary", false, "Print a decode summary to stderr")

	rootCmd.AddCommand(&cobra.Command{
		Use:   CommandFormats,
		Short: "List the registered RDF formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			args.Command = CommandFormats
			return nil
		},
	})

	if argv == nil {
		argv = []string{} // cobra falls back to os.Args on nil
	}
	rootCmd.SetArgs(argv)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return Arguments{}, err
	}

	return args, nil
}

// applyConfig copies cfg into args for every flag the user did not set.
func applyConfig(cmd *cobra.Command, args *Arguments, cfg config.Config) {
	flags := cmd.Flags()
	if !flags.Changed("base") {
		args.BaseIRI = cfg.BaseIRI
	}
	if !flags.Changed("output") {
		args.Output = cfg.Output
	}
	if !flags.Changed("plain") {
		args.UsePlainText = shouldUsePlainText(cfg)
	}
	args.MaxLineSize = cfg.MaxLineSize
	args.LogLevel = cfg.LogLevel
}

// shouldUsePlainText determines if plain text output should be used based on environment and terminal settings.
func shouldUsePlainText(cfg config.Config) bool {
	// Check if the rendering format is set to plain
	if cfg.Render.Format == "plain" {
		return true
	}

	// The summary goes to stderr
	if fd := os.Stderr.Fd(); !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return true
	}

	// Check for NO_COLOR environment variable
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return true
	}

	// Check for TERM=dumb
	if term := os.Getenv("TERM"); term == "dumb" {
		return true
	}

	return false
}
