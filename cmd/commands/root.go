package commands

import (
	"context"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/dani-ardila/secretome-annotation-pipeline-DAP/internal/config"
	"github.com/dani-ardila/secretome-annotation-pipeline-DAP/internal/logging"
)

// version is the program version. It can be overridden at build time with -ldflags "-X .../cmd/commands.version=..."
var version = "0.1.0"

// app carries what every subcommand needs once the root has parsed its flags.
type app struct {
	configPath string
	verbose    bool
	logFile    string
	logLevel   string

	cfg      *config.Config
	logger   *log.Logger
	closeLog func() error

	// logOut overrides stderr for the logger; tests set it.
	logOut *os.File
}

// Execute runs the microdomains command line.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return newRootCmd(&app{}).ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "microdomains",
		Short:        "Extract annotated protein domains from secretome FASTA collections",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.closeLog != nil {
				return a.closeLog()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to microdomains.toml or a .json config (optional)")
	root.PersistentFlags().BoolVar(&a.verbose, "verbose", false, "enable verbose (debug) logging")
	root.PersistentFlags().StringVar(&a.logFile, "log-file", "", "append logs to this file as well as stderr")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")

	root.AddCommand(extractCmd(a), cutCmd(a), predictCmd(a), jobsCmd(a), versionCmd())
	return root
}

// setup loads the config and builds the logger. Flags override config.
func (a *app) setup() error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.logFile != "" {
		cfg.LogFile = a.logFile
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	a.cfg = cfg

	logger, closeLog, err := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		Verbose: a.verbose,
		Out:     a.logOut,
	})
	if err != nil {
		// the file could not be opened; keep going on stderr only
		logger, closeLog, _ = logging.New(logging.Options{Level: cfg.LogLevel, Verbose: a.verbose, Out: a.logOut})
		logger.Warn("log_file specified but could not be opened; logging to stderr only", "path", cfg.LogFile, "err", err)
	}
	a.logger, a.closeLog = logger, closeLog
	logger.Debug("loaded config", "config", a.configPath, "base_dir", cfg.BaseDir, "annotation", cfg.AnnotationPath,
		"output_dir", cfg.OutputDir, "sources", len(cfg.Sources), "log_file", cfg.LogFile, "log_level", cfg.LogLevel)
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("microdomains version %s\n", version)
		},
	}
}
