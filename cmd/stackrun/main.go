// Command stackrun is an interactive coding agent. Each request is planned
// into a stack of operations (search, read, update, run, explain) that run
// one at a time, with changes to the workspace confirmed first.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/martinemde/stackrun/config"
)

var (
	// Global flags
	verbose    bool
	configPath string
	envFile    string
	workDir    string
	approval   string

	logger *zap.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "stackrun",
	Short: "Plan and run coding tasks as a stack of small operations",
	Long: `stackrun turns a request into a plan of small operations (search, read,
update, run a command, explain) and runs them one at a time. Operations that
change the workspace ask for approval first.

Run without arguments to start an interactive session.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}

		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if workDir != "" {
			cfg.Workspace.Root = workDir
		}
		if approval != "" {
			cfg.Approval = approval
		}
		return cfg.Validate()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive(cmd.Context())
	},
}

var runCmd = &cobra.Command{
	Use:   "run [task]",
	Short: "Run a single task and exit",
	Example: `  stackrun run "explain how configuration is loaded"
  stackrun run --approval deny "find where retries are configured"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOnce,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before the config")
	rootCmd.PersistentFlags().StringVarP(&workDir, "dir", "C", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVar(&approval, "approval", "", "Approval mode: prompt, auto or deny")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(memoryCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}
