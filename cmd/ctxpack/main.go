// Command ctxpack assembles token-budgeted LLM context from personal memory.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lifeos/ctxpack/config"
	"github.com/lifeos/ctxpack/pkg/logger"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	port       int
	logLevel   string
	debug      bool
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "ctxpack",
		Short:         "Token-budgeted context assembly for personal assistants",
		Long:          "ctxpack classifies a user request, retrieves relevant personal memory, compresses it and packs a fixed-budget message list for a language model.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	flags.IntVar(&opts.port, "port", 0, "Override server port")
	flags.StringVar(&opts.logLevel, "log-level", "", "Override log level")
	flags.BoolVar(&opts.debug, "debug", false, "Enable debug mode")

	root.AddCommand(
		newServeCmd(opts),
		newPrepareCmd(opts),
		newClassifyCmd(),
		newVersionCmd(),
	)
	return root
}

// overrides maps the persistent flags onto config keys.
func (o *globalOptions) overrides() map[string]interface{} {
	overrides := make(map[string]interface{})

	if o.port != 0 {
		overrides["server.port"] = o.port
	}
	if o.logLevel != "" {
		overrides["log.level"] = o.logLevel
	}
	if o.debug {
		overrides["app.debug"] = true
	}

	return overrides
}

func (o *globalOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath, o.overrides())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration:\n%w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) logger.Logger {
	logCfg := &logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	if cfg.App.Debug {
		logCfg.Level = logger.DebugLevel
	}
	return logger.New(logCfg)
}
