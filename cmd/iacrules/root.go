package main

import (
	"io"
	"os"

	"iacrules/internal/config"
	"iacrules/internal/logging"
	"iacrules/internal/manager"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// app carries state shared by every subcommand once flags are parsed.
type app struct {
	configPath string
	debug      bool

	cfg    *config.Config
	logger *logging.AppLogger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "iacrules",
		Short:         "Terraform module rule validation over MCP",
		Long:          "iacrules validates Terraform modules against an organizational rule catalog.\nWithout a subcommand it serves the catalog to an MCP client over stdio.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/iacrules/config.yaml)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging to iacrules.log")

	root.AddCommand(
		serveCmd(a),
		reportCmd(a),
		catalogCmd(a),
		templateCmd(),
		configCmd(a),
		versionCmd(a),
	)
	return root
}

func (a *app) init(stderr io.Writer) error {
	var err error
	if a.configPath != "" {
		a.cfg, err = config.LoadFrom(a.configPath)
	} else {
		a.cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	debug := a.debug || os.Getenv("DEBUG") != ""
	opts := logging.Options{
		Level:  a.cfg.LogLevel,
		Format: a.cfg.LogFormat,
		Debug:  debug,
	}
	if !debug {
		opts.Output = stderr
	}
	a.logger = logging.NewAppLogger(opts)
	logging.SetDefault(a.logger)

	a.logger.Debug("Configuration loaded", "configPath", config.ConfigPath(), "maxFileSize", a.cfg.MaxFileSize)
	return nil
}

func (a *app) newManager() *manager.Manager {
	return manager.New(
		manager.WithMaxFileSize(a.cfg.MaxFileSize),
		manager.WithLogger(a.logger),
	)
}
