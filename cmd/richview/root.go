package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/richview/internal/app"
	"github.com/dshills/richview/internal/config"
	"github.com/dshills/richview/internal/surface"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configFile string
	logLevel   string
	readOnly   bool
	set        []string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	var cfg *config.Config

	root := &cobra.Command{
		Use:           "richview",
		Short:         "Open text resources in a rendered editor kept in sync with the file",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := loadConfig(flags)
			if err != nil {
				return err
			}
			cfg = loaded
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "configuration file (default "+config.DefaultPath()+")")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (trace, debug, info, warn, error, disabled)")
	root.PersistentFlags().BoolVarP(&flags.readOnly, "readonly", "R", false, "never save edits")
	root.PersistentFlags().StringArrayVar(&flags.set, "set", nil, "override a setting, e.g. --set sync.debounce=1s")

	env := &cmdEnv{flags: flags, cfg: func() *config.Config { return cfg }}
	root.AddCommand(
		newScoreCmd(env),
		newEncodeCmd(env),
		newDecodeCmd(env),
		newEditCmd(env),
		newPreviewCmd(env),
		newConfigCmd(env),
	)
	return root
}

// cmdEnv gives subcommands access to the loaded configuration.
type cmdEnv struct {
	flags *globalFlags
	cfg   func() *config.Config
}

// newApp builds an application with surfaces from factory.
func (e *cmdEnv) newApp(ctx context.Context, factory surface.Factory, opts ...app.Option) (*app.Application, error) {
	opts = append([]app.Option{app.WithReadOnly(e.flags.readOnly)}, opts...)
	return app.New(ctx, e.cfg(), factory, opts...)
}

// loadConfig reads the config file and applies command line overrides.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configFile)
	if err != nil {
		return nil, err
	}

	if flags.logLevel != "" {
		if err := cfg.Set("logging.level", flags.logLevel); err != nil {
			return nil, err
		}
	}
	for _, kv := range flags.set {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("--set %q: want key=value", kv)
		}
		if err := cfg.Set(strings.TrimSpace(key), value); err != nil {
			return nil, err
		}
	}

	// Validate again after command line overrides
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
