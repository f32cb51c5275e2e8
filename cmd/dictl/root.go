package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	tlog "go.temporal.io/sdk/log"

	"github.com/nucleus/di-collector/internal/config"
	"github.com/nucleus/di-collector/internal/logging"
	"github.com/nucleus/di-collector/internal/orchestration"
)

// app carries state shared by all subcommands.
type app struct {
	v       *viper.Viper
	cfgFile string
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper()}

	root := &cobra.Command{
		Use:   "dictl",
		Short: "Operate the Directory Insights collector",
		Long: `dictl runs and inspects the Directory Insights collector.

Configuration comes from the environment (jc_api_key, jc_org_id, service,
bucket_name, cron_schedule, ...) and optionally a config file.

  dictl scheduled                       run one scheduled pass now
  dictl ondemand --start S --end E      collect explicit bounds
  dictl archive --keep 100              archive old window objects
  dictl watermark                       print the next start boundary
  dictl schedule                        start the Temporal cron workflow`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfgFile == "" {
				return nil
			}
			a.v.SetConfigFile(a.cfgFile)
			if err := a.v.ReadInConfig(); err != nil {
				return fmt.Errorf("read config %s: %w", a.cfgFile, err)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file path")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "", "log format (json, text)")
	root.PersistentFlags().String("bucket", "", "bucket name")
	root.PersistentFlags().String("service", "", "comma-separated services")
	_ = a.v.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))
	_ = a.v.BindPFlag("log_format", root.PersistentFlags().Lookup("log-format"))
	_ = a.v.BindPFlag("bucket_name", root.PersistentFlags().Lookup("bucket"))
	_ = a.v.BindPFlag("service", root.PersistentFlags().Lookup("service"))

	root.AddCommand(
		newScheduledCmd(a),
		newOnDemandCmd(a),
		newArchiveCmd(a),
		newWatermarkCmd(a),
		newScheduleCmd(a),
	)
	return root
}

// load validates configuration for mode and wires an orchestrator.
func (a *app) load(ctx context.Context, mode config.Mode) (*config.Config, *orchestration.Orchestrator, tlog.Logger, error) {
	a.v.Set("mode", string(mode))
	cfg, err := config.FromViper(a.v)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	orch, bucket, err := orchestration.FromConfig(cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := orchestration.EnsureBucket(ctx, bucket); err != nil {
		return nil, nil, nil, err
	}
	return cfg, orch, logger, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
