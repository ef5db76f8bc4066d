/*
Copyright 2022 The Numaproj Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package commands

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/numaproj/dayroll"
	dfv1 "github.com/numaproj/dayroll/pkg/apis/dayroll/v1alpha1"
	"github.com/numaproj/dayroll/pkg/config"
	"github.com/numaproj/dayroll/pkg/orchestrator"
	"github.com/numaproj/dayroll/pkg/shared/logging"
	"github.com/numaproj/dayroll/pkg/storage"
	"github.com/numaproj/dayroll/pkg/storage/fs"
)

func NewRunCommand() *cobra.Command {
	var (
		configPath string
		port       int
	)

	command := &cobra.Command{
		Use:   "run",
		Short: "Run passes until the job output is up to date",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.NewLogger().Named("run")
			log.Infow("Starting dayroll", "version", dayroll.GetVersion())
			ctx, stop := signalContext(log)
			defer stop()

			conf, err := config.LoadJobConfig(configPath)
			if err != nil {
				return err
			}
			spec := conf.GetSpec()
			store := fs.NewOSStore()
			if port, err = metricsPort(cmd, port); err != nil {
				return err
			}
			stopMetrics, err := startMetricsServer(ctx, port, store, spec)
			if err != nil {
				return err
			}
			defer stopMetrics()

			reports, err := runJob(ctx, spec, store)
			if reports != nil {
				if perr := printJSON(cmd, reports.Items()); perr != nil {
					log.Warnw("Failed to print pass reports", zap.Error(perr))
				}
			}
			return err
		},
	}
	addConfigFlag(command, &configPath)
	command.Flags().IntVar(&port, "metrics-port", 0, fmt.Sprintf("Port serving /metrics and /readyz, disabled when 0, falls back to $%s", dfv1.EnvMetricsPort))
	return command
}

func runJob(ctx context.Context, spec dfv1.JobSpec, store storage.Store) (*orchestrator.Reports, error) {
	j, err := newJob(spec, store)
	if err != nil {
		return nil, err
	}
	o, err := j.orchestrator()
	if err != nil {
		return nil, err
	}
	return o.Run(ctx)
}

func printJSON(cmd *cobra.Command, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return err
}
