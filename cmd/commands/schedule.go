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

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	dfv1 "github.com/numaproj/dayroll/pkg/apis/dayroll/v1alpha1"
	"github.com/numaproj/dayroll/pkg/config"
	"github.com/numaproj/dayroll/pkg/scheduler"
	"github.com/numaproj/dayroll/pkg/shared/logging"
	"github.com/numaproj/dayroll/pkg/storage/fs"
)

func NewScheduleCommand() *cobra.Command {
	var (
		configPath string
		cronSpec   string
		runOnStart bool
		port       int
	)

	command := &cobra.Command{
		Use:   "schedule",
		Short: "Run the job on a cron schedule, reloading the configuration when it changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cronSpec == "" {
				return fmt.Errorf("--cron is required")
			}
			log := logging.NewLogger().Named("schedule")
			ctx, stop := signalContext(log)
			defer stop()

			conf, err := config.LoadJobConfig(configPath)
			if err != nil {
				return err
			}
			spec := conf.GetSpec()
			conf.Watch(func(s dfv1.JobSpec) {
				log.Infow("Job configuration reloaded, applies from the next run", zap.String("job", s.Name))
			}, func(err error) {
				log.Errorw("Failed to reload job configuration, keeping the current one", zap.Error(err))
			})

			cal, err := config.Calendar(spec)
			if err != nil {
				return err
			}
			store := fs.NewOSStore()
			if port, err = metricsPort(cmd, port); err != nil {
				return err
			}
			stopMetrics, err := startMetricsServer(ctx, port, store, spec)
			if err != nil {
				return err
			}
			defer stopMetrics()

			opts := []scheduler.Option{scheduler.WithLocation(cal.Location())}
			if runOnStart {
				opts = append(opts, scheduler.WithRunOnStart())
			}
			s, err := scheduler.New(cronSpec, func(ctx context.Context) error {
				reports, err := runJob(ctx, conf.GetSpec(), store)
				if reports != nil {
					log.Infow("Run finished", zap.Int("passes", reports.Len()))
				}
				return err
			}, opts...)
			if err != nil {
				return err
			}
			return s.Start(ctx)
		},
	}
	addConfigFlag(command, &configPath)
	command.Flags().StringVar(&cronSpec, "cron", "", "Cron expression or descriptor such as @daily")
	command.Flags().BoolVar(&runOnStart, "run-on-start", false, "Run once immediately")
	command.Flags().IntVar(&port, "metrics-port", 0, fmt.Sprintf("Port serving /metrics and /readyz, disabled when 0, falls back to $%s", dfv1.EnvMetricsPort))
	return command
}
