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
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/numaproj/dayroll"
	dfv1 "github.com/numaproj/dayroll/pkg/apis/dayroll/v1alpha1"
	"github.com/numaproj/dayroll/pkg/config"
	"github.com/numaproj/dayroll/pkg/engine/local"
	"github.com/numaproj/dayroll/pkg/metrics"
	"github.com/numaproj/dayroll/pkg/orchestrator"
	"github.com/numaproj/dayroll/pkg/planner"
	"github.com/numaproj/dayroll/pkg/provenance"
	"github.com/numaproj/dayroll/pkg/publish"
	"github.com/numaproj/dayroll/pkg/reducesize"
	"github.com/numaproj/dayroll/pkg/shared/logging"
	"github.com/numaproj/dayroll/pkg/shared/util"
	"github.com/numaproj/dayroll/pkg/storage"
)

// job is everything built from one JobSpec.
type job struct {
	spec      dfv1.JobSpec
	store     storage.Store
	cfg       planner.Config
	codec     *provenance.CachedCodec
	estimator *reducesize.Estimator
}

func newJob(spec dfv1.JobSpec, store storage.Store) (*job, error) {
	cal, err := config.Calendar(spec)
	if err != nil {
		return nil, err
	}
	cfg, err := config.PlannerConfig(spec, cal)
	if err != nil {
		return nil, err
	}
	est, err := config.Estimator(spec.Reducers)
	if err != nil {
		return nil, err
	}
	codec, err := config.Codec()
	if err != nil {
		return nil, err
	}
	return &job{spec: spec, store: store, cfg: cfg, codec: codec, estimator: est}, nil
}

func (j *job) planner() *planner.Planner {
	return planner.NewPlanner(j.cfg, j.store, j.codec, j.estimator)
}

func (j *job) orchestrator() (*orchestrator.Orchestrator, error) {
	logic, err := config.Logic(j.spec.Aggregate)
	if err != nil {
		return nil, err
	}
	popts := []publish.Option{publish.WithForgetter(j.codec)}
	if j.spec.Output.StatsPath != "" {
		popts = append(popts, publish.WithStatsRoot(j.spec.Output.StatsPath))
	}
	eng := local.New(j.store, config.EngineOptions(j.spec.Engine)...)
	return orchestrator.New(j.spec.Name, j.cfg, j.store, eng, logic, j.estimator,
		orchestrator.WithCodec(j.codec),
		orchestrator.WithPublisher(publish.NewStagedPublisher(j.store, j.cfg.OutputRoot, popts...)),
		orchestrator.WithSchemas(config.Schemas(j.spec)),
		orchestrator.WithMaxIterations(j.spec.GetMaxIterations()),
		orchestrator.WithRetention(j.spec.Output.GetRetentionCount()),
	), nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(log *zap.SugaredLogger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return logging.WithLogger(ctx, log), stop
}

// metricsPort returns the --metrics-port flag, or the port in the
// environment when the flag is not set.
func metricsPort(cmd *cobra.Command, flagValue int) (int, error) {
	if cmd.Flags().Changed("metrics-port") {
		return flagValue, nil
	}
	return util.LookupEnvIntOr(dfv1.EnvMetricsPort, flagValue)
}

// startMetricsServer serves metrics on port, a non positive port disables it.
// The returned function stops the server.
func startMetricsServer(ctx context.Context, port int, store storage.Store, spec dfv1.JobSpec) (func(), error) {
	v := dayroll.GetVersion()
	metrics.BuildInfo.WithLabelValues(v.Version, v.Platform).Set(1)
	if port <= 0 {
		return func() {}, nil
	}
	_, shutdown, err := metrics.NewMetricsServer(
		metrics.WithPort(port),
		metrics.WithHealthCheckers(metrics.NewStorageHealthChecker(store, spec.Output.Path)),
	).Start(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start metrics server, %w", err)
	}
	return func() {
		if err := shutdown(context.Background()); err != nil {
			logging.FromContext(ctx).Warnw("Failed to stop metrics server", zap.Error(err))
		}
	}, nil
}

func addConfigFlag(command *cobra.Command, configPath *string) {
	command.Flags().StringVarP(configPath, "config", "c", util.LookupEnvStringOr(dfv1.EnvConfigPath, ""),
		"Job configuration file, defaults to job.yaml in the working directory or /etc/dayroll")
}
