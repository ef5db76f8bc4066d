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
	"github.com/spf13/cobra"

	"github.com/numaproj/dayroll/pkg/config"
	"github.com/numaproj/dayroll/pkg/shared/logging"
	"github.com/numaproj/dayroll/pkg/storage/fs"
)

func NewPlanCommand() *cobra.Command {
	var configPath string

	command := &cobra.Command{
		Use:   "plan",
		Short: "Print the plan of the next pass without running it",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.NewLogger().Named("plan")
			ctx, stop := signalContext(log)
			defer stop()

			conf, err := config.LoadJobConfig(configPath)
			if err != nil {
				return err
			}
			j, err := newJob(conf.GetSpec(), fs.NewOSStore())
			if err != nil {
				return err
			}
			plan, err := j.planner().CreatePlan(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, plan)
		},
	}
	addConfigFlag(command, &configPath)
	return command
}
