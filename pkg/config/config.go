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

// Package config loads job specs from YAML files and turns them into the
// values the planner, the reduce sizer and the engine are built from.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	dfv1 "github.com/numaproj/dayroll/pkg/apis/dayroll/v1alpha1"
)

// JobConfig holds the current job spec. It is replaced in place when the
// watched file changes.
type JobConfig struct {
	v    *viper.Viper
	spec *dfv1.JobSpec
	lock *sync.RWMutex
}

// GetSpec returns a copy of the current spec.
func (c *JobConfig) GetSpec() dfv1.JobSpec {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return *c.spec
}

// Path returns the file the job spec was read from.
func (c *JobConfig) Path() string {
	return c.v.ConfigFileUsed()
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	if path == "" {
		v.SetConfigName(dfv1.DefaultConfigName)
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/dayroll")
	} else {
		v.SetConfigFile(path)
		if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext == "" {
			v.SetConfigType("yaml")
		}
	}
	v.SetEnvPrefix(dfv1.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*dfv1.JobSpec, error) {
	spec := &dfv1.JobSpec{}
	if err := v.Unmarshal(spec); err != nil {
		return nil, fmt.Errorf("failed unmarshal job configuration, %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// LoadJobConfig reads and validates the job spec at path. An empty path
// looks for job.yaml in the working directory and in /etc/dayroll. Keys can
// be overridden by DAYROLL_ prefixed environment variables, nested keys join
// with an underscore.
func LoadJobConfig(path string) (*JobConfig, error) {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to load job configuration file, %w", err)
	}
	spec, err := decode(v)
	if err != nil {
		return nil, err
	}
	return &JobConfig{
		v:    v,
		spec: spec,
		lock: new(sync.RWMutex),
	}, nil
}

// Watch starts watching the configuration file. A valid new spec replaces
// the current one and is passed to onChange, an invalid one is reported to
// onErrorReloading and the current spec stays in effect.
func (c *JobConfig) Watch(onChange func(dfv1.JobSpec), onErrorReloading func(error)) {
	c.v.OnConfigChange(func(e fsnotify.Event) {
		c.reload(onChange, onErrorReloading)
	})
	c.v.WatchConfig()
}

func (c *JobConfig) reload(onChange func(dfv1.JobSpec), onErrorReloading func(error)) {
	spec, err := decode(c.v)
	if err != nil {
		if onErrorReloading != nil {
			onErrorReloading(err)
		}
		return
	}
	c.lock.Lock()
	c.spec = spec
	c.lock.Unlock()
	if onChange != nil {
		onChange(*spec)
	}
}
