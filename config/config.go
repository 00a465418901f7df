/*
 * config.go, part of trajstat.
 *
 * Copyright 2024 The trajstat Authors.
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

// Package config holds the description of an analysis job, which can be
// stored in, and loaded from, YAML files.
package config

import (
	"fmt"
	"os"

	"github.com/rmera/trajstat"
	"github.com/rmera/trajstat/parallel"
	"github.com/rmera/trajstat/timestat"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	DefaultObservable = "e2e"
	DefaultWorkers    = 1
	DefaultWindow     = 6.0
	DefaultOutput     = "result.parquet"
	DefaultErrors     = "errors.parquet"
)

// Job describes one analysis: which observable to compute on which frames of
// a trajectory, how many workers to use, and where to put the results.
type Job struct {
	Input      string    `yaml:"input" mapstructure:"input"`
	Observable string    `yaml:"observable" mapstructure:"observable"`
	Args       []float64 `yaml:"args,omitempty" mapstructure:"args"`
	Workers    int       `yaml:"workers" mapstructure:"workers"`
	Stride     int       `yaml:"stride" mapstructure:"stride"`
	Offset     int       `yaml:"offset" mapstructure:"offset"`
	Folded     bool      `yaml:"folded" mapstructure:"folded"`
	Window     float64   `yaml:"window" mapstructure:"window"`
	MaxLag     int       `yaml:"max_lag" mapstructure:"max_lag"`
	Output     string    `yaml:"output" mapstructure:"output"`
	Errors     string    `yaml:"errors" mapstructure:"errors"`
	Plot       string    `yaml:"plot,omitempty" mapstructure:"plot"`
	// Listen is the address on which the coordinator waits for remote
	// workers. If empty, all workers run in the same process.
	Listen string `yaml:"listen,omitempty" mapstructure:"listen"`
}

func DefaultJob() *Job {
	return &Job{
		Observable: DefaultObservable,
		Workers:    DefaultWorkers,
		Stride:     1,
		Window:     DefaultWindow,
		MaxLag:     -1,
		Output:     DefaultOutput,
		Errors:     DefaultErrors,
	}
}

// Load reads a job from a YAML file. Keys not in the file keep their default values.
func Load(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	J := DefaultJob()
	if err := yaml.Unmarshal(data, J); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return J, nil
}

// Save writes the job to path as YAML.
func Save(path string, J *Job) error {
	data, err := yaml.Marshal(J)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the parts of the job that don't depend on the trajectory.
func (J *Job) Validate() error {
	if J.Input == "" {
		return trajstat.NewError(trajstat.ErrInvalidInput, "no input trajectory given", "Job.Validate")
	}
	if _, err := J.ObservableValue(); err != nil {
		return trajstat.ErrDecorate(err, "Job.Validate")
	}
	return parallel.Spec{Total: J.Offset + 1, Workers: J.Workers, Stride: J.Stride, Offset: J.Offset}.Validate()
}

// ObservableValue returns the observable named in the job, built with its arguments.
func (J *Job) ObservableValue() (trajstat.Observable, error) {
	return trajstat.ObservableByName(J.Observable, J.Args...)
}

// Spec returns the partition specification of the job for a trajectory with total frames.
func (J *Job) Spec(total int) parallel.Spec {
	return parallel.Spec{Total: total, Workers: J.Workers, Stride: J.Stride, Offset: J.Offset}
}

// ParallelOptions returns the driver options of the job.
func (J *Job) ParallelOptions(log *zap.Logger) *parallel.Options {
	O := parallel.DefaultOptions()
	O.Stride(J.Stride)
	O.Offset(J.Offset)
	O.Folded(J.Folded)
	O.Logger(log)
	return O
}

// TimestatOptions returns the options for the error analysis of the job.
func (J *Job) TimestatOptions() *timestat.Options {
	O := timestat.DefaultOptions()
	O.Window(J.Window)
	O.MaxLag(J.MaxLag)
	return O
}
