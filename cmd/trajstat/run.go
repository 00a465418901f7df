/*
 * run.go, part of trajstat.
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

package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rmera/trajstat"
	"github.com/rmera/trajstat/comm"
	"github.com/rmera/trajstat/config"
	"github.com/rmera/trajstat/export"
	"github.com/rmera/trajstat/parallel"
	"github.com/rmera/trajstat/traj/dcd"
	"github.com/rmera/trajstat/traj/stf"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Compute the observable over the trajectory and estimate its error",
	Long: `run acts as the coordinator (rank 0). With --listen, it waits for workers-1 remote
workers started with the worker command, otherwise all workers run in this process.
The gathered series is written to --output and the error estimates to --errors.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		J, err := loadJob()
		if err != nil {
			return err
		}
		return runJob(cmd.Context(), J)
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Join a coordinator as a remote worker",
	RunE: func(cmd *cobra.Command, _ []string) error {
		J, err := loadJob()
		if err != nil {
			return err
		}
		rank, _ := cmd.Flags().GetInt("rank")
		return runWorker(cmd.Context(), J, rank)
	},
}

func init() {
	workerCmd.Flags().Int("rank", 1, "Rank of this worker, from 1 to workers-1")
}

func observableList() string {
	return strings.Join(trajstat.ObservableNames(), ", ")
}

// loadTrajectory reads DCD files by extension, and everything else as STF.
func loadTrajectory(name string) (trajstat.Source, error) {
	if strings.EqualFold(filepath.Ext(name), ".dcd") {
		return dcd.Load(name)
	}
	return stf.Load(name)
}

// prepare validates the job and loads what every rank needs.
func prepare(J *config.Job) (trajstat.Source, trajstat.Observable, []int, error) {
	if err := J.Validate(); err != nil {
		return nil, nil, nil, err
	}
	obs, err := J.ObservableValue()
	if err != nil {
		return nil, nil, nil, err
	}
	src, err := loadTrajectory(J.Input)
	if err != nil {
		return nil, nil, nil, err
	}
	timesteps, err := parallel.Global(J.Spec(src.NFrames()))
	if err != nil {
		return nil, nil, nil, err
	}
	return src, obs, timesteps, nil
}

func runJob(ctx context.Context, J *config.Job) error {
	log := zap.L()
	src, obs, timesteps, err := prepare(J)
	if err != nil {
		return err
	}
	log.Info("starting job", zap.String("input", J.Input), zap.String("observable", J.Observable),
		zap.Int("frames", src.NFrames()), zap.Int("timesteps", len(timesteps)), zap.Int("workers", J.Workers))
	var result *parallel.Buffer
	if J.Listen == "" {
		result, err = parallel.RunLocal(ctx, J.Workers, func(c comm.Communicator) (parallel.Gatherer, error) {
			return parallel.NewTrajectory(c, src, obs, J.ParallelOptions(log)), nil
		})
	} else {
		result, err = coordinate(ctx, J, src, obs)
	}
	if err != nil {
		return err
	}
	if err := export.WriteResult(J.Output, result, timesteps); err != nil {
		return err
	}
	log.Info("results written", zap.String("file", J.Output), zap.Ints("shape", result.Shape))
	est, err := export.Estimates(result, J.TimestatOptions())
	if err != nil {
		return err
	}
	if err := export.WriteEstimates(J.Errors, est); err != nil {
		return err
	}
	return printEstimates(J.Observable, est)
}

func coordinate(ctx context.Context, J *config.Job, src trajstat.Source, obs trajstat.Observable) (*parallel.Buffer, error) {
	log := zap.L()
	L, err := comm.Listen(ctx, J.Listen, log)
	if err != nil {
		return nil, err
	}
	defer L.Close()
	log.Info("waiting for workers", zap.String("addr", L.Addr()), zap.Int("remote", J.Workers-1))
	c, err := L.Accept(ctx, J.Workers)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	d := parallel.NewTrajectory(c, src, obs, J.ParallelOptions(log))
	if err := parallel.Execute(ctx, d); err != nil {
		return nil, err
	}
	return d.Result(), nil
}

func runWorker(ctx context.Context, J *config.Job, rank int) error {
	if J.Listen == "" {
		return fmt.Errorf("the address of the coordinator (--listen) is needed")
	}
	if rank < 1 || rank >= J.Workers {
		return fmt.Errorf("rank %d out of range [1,%d)", rank, J.Workers)
	}
	log := zap.L().With(zap.Int("rank", rank))
	src, obs, _, err := prepare(J)
	if err != nil {
		return err
	}
	c, err := comm.Dial(ctx, J.Listen, rank, J.Workers, log)
	if err != nil {
		return err
	}
	defer c.Close()
	d := parallel.NewTrajectory(c, src, obs, J.ParallelOptions(log))
	if err := parallel.Execute(ctx, d); err != nil {
		return err
	}
	log.Info("worker done", zap.Int("timesteps", len(d.Timesteps())))
	return nil
}
