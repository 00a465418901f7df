/*
 * local.go, part of trajstat.
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

package parallel

import (
	"context"
	"errors"
	"sync"

	"github.com/rmera/trajstat/comm"
)

// RunLocal runs a job of the given number of ranks in this process, one goroutine
// per rank, connected through a comm.Group. factory builds the driver of each rank.
// It returns the results gathered by rank 0. If any rank fails, the others are
// cancelled, and the error of the lowest failing rank is returned.
func RunLocal(ctx context.Context, workers int, factory func(c comm.Communicator) (Gatherer, error)) (*Buffer, error) {
	if workers < 1 {
		return nil, Spec{Workers: workers}.Validate()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	G := comm.NewGroup(workers)
	drivers := make([]Gatherer, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for r := 0; r < workers; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			d, err := factory(G.Comm(r))
			if err == nil {
				drivers[r] = d
				err = Execute(ctx, d)
			}
			if err != nil {
				errs[r] = err
				cancel()
			}
		}(r)
	}
	wg.Wait()
	if err := firstError(errs); err != nil {
		return nil, err
	}
	return drivers[0].Result(), nil
}

// firstError returns the first error that is not just a consequence of
// the cancellation of the job, or the first error if all are.
func firstError(errs []error) error {
	var first error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if !errors.Is(err, context.Canceled) {
			return err
		}
		if first == nil {
			first = err
		}
	}
	return first
}
