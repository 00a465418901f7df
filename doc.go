/*
 * doc.go, part of trajstat.
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

/*
Package trajstat is the main package of the trajstat library. It provides the
trajectory source and per-frame observable abstractions, the error kinds shared by
all the packages in the library, and the geometric observables (radius of gyration,
end-to-end distance, radial distribution function, second Legendre polynomial)
that are usually evaluated frame by frame and then analyzed as time series.

The time series statistics (autocorrelation, correlated error estimation, mean
squared displacement) live in the timestat package, and the parallel evaluation
of observables over a trajectory in the parallel package.
*/
package trajstat
