/*
 * analyze.go, part of trajstat.
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
	"fmt"
	"os"
	"strconv"

	"github.com/guptarohit/asciigraph"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/rmera/trajstat/export"
	"github.com/rmera/trajstat/timestat"
	"github.com/rmera/trajstat/tsplot"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var errorCmd = &cobra.Command{
	Use:   "error RESULT.parquet",
	Short: "Estimate the error of the mean of each element of saved results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		J, err := loadJob()
		if err != nil {
			return err
		}
		b, _, err := export.ReadResult(args[0])
		if err != nil {
			return err
		}
		est, err := export.Estimates(b, J.TimestatOptions())
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("errors") {
			if err := export.WriteEstimates(J.Errors, est); err != nil {
				return err
			}
		}
		return printEstimates(args[0], est)
	},
}

var acfCmd = &cobra.Command{
	Use:   "acf RESULT.parquet",
	Short: "Plot the autocorrelation function of one element of saved results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		J, err := loadJob()
		if err != nil {
			return err
		}
		element, _ := cmd.Flags().GetInt("element")
		b, _, err := export.ReadResult(args[0])
		if err != nil {
			return err
		}
		series, err := b.Series(element)
		if err != nil {
			return err
		}
		acf, tau, err := acfSummary(series, J.TimestatOptions())
		if err != nil {
			return err
		}
		caption := fmt.Sprintf("ACF of element %d (tau_int: %.2f)", element, tau)
		fmt.Println(asciigraph.Plot(acf, asciigraph.Height(15), asciigraph.Width(80), asciigraph.Caption(caption)))
		if J.Plot != "" {
			if err := tsplot.ACF(J.Plot, caption, acf); err != nil {
				return err
			}
			zap.L().Info("plot written", zap.String("file", J.Plot))
		}
		return nil
	},
}

// acfSummary returns the ACF of series, truncated at the maximum lag in O for
// display, and the integrated autocorrelation time, which is always computed
// from the whole normalized ACF, as CalcError does.
func acfSummary(series []float64, O *timestat.Options) ([]float64, float64, error) {
	full := timestat.DefaultOptions()
	full.Window(O.Window())
	acf, err := timestat.Autocorrelation(series, full)
	if err != nil {
		return nil, 0, err
	}
	tau := timestat.TauInt(acf, O.Window())
	if m := O.MaxLag(); m >= 0 && m+1 < len(acf) {
		acf = acf[:m+1]
	}
	return acf, tau, nil
}

func init() {
	acfCmd.Flags().Int("element", 0, "Element of the observable (index in the flattened row)")
}

// printEstimates prints a table with one row per element of the observable.
func printEstimates(title string, est []export.ElementEstimate) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{"Element", "Mean", "Std. error", "Tau int", "N eff", "N", "Note"})
	table.Caption(tw.Caption{Text: title})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	data := make([][]string, len(est))
	degenerate := 0
	for i, e := range est {
		note := ""
		if e.Failed() {
			note = "degenerate"
			degenerate++
		}
		data[i] = []string{
			strconv.Itoa(i),
			strconv.FormatFloat(e.Mean, 'g', 8, 64),
			strconv.FormatFloat(e.StdErr, 'g', 4, 64),
			strconv.FormatFloat(e.TauInt, 'f', 3, 64),
			strconv.FormatFloat(e.NEff, 'f', 1, 64),
			strconv.Itoa(e.N),
			note,
		}
	}
	if degenerate > 0 {
		zap.L().Warn("elements with a degenerate series, no error estimate", zap.Int("elements", degenerate), zap.String("example", firstFailure(est)))
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func firstFailure(est []export.ElementEstimate) string {
	for _, e := range est {
		if e.Failed() {
			return e.Err
		}
	}
	return ""
}
