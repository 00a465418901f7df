/*
 * root.go, part of trajstat.
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
	"strings"

	"github.com/rmera/trajstat/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "trajstat",
	Short: "Parallel analysis of trajectory observables and their statistical errors.",
	Long: `trajstat evaluates an observable on every analyzed frame of a trajectory, splitting
the frames among workers, gathers the time series and estimates the error of its
mean from the integrated autocorrelation time.`,
	Version:           version,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

func init() {
	cobra.OnInitialize(initConfig)
	J := config.DefaultJob()
	f := rootCmd.PersistentFlags()
	f.String("config", "", "Path to a YAML job file")
	f.Bool("verbose", false, "Log debug messages")
	f.Bool("json-log", false, "Log in JSON format")
	f.StringP("input", "i", "", "Input trajectory (STF format)")
	f.StringP("observable", "o", J.Observable, "Observable to compute: "+observableList())
	f.StringSlice("args", nil, "Comma-separated numeric arguments of the observable")
	f.IntP("workers", "w", J.Workers, "Number of workers")
	f.Int("stride", J.Stride, "Analyze one of every stride frames")
	f.Int("offset", J.Offset, "First frame to analyze")
	f.Bool("folded", J.Folded, "Use the positions as stored, instead of unwrapping them")
	f.Float64("window", J.Window, "Cutoff factor for the integrated autocorrelation time (0 sums the whole ACF)")
	f.Int("max-lag", J.MaxLag, "Largest lag of the printed ACF (negative for all)")
	f.String("output", J.Output, "Parquet file for the gathered results")
	f.String("errors", J.Errors, "Parquet file for the error estimates")
	f.String("plot", "", "Image file for a plot of the ACF")
	f.String("listen", "", "Address where the coordinator waits for remote workers")
	if err := viper.BindPFlags(f); err != nil {
		panic(err)
	}
	if err := viper.BindPFlag("max_lag", f.Lookup("max-lag")); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(runCmd, workerCmd, errorCmd, acfCmd)
}

// initConfig reads the config file, if any, and the environment variables.
func initConfig() {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".trajstat")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}
	viper.SetEnvPrefix("TRAJSTAT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// setup reads the configuration and installs the global logger.
func setup(cmd *cobra.Command, _ []string) error {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	zap.ReplaceGlobals(newLogger(viper.GetBool("verbose"), viper.GetBool("json-log")))
	return nil
}

// loadJob merges defaults, config file, environment and flags into a job.
func loadJob() (*config.Job, error) {
	J := config.DefaultJob()
	if err := viper.Unmarshal(J); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config: %w", err)
	}
	return J, nil
}

func newLogger(verbose, json bool) *zap.Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		NameKey:     "logger",
		EncodeTime:  zapcore.RFC3339TimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}
	encoder := zapcore.NewConsoleEncoder(encoderConfig)
	if json {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)
	return zap.New(core).Named("trajstat")
}
