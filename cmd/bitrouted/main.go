// Copyright 2025 The bitroute Authors
// This file is part of bitroute.
//
// bitroute is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// bitroute is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with bitroute. If not, see <http://www.gnu.org/licenses/>.

// bitrouted is the query and notification gateway daemon.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/bitroute/bitroute/config"
	"github.com/bitroute/bitroute/node"
	"github.com/bitroute/bitroute/params"
	"github.com/bitroute/bitroute/server"
)

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	logLevelFlag = &cli.StringFlag{
		Name:  "loglevel",
		Usage: "Logging verbosity (trace, debug, info, warn, error)",
	}
	logFileFlag = &cli.StringFlag{
		Name:  "logfile",
		Usage: "Write logs to this rotated file instead of stderr",
	}
	workersFlag = &cli.IntFlag{
		Name:  "workers",
		Usage: "Query worker pool size per endpoint",
	}
)

func main() {
	app := &cli.App{
		Name:    "bitrouted",
		Usage:   "Bitcoin blockchain query and notification gateway",
		Version: params.Version,
		Flags:   []cli.Flag{configFlag, logLevelFlag, logFileFlag, workersFlag},
		Action:  run,
		Commands: []*cli.Command{
			{
				Name:   "settings",
				Usage:  "Print the effective configuration as TOML",
				Flags:  []cli.Flag{configFlag, workersFlag},
				Action: dumpSettings,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadSettings(ctx *cli.Context) (*config.Settings, error) {
	settings := config.Defaults()
	if path := ctx.String(configFlag.Name); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		settings = loaded
	}
	if ctx.IsSet(logLevelFlag.Name) {
		settings.LogLevel = ctx.String(logLevelFlag.Name)
	}
	if ctx.IsSet(logFileFlag.Name) {
		settings.LogFile = ctx.String(logFileFlag.Name)
	}
	if ctx.IsSet(workersFlag.Name) {
		settings.QueryWorkers = ctx.Int(workersFlag.Name)
	}
	return settings, settings.Validate()
}

func setupLogging(settings *config.Settings) error {
	level, err := logrus.ParseLevel(settings.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q", settings.LogLevel)
	}
	logrus.SetLevel(level)
	if settings.LogFile != "" {
		logrus.SetOutput(&lumberjack.Logger{
			Filename:   settings.LogFile,
			MaxSize:    100, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
	}
	return nil
}

func run(ctx *cli.Context) error {
	settings, err := loadSettings(ctx)
	if err != nil {
		return err
	}
	if err := setupLogging(settings); err != nil {
		return err
	}

	srv := server.New(settings, node.NewMemory())
	if err := srv.Start(); err != nil {
		return err
	}

	var group errgroup.Group
	group.Go(func() error {
		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)
		sig := <-interrupt
		logrus.WithField("signal", sig).Info("Shutting down")
		srv.Stop()
		return nil
	})
	return group.Wait()
}

func dumpSettings(ctx *cli.Context) error {
	settings, err := loadSettings(ctx)
	if err != nil {
		return err
	}
	out, err := settings.Dump()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}
