// Copyright (c) 2025 The Arkos StakeHub developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/arkos-network/stakehub/api"
	"github.com/arkos-network/stakehub/arkos"
	"github.com/arkos-network/stakehub/log"
	"github.com/arkos-network/stakehub/metrics"
	"github.com/arkos-network/stakehub/oracle"
	"github.com/arkos-network/stakehub/staking"
	"github.com/arkos-network/stakehub/staking/timelock"
	"github.com/arkos-network/stakehub/state"
)

var (
	version   string
	gitCommit string
	gitTag    string

	logger = log.WithContext("pkg", "main")
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "StakeHub",
		Usage:     "Delegated staking ledger of the Arkos network",
		Copyright: "2025 Arkos Network",
		Flags: []cli.Flag{
			dataDirFlag,
			configFlag,
			memFlag,
			apiAddrFlag,
			apiCorsFlag,
			verbosityFlag,
			jsonLogsFlag,
			enableAPILogsFlag,
			enableMetricsFlag,
			pprofFlag,
			adminFlag,
			operatorFlag,
			guardianFlag,
		},
		Action: defaultAction,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultAction(ctx *cli.Context) error {
	initLogger(ctx)
	defer func() { logger.Info("exited") }()

	config, err := loadConfig(ctx)
	if err != nil {
		fatal(err)
	}

	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
	}

	mainDB, err := openMainDB(ctx, config.DataDir)
	if err != nil {
		fatal(err)
	}
	defer func() { logger.Info("closing main database..."); mainDB.Close() }()

	source := oracle.NewStatic()
	ledger := staking.New(state.New(mainDB),
		staking.WithOracle(source),
		staking.WithWrapper(source),
	)

	grants, err := grantsFromConfig(config)
	if err != nil {
		fatal(err)
	}
	if len(grants) > 0 {
		if err := ledger.Bootstrap(grants); err != nil {
			fatal(err)
		}
	}
	if err := applyParams(ledger, config); err != nil {
		fatal(err)
	}

	handler := api.New(ledger, api.Options{
		AllowedOrigins:  config.APICors,
		PprofOn:         ctx.Bool(pprofFlag.Name),
		EnableReqLogger: ctx.Bool(enableAPILogsFlag.Name),
		EnableMetrics:   ctx.Bool(enableMetricsFlag.Name),
	})

	listener, err := net.Listen("tcp", config.APIAddr)
	if err != nil {
		fatal(err)
	}
	srv := &http.Server{Handler: handler}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Serve(listener)
	}()
	logger.Info("API service started",
		"addr", listener.Addr(),
		"data-dir", config.DataDir,
		"version", fullVersion(),
	)

	select {
	case err := <-errChan:
		return err
	case <-handleExitSignal():
	}

	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// applyParams writes config-file parameter overrides through the first
// configured admin account.
func applyParams(ledger *staking.Ledger, config *Config) error {
	hasOverride := config.MinStake != 0 ||
		config.Intervals.Stake != 0 ||
		config.Intervals.Unstake != 0 ||
		config.Intervals.Claim != 0
	if !hasOverride {
		return nil
	}
	if len(config.Admins) == 0 {
		return errors.New("parameter overrides require a configured admin")
	}
	admin, err := arkos.ParseAddress(config.Admins[0])
	if err != nil {
		return err
	}
	if config.MinStake != 0 {
		if err := ledger.SetMinStake(*admin, config.MinStake); err != nil {
			return err
		}
	}
	for kind, seconds := range map[timelock.Kind]uint64{
		timelock.KindStake:   config.Intervals.Stake,
		timelock.KindUnstake: config.Intervals.Unstake,
		timelock.KindClaim:   config.Intervals.Claim,
	} {
		if seconds == 0 {
			continue
		}
		if err := ledger.SetInterval(*admin, kind, seconds); err != nil {
			return err
		}
	}
	return nil
}
