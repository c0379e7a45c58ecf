// Copyright (c) 2025 The Arkos StakeHub developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	isatty "github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/arkos-network/stakehub/arkos"
	"github.com/arkos-network/stakehub/auth"
	"github.com/arkos-network/stakehub/log"
	"github.com/arkos-network/stakehub/lvldb"
)

func fatal(args ...interface{}) {
	fmt.Fprint(os.Stderr, "Fatal: ")
	fmt.Fprintln(os.Stderr, args...)
	os.Exit(1)
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".stakehub")
}

// initLogger picks logfmt for terminals and JSON otherwise, unless forced.
func initLogger(ctx *cli.Context) {
	level := &slog.LevelVar{}
	switch ctx.Int(verbosityFlag.Name) {
	case 0:
		level.Set(slog.LevelError + 1) // silent
	case 1:
		level.Set(slog.LevelError)
	case 2:
		level.Set(slog.LevelWarn)
	case 3:
		level.Set(slog.LevelInfo)
	case 4:
		level.Set(slog.LevelDebug)
	default:
		level.Set(log.LevelTrace)
	}

	useJSON := ctx.Bool(jsonLogsFlag.Name) || !isatty.IsTerminal(os.Stderr.Fd())
	var handler slog.Handler
	if useJSON {
		handler = log.JSONHandlerWithLevel(os.Stderr, level)
	} else {
		handler = log.LogfmtHandlerWithLevel(os.Stderr, level)
	}
	log.SetDefault(log.NewLogger(handler))
}

func openMainDB(ctx *cli.Context, dataDir string) (*lvldb.LevelDB, error) {
	if ctx.Bool(memFlag.Name) {
		return lvldb.NewMem()
	}
	if dataDir == "" {
		return nil, errors.New("unable to resolve data directory")
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, errors.Wrap(err, "failed to create data directory")
	}
	db, err := lvldb.New(filepath.Join(dataDir, "ledger.db"), lvldb.Options{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open main database")
	}
	return db, nil
}

// grantsFromConfig builds the bootstrap capability set.
func grantsFromConfig(config *Config) (map[arkos.Address]auth.Capability, error) {
	grants := make(map[arkos.Address]auth.Capability)
	add := func(addrs []string, caps auth.Capability) error {
		for _, s := range addrs {
			addr, err := arkos.ParseAddress(s)
			if err != nil {
				return errors.WithMessage(err, s)
			}
			grants[*addr] |= caps
		}
		return nil
	}
	if err := add(config.Admins, auth.CapAdmin|auth.CapManager); err != nil {
		return nil, err
	}
	if err := add(config.Operators, auth.CapOperator); err != nil {
		return nil, err
	}
	if err := add(config.Guardians, auth.CapEmergency); err != nil {
		return nil, err
	}
	return grants, nil
}

func handleExitSignal() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
		<-signals
		close(done)
	}()
	return done
}
