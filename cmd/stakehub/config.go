// Copyright (c) 2025 The Arkos StakeHub developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"os"

	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"
	"gopkg.in/yaml.v3"
)

// Config is the optional yaml companion of the command line flags. Flag
// values win over file values when both are set.
type Config struct {
	DataDir   string   `yaml:"dataDir"`
	APIAddr   string   `yaml:"apiAddr"`
	APICors   string   `yaml:"apiCors"`
	Admins    []string `yaml:"admins"`
	Operators []string `yaml:"operators"`
	Guardians []string `yaml:"guardians"`

	MinStake  uint64 `yaml:"minStake"`
	Intervals struct {
		Stake   uint64 `yaml:"stake"`
		Unstake uint64 `yaml:"unstake"`
		Claim   uint64 `yaml:"claim"`
	} `yaml:"intervals"`
}

func loadConfig(ctx *cli.Context) (*Config, error) {
	var config Config
	if path := ctx.String(configFlag.Name); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	}

	if ctx.IsSet(dataDirFlag.Name) || config.DataDir == "" {
		config.DataDir = ctx.String(dataDirFlag.Name)
	}
	if ctx.IsSet(apiAddrFlag.Name) || config.APIAddr == "" {
		config.APIAddr = ctx.String(apiAddrFlag.Name)
	}
	if ctx.IsSet(apiCorsFlag.Name) {
		config.APICors = ctx.String(apiCorsFlag.Name)
	}
	config.Admins = append(config.Admins, ctx.StringSlice(adminFlag.Name)...)
	config.Operators = append(config.Operators, ctx.StringSlice(operatorFlag.Name)...)
	config.Guardians = append(config.Guardians, ctx.StringSlice(guardianFlag.Name)...)
	return &config, nil
}
