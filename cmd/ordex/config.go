package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/urfave/cli/v2"
)

var (
	networkFlag = cli.StringFlag{
		Name:  "network",
		Usage: "the network ordexd is running on: mainnet, testnet, signet or regtest",
		Value: chaincfg.MainNetParams.Name,
	}

	urlFlag = cli.StringFlag{
		Name:  "url",
		Usage: "ordexd http interface url",
		Value: "http://localhost:9945",
	}
)

var networks = map[string]*chaincfg.Params{
	"mainnet": &chaincfg.MainNetParams,
	"testnet": &chaincfg.TestNet3Params,
	"signet":  &chaincfg.SigNetParams,
	"regtest": &chaincfg.RegressionNetParams,
}

var config = cli.Command{
	Name:   "config",
	Usage:  "Print local configuration of the ordex CLI",
	Action: configAction,
	Subcommands: []*cli.Command{
		{
			Name:   "set",
			Usage:  "set a <key> <value> in the local state",
			Action: configSetAction,
		},
		{
			Name:   "init",
			Usage:  "initialize the local state with flags",
			Action: configInitAction,
			Flags: []cli.Flag{
				&networkFlag,
				&urlFlag,
			},
		},
	},
}

func configAction(ctx *cli.Context) error {
	state, err := getState()
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(state))
	for key := range state {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Println(key + ": " + state[key])
	}

	return nil
}

func configInitAction(c *cli.Context) error {
	if _, ok := networks[c.String("network")]; !ok {
		return fmt.Errorf("unknown network %s", c.String("network"))
	}
	return setState(map[string]string{
		"network": c.String("network"),
		"url":     c.String("url"),
	})
}

func configSetAction(c *cli.Context) error {
	if c.NArg() < 2 {
		return errors.New("key and value are missing")
	}

	key := c.Args().Get(0)
	value := c.Args().Get(1)

	if key == "network" {
		if _, ok := networks[value]; !ok {
			return fmt.Errorf("unknown network %s", value)
		}
	}

	if err := setState(map[string]string{key: value}); err != nil {
		return err
	}

	fmt.Printf("%s %s has been set\n", key, value)
	return nil
}

func getNetworkFromState() (*chaincfg.Params, error) {
	state, err := getState()
	if err != nil {
		return nil, err
	}
	net, ok := networks[state["network"]]
	if !ok {
		return nil, errors.New("set network with `config set network`")
	}
	return net, nil
}
