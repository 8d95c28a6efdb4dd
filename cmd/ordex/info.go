package main

import (
	"github.com/urfave/cli/v2"
)

var info = cli.Command{
	Name:   "info",
	Usage:  "get the terms of the marketplace",
	Action: infoAction,
}

func infoAction(ctx *cli.Context) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	resp := map[string]interface{}{}
	if err := client.get("/v1/info", nil, &resp); err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}
