package main

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/urfave/cli/v2"
)

var attemptIDFlag = cli.StringFlag{
	Name:     "attempt_id",
	Usage:    "the id of the purchase attempt",
	Required: true,
}

var (
	prepare = cli.Command{
		Name:  "prepare",
		Usage: "get the purchase transaction of a listing to sign",
		Flags: []cli.Flag{
			&orderIDFlag,
			&cli.StringFlag{
				Name:     "buyer_address",
				Usage:    "the address receiving the inscription",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "change_address",
				Usage:    "the address receiving the change of the buyer inputs",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:     "input",
				Usage:    "the <txid>:<vout> of a buyer utxo, can be repeated",
				Required: true,
			},
			&cli.Uint64Flag{
				Name:     "fee_rate",
				Usage:    "the miner fee rate in sats/vbyte",
				Required: true,
			},
		},
		Action: prepareAction,
	}

	finalize = cli.Command{
		Name:  "finalize",
		Usage: "submit the signed purchase transaction to settle the sale",
		Flags: []cli.Flag{
			&orderIDFlag,
			&attemptIDFlag,
			&cli.StringFlag{
				Name:     "psbt",
				Usage:    "the base64 purchase psbt returned by prepare",
				Required: true,
			},
			&cli.StringFlag{
				Name: "key",
				Usage: "hex encoded private key of the buyer inputs, leave empty " +
					"if the psbt is already signed",
			},
		},
		Action: finalizeAction,
	}

	attempt = cli.Command{
		Name:   "attempt",
		Usage:  "get the status of a purchase attempt",
		Flags:  []cli.Flag{&attemptIDFlag},
		Action: attemptAction,
	}
)

type purchaseInput struct {
	Outpoint string `json:"outpoint"`
}

type finalizeResponse struct {
	TxID string `json:"txid"`
}

func prepareAction(ctx *cli.Context) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	outpoints := ctx.StringSlice("input")
	inputs := make([]purchaseInput, 0, len(outpoints))
	for _, outpoint := range outpoints {
		inputs = append(inputs, purchaseInput{outpoint})
	}

	resp := map[string]interface{}{}
	if err := client.post(
		fmt.Sprintf("/v1/listings/%s/purchases", ctx.String("order_id")),
		map[string]interface{}{
			"buyer_address":        ctx.String("buyer_address"),
			"buyer_change_address": ctx.String("change_address"),
			"buyer_inputs":         inputs,
			"fee_rate":             ctx.Uint64("fee_rate"),
		}, &resp,
	); err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}

func finalizeAction(ctx *cli.Context) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	signedPsbt := ctx.String("psbt")
	if keyStr := ctx.String("key"); keyStr != "" {
		if signedPsbt, err = signPurchase(signedPsbt, keyStr); err != nil {
			return err
		}
	}

	resp := &finalizeResponse{}
	if err := client.post(
		fmt.Sprintf(
			"/v1/listings/%s/purchases/%s/finalize",
			ctx.String("order_id"), ctx.String("attempt_id"),
		),
		map[string]string{"buyer_signed_psbt": signedPsbt}, resp,
	); err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}

func attemptAction(ctx *cli.Context) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	resp := map[string]interface{}{}
	if err := client.get(
		"/v1/purchases/"+ctx.String("attempt_id"), nil, &resp,
	); err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}

// signPurchase signs the buyer inputs of the purchase psbt. The asset input
// at index 0 is left to the marketplace.
func signPurchase(b64, keyStr string) (string, error) {
	key, err := parseKey(keyStr)
	if err != nil {
		return "", err
	}
	ptx, err := psbt.NewFromRawBytes(bytes.NewBufferString(b64), true)
	if err != nil {
		return "", fmt.Errorf("invalid purchase psbt: %w", err)
	}
	count, err := signInputs(ptx, key, map[int]bool{0: true})
	if err != nil {
		return "", err
	}
	if count <= 0 {
		return "", errors.New("the key does not own any buyer input")
	}
	return ptx.B64Encode()
}
