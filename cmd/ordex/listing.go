package main

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/tdex-network/ordex-daemon/pkg/ordswap"
	"github.com/urfave/cli/v2"
)

var orderIDFlag = cli.StringFlag{
	Name:     "order_id",
	Usage:    "the id of the listing",
	Required: true,
}

var (
	listings = cli.Command{
		Name:  "listings",
		Usage: "list the open listings of the marketplace",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "page",
				Usage: "the page number, starting from 1",
				Value: 1,
			},
			&cli.IntFlag{
				Name:  "size",
				Usage: "the number of listings per page",
				Value: 20,
			},
		},
		Action: listingsAction,
	}

	listing = cli.Command{
		Name:   "listing",
		Usage:  "get a listing",
		Flags:  []cli.Flag{&orderIDFlag},
		Action: listingAction,
	}

	create = cli.Command{
		Name:  "create",
		Usage: "list an inscription for sale",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "outpoint",
				Usage:    "the <txid>:<vout> of the inscription utxo",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "payout_address",
				Usage:    "the address receiving the price of the sale",
				Required: true,
			},
			&cli.Uint64Flag{
				Name:     "price",
				Usage:    "the price in sats",
				Required: true,
			},
		},
		Action: createAction,
	}

	sign = cli.Command{
		Name: "sign",
		Usage: "sign the template of a listing with the key owning the " +
			"inscription and submit it",
		Flags: []cli.Flag{
			&orderIDFlag,
			&cli.StringFlag{
				Name:     "template",
				Usage:    "the base64 listing template returned by create",
				Required: true,
			},
			&keyFlag,
		},
		Action: signAction,
	}

	cancel = cli.Command{
		Name:  "cancel",
		Usage: "cancel a listing proving ownership of its payout address",
		Flags: []cli.Flag{
			&orderIDFlag,
			&cli.StringFlag{
				Name:     "payout_address",
				Usage:    "the payout address of the listing",
				Required: true,
			},
			&keyFlag,
		},
		Action: cancelAction,
	}
)

type createListingResponse struct {
	OrderID         string                 `json:"order_id"`
	ListingTemplate string                 `json:"listing_template"`
	SigHashPolicy   string                 `json:"sighash_policy"`
	Listing         map[string]interface{} `json:"listing"`
}

func listingsAction(ctx *cli.Context) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	resp := map[string]interface{}{}
	if err := client.get("/v1/listings", map[string]string{
		"page": strconv.Itoa(ctx.Int("page")),
		"size": strconv.Itoa(ctx.Int("size")),
	}, &resp); err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}

func listingAction(ctx *cli.Context) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	resp := map[string]interface{}{}
	if err := client.get(
		"/v1/listings/"+ctx.String("order_id"), nil, &resp,
	); err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}

func createAction(ctx *cli.Context) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	resp := &createListingResponse{}
	if err := client.post("/v1/listings", map[string]interface{}{
		"asset_outpoint": ctx.String("outpoint"),
		"payout_address": ctx.String("payout_address"),
		"price_sats":     ctx.Uint64("price"),
	}, resp); err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}

func signAction(ctx *cli.Context) error {
	key, err := parseKey(ctx.String("key"))
	if err != nil {
		return err
	}
	client, err := getClient()
	if err != nil {
		return err
	}

	signedTemplate, err := signTemplate(ctx.String("template"), key)
	if err != nil {
		return err
	}

	resp := map[string]interface{}{}
	if err := client.post(
		fmt.Sprintf("/v1/listings/%s/signature", ctx.String("order_id")),
		map[string]string{"signed_template": signedTemplate}, &resp,
	); err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}

func cancelAction(ctx *cli.Context) error {
	key, err := parseKey(ctx.String("key"))
	if err != nil {
		return err
	}
	net, err := getNetworkFromState()
	if err != nil {
		return err
	}
	client, err := getClient()
	if err != nil {
		return err
	}

	orderID := ctx.String("order_id")
	payoutAddress := ctx.String("payout_address")
	proof, err := ownershipProof(key, payoutAddress, orderID, net)
	if err != nil {
		return err
	}

	resp := map[string]interface{}{}
	if err := client.post(
		fmt.Sprintf("/v1/listings/%s/cancel", orderID),
		map[string]string{"payout_address": payoutAddress, "proof": proof},
		&resp,
	); err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}

// signTemplate signs the asset input of the listing template with the flag
// the template commits to.
func signTemplate(b64 string, key *btcec.PrivateKey) (string, error) {
	ptx, err := psbt.NewFromRawBytes(bytes.NewBufferString(b64), true)
	if err != nil {
		return "", fmt.Errorf("invalid listing template: %w", err)
	}
	count, err := signInputs(ptx, key, nil)
	if err != nil {
		return "", err
	}
	if count <= 0 {
		return "", errors.New("the key does not own the listed inscription")
	}
	return ptx.B64Encode()
}

// ownershipProof signs the cancel message of the order in the format
// expected for the type of the payout address.
func ownershipProof(
	key *btcec.PrivateKey, payoutAddress, orderID string, net *chaincfg.Params,
) (string, error) {
	addr, err := ordswap.DecodeAddress(payoutAddress, net)
	if err != nil {
		return "", fmt.Errorf("invalid payout address: %w", err)
	}
	if _, ok := addr.(*btcutil.AddressTaproot); ok {
		return ordswap.SignOwnershipSchnorr(key, orderID)
	}
	return ordswap.SignOwnershipCompact(key, orderID)
}
