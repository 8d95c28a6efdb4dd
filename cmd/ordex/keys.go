package main

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/urfave/cli/v2"
)

var keyFlag = cli.StringFlag{
	Name:     "key",
	Usage:    "hex encoded private key of the taproot output key",
	Required: true,
}

var genkey = cli.Command{
	Name:   "genkey",
	Usage:  "generate a new private key and its taproot address",
	Action: genKeyAction,
}

type keyInfo struct {
	PrivateKey string `json:"private_key"`
	Address    string `json:"address"`
}

func genKeyAction(ctx *cli.Context) error {
	net, err := getNetworkFromState()
	if err != nil {
		return err
	}

	key, err := btcec.NewPrivateKey()
	if err != nil {
		return err
	}
	addr, err := taprootAddress(key, net)
	if err != nil {
		return err
	}

	printRespJSON(keyInfo{
		PrivateKey: hex.EncodeToString(key.Serialize()),
		Address:    addr.EncodeAddress(),
	})
	return nil
}

func parseKey(str string) (*btcec.PrivateKey, error) {
	buf, err := hex.DecodeString(str)
	if err != nil || len(buf) != btcec.PrivKeyBytesLen {
		return nil, fmt.Errorf("private key must be 32 bytes in hex format")
	}
	key, _ := btcec.PrivKeyFromBytes(buf)
	return key, nil
}

// taprootAddress returns the address whose output key is the public key of
// the given private key.
func taprootAddress(
	key *btcec.PrivateKey, net *chaincfg.Params,
) (*btcutil.AddressTaproot, error) {
	return btcutil.NewAddressTaproot(
		schnorr.SerializePubKey(key.PubKey()), net,
	)
}

func taprootScript(key *btcec.PrivateKey) []byte {
	script, _ := txscript.NewScriptBuilder().
		AddOp(txscript.OP_1).
		AddData(schnorr.SerializePubKey(key.PubKey())).
		Script()
	return script
}

// signInputs adds a key-path signature to every input of the psbt locked by
// the given key, except those in skip. It returns the number of signed
// inputs.
func signInputs(
	ptx *psbt.Packet, key *btcec.PrivateKey, skip map[int]bool,
) (int, error) {
	tx := ptx.UnsignedTx
	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	for i, in := range ptx.Inputs {
		if in.WitnessUtxo == nil {
			return 0, fmt.Errorf("input %d is missing the witness utxo", i)
		}
		fetcher.AddPrevOut(tx.TxIn[i].PreviousOutPoint, in.WitnessUtxo)
	}
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)

	script := taprootScript(key)
	count := 0
	for i, in := range ptx.Inputs {
		if skip[i] || !bytes.Equal(in.WitnessUtxo.PkScript, script) {
			continue
		}
		hashType := in.SighashType
		sigHash, err := txscript.CalcTaprootSignatureHash(
			sigHashes, hashType, tx, i, fetcher,
		)
		if err != nil {
			return 0, err
		}
		sig, err := schnorr.Sign(key, sigHash)
		if err != nil {
			return 0, err
		}
		raw := sig.Serialize()
		if hashType != txscript.SigHashDefault {
			raw = append(raw, byte(hashType))
		}
		ptx.Inputs[i].TaprootKeySpendSig = raw
		count++
	}
	return count, nil
}
