package ordswap

import (
	"strings"

	"github.com/btcsuite/btcd/txscript"
)

// SigHashPolicy is the signature-hash mode sellers must sign listing
// templates with. A deployment uses exactly one policy.
type SigHashPolicy string

const (
	// PolicySingle makes the seller commit to its input and to the payout
	// output at the same index (SIGHASH_SINGLE|ANYONECANPAY).
	PolicySingle SigHashPolicy = "single"
	// PolicyNone makes the seller commit to its input only
	// (SIGHASH_NONE|ANYONECANPAY).
	PolicyNone SigHashPolicy = "none"
)

// ParsePolicy returns the policy with the given name.
func ParsePolicy(name string) (SigHashPolicy, error) {
	switch p := SigHashPolicy(strings.ToLower(strings.TrimSpace(name))); p {
	case PolicySingle, PolicyNone:
		return p, nil
	default:
		return "", ErrInvalidPolicy
	}
}

// SigHashType returns the sighash flag sellers are expected to sign with.
func (p SigHashPolicy) SigHashType() txscript.SigHashType {
	if p == PolicyNone {
		return txscript.SigHashNone | txscript.SigHashAnyOneCanPay
	}
	return txscript.SigHashSingle | txscript.SigHashAnyOneCanPay
}

func (p SigHashPolicy) String() string {
	return string(p)
}
