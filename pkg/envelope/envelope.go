// Package envelope implements the hybrid encryption used to escrow seller
// signatures: each payload is sealed with a fresh symmetric key that is in
// turn wrapped with the service RSA public key.
package envelope

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// DefaultKeyBits is the size of the RSA modulus generated by GenerateKey
	// when none is specified.
	DefaultKeyBits = 3072

	symmetricKeyLen = chacha20poly1305.KeySize
)

var oaepLabel = []byte("ordex/escrow/v1")

var (
	// ErrNullPlainText ...
	ErrNullPlainText = errors.New("plaintext must not be null")
	// ErrNullPublicKey ...
	ErrNullPublicKey = errors.New("public key must not be null")
	// ErrNullPrivateKey ...
	ErrNullPrivateKey = errors.New("private key must not be null")
	// ErrSealOnly is returned by Open for ciphers built without a private key.
	ErrSealOnly = errors.New("cipher can only seal")
	// ErrOpenFailed is returned whenever unsealing fails, no matter the
	// reason, so that callers never see partial plaintext.
	ErrOpenFailed = errors.New("failed to open envelope")
)

// Cipher seals and opens envelopes.
type Cipher struct {
	pubkey  *rsa.PublicKey
	privkey *rsa.PrivateKey
	rand    io.Reader
}

// New returns a Cipher able to both seal and open envelopes.
func New(key *rsa.PrivateKey) (*Cipher, error) {
	if key == nil {
		return nil, ErrNullPrivateKey
	}
	return &Cipher{&key.PublicKey, key, rand.Reader}, nil
}

// NewSealer returns a Cipher that can only seal envelopes.
func NewSealer(pubkey *rsa.PublicKey) (*Cipher, error) {
	if pubkey == nil {
		return nil, ErrNullPublicKey
	}
	return &Cipher{pubkey, nil, rand.Reader}, nil
}

// PublicKey returns the key used to wrap symmetric keys.
func (c *Cipher) PublicKey() *rsa.PublicKey {
	return c.pubkey
}

// Seal encrypts the plaintext with a freshly generated symmetric key and
// returns the ciphertext, prefixed by its nonce, along with the wrapped key.
func (c *Cipher) Seal(plaintext []byte) (ciphertext, wrappedKey []byte, err error) {
	if len(plaintext) <= 0 {
		return nil, nil, ErrNullPlainText
	}

	key := make([]byte, symmetricKeyLen)
	defer wipe(key)
	if _, err := io.ReadFull(c.rand, key); err != nil {
		return nil, nil, fmt.Errorf("generating symmetric key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, nil, err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return nil, nil, fmt.Errorf("generating nonce: %w", err)
	}
	ciphertext = aead.Seal(nonce, nonce, plaintext, nil)

	wrappedKey, err = rsa.EncryptOAEP(sha256.New(), c.rand, c.pubkey, key, oaepLabel)
	if err != nil {
		return nil, nil, fmt.Errorf("wrapping symmetric key: %w", err)
	}

	return ciphertext, wrappedKey, nil
}

// Open unwraps the symmetric key and decrypts the ciphertext. Any failure
// results in ErrOpenFailed.
func (c *Cipher) Open(ciphertext, wrappedKey []byte) ([]byte, error) {
	if c.privkey == nil {
		return nil, ErrSealOnly
	}

	key, err := rsa.DecryptOAEP(sha256.New(), nil, c.privkey, wrappedKey, oaepLabel)
	if err != nil {
		return nil, ErrOpenFailed
	}
	defer wipe(key)
	if len(key) != symmetricKeyLen {
		return nil, ErrOpenFailed
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, ErrOpenFailed
	}
	if len(ciphertext) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrOpenFailed
	}
	nonce, data := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, data, nil)
	if err != nil {
		return nil, ErrOpenFailed
	}
	return plaintext, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
