package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/scrypt"
)

const (
	plainKeyBlockType     = "RSA PRIVATE KEY"
	encryptedKeyBlockType = "ENCRYPTED ESCROW KEY"

	saltLen = 32
)

var (
	// ErrInvalidKeyFile ...
	ErrInvalidKeyFile = errors.New("invalid escrow key file")
	// ErrNullPassphrase ...
	ErrNullPassphrase = errors.New("passphrase must not be null")
	// ErrInvalidPassphrase ...
	ErrInvalidPassphrase = errors.New("passphrase is not valid")
)

// GenerateKey returns a new RSA key of the given size, or DefaultKeyBits if
// bits is zero.
func GenerateKey(bits int) (*rsa.PrivateKey, error) {
	if bits <= 0 {
		bits = DefaultKeyBits
	}
	return rsa.GenerateKey(rand.Reader, bits)
}

// EncodePrivateKey serializes the key to PEM. If a passphrase is given the
// DER bytes are encrypted with AES-GCM under a scrypt-derived key.
func EncodePrivateKey(key *rsa.PrivateKey, passphrase string) ([]byte, error) {
	if key == nil {
		return nil, ErrNullPrivateKey
	}
	der := x509.MarshalPKCS1PrivateKey(key)
	defer wipe(der)

	if passphrase == "" {
		return pem.EncodeToMemory(&pem.Block{Type: plainKeyBlockType, Bytes: der}), nil
	}

	encrypted, err := encrypt(der, []byte(passphrase))
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(
		&pem.Block{Type: encryptedKeyBlockType, Bytes: encrypted},
	), nil
}

// DecodePrivateKey parses a PEM key produced by EncodePrivateKey.
func DecodePrivateKey(data []byte, passphrase string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrInvalidKeyFile
	}

	switch block.Type {
	case plainKeyBlockType:
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case encryptedKeyBlockType:
		if passphrase == "" {
			return nil, ErrNullPassphrase
		}
		der, err := decrypt(block.Bytes, []byte(passphrase))
		if err != nil {
			return nil, err
		}
		defer wipe(der)
		return x509.ParsePKCS1PrivateKey(der)
	default:
		return nil, ErrInvalidKeyFile
	}
}

// LoadOrCreateCipher reads the escrow key at path, creating and storing a
// new one if the file does not exist yet.
func LoadOrCreateCipher(path, passphrase string, bits int) (*Cipher, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}

		key, err := GenerateKey(bits)
		if err != nil {
			return nil, err
		}
		data, err := EncodePrivateKey(key, passphrase)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), os.ModeDir|0700); err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, data, 0600); err != nil {
			return nil, fmt.Errorf("writing escrow key: %w", err)
		}
		return New(key)
	}

	key, err := DecodePrivateKey(data, passphrase)
	if err != nil {
		return nil, err
	}
	return New(key)
}

func encrypt(plaintext, passphrase []byte) ([]byte, error) {
	key, salt, err := deriveKey(passphrase, nil)
	if err != nil {
		return nil, err
	}
	defer wipe(key)

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err = rand.Read(nonce); err != nil {
		return nil, err
	}

	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	return append(ciphertext, salt...), nil
}

func decrypt(data, passphrase []byte) ([]byte, error) {
	if len(data) < saltLen {
		return nil, ErrInvalidKeyFile
	}
	salt, data := data[len(data)-saltLen:], data[:len(data)-saltLen]

	key, _, err := deriveKey(passphrase, salt)
	if err != nil {
		return nil, err
	}
	defer wipe(key)

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(data) < gcm.NonceSize() {
		return nil, ErrInvalidKeyFile
	}
	nonce, text := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, text, nil)
	if err != nil {
		return nil, ErrInvalidPassphrase
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	blockCipher, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(blockCipher)
}

// deriveKey stretches the passphrase with scrypt, generating a random salt
// if none is given.
func deriveKey(passphrase, salt []byte) ([]byte, []byte, error) {
	if salt == nil {
		salt = make([]byte, saltLen)
		if _, err := rand.Read(salt); err != nil {
			return nil, nil, err
		}
	}
	// N = 2^15, r = 8, p = 1
	key, err := scrypt.Key(passphrase, salt, 1<<15, 8, 1, 32)
	if err != nil {
		return nil, nil, err
	}
	return key, salt, nil
}
