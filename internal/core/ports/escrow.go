package ports

// SignatureEscrow seals secrets so that only the holder of the service
// private key can open them.
type SignatureEscrow interface {
	Seal(plaintext []byte) (ciphertext, wrappedKey []byte, err error)
	// Open must fail without returning any data if the envelope has been
	// tampered with.
	Open(ciphertext, wrappedKey []byte) ([]byte, error)
}
