package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// CryptoError signals a failed encrypt/decrypt. It is never recoverable by the
// caller: a record that fails to decrypt must block the dependent operation.
type CryptoError struct {
	Op  string
	Err error
}

func (e *CryptoError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("crypto: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("crypto: %s", e.Op)
}

func (e *CryptoError) Unwrap() error { return e.Err }

// NoSecret is the stored value for "never had a secret". It round-trips through
// Decrypt as empty plaintext, so a connection with an empty token is
// distinguishable from one that was never connected at the vault layer.
const NoSecret = ""

const gcmTagSize = 16

var aead cipher.AEAD

// InitEncryption loads the process-wide data key. Called once from main before
// the server accepts traffic; the resulting cipher is read-only afterwards.
//
// CREDENTIAL_ENCRYPTION_KEY must be base64 of exactly 32 bytes. In production
// a missing or malformed key refuses startup. In development a key is derived
// from a fixed marker so the app still runs, with a loud warning.
func InitEncryption() error {
	encoded := os.Getenv("CREDENTIAL_ENCRYPTION_KEY")

	var key []byte
	if encoded == "" {
		if IsProduction {
			return fmt.Errorf("CREDENTIAL_ENCRYPTION_KEY is required in production")
		}
		sum := sha256.Sum256([]byte("gatherly-dev-only-key-do-not-use"))
		key = sum[:]
		log.Printf("⚠️  CREDENTIAL_ENCRYPTION_KEY not set — using an INSECURE development-only key")
	} else {
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return fmt.Errorf("CREDENTIAL_ENCRYPTION_KEY is not valid base64: %w", err)
		}
		if len(decoded) != 32 {
			return fmt.Errorf("CREDENTIAL_ENCRYPTION_KEY must decode to 32 bytes, got %d", len(decoded))
		}
		key = decoded
	}

	return initAEAD(key)
}

func initAEAD(key []byte) error {
	block, err := aes.NewCipher(key)
	if err != nil {
		return &CryptoError{Op: "init cipher", Err: err}
	}
	g, err := cipher.NewGCM(block)
	if err != nil {
		return &CryptoError{Op: "init gcm", Err: err}
	}
	aead = g
	return nil
}

// Encrypt seals plaintext with a fresh random nonce and returns the envelope
// "base64(nonce):base64(ciphertext):base64(tag)". Empty input returns NoSecret
// instead of encrypting emptiness.
func Encrypt(plaintext []byte) (string, error) {
	if aead == nil {
		return "", &CryptoError{Op: "encrypt", Err: fmt.Errorf("encryption key not initialized")}
	}
	if len(plaintext) == 0 {
		return NoSecret, nil
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", &CryptoError{Op: "encrypt nonce", Err: err}
	}

	sealed := aead.Seal(nil, nonce, plaintext, nil)
	ct, tag := sealed[:len(sealed)-gcmTagSize], sealed[len(sealed)-gcmTagSize:]

	b64 := base64.StdEncoding
	return b64.EncodeToString(nonce) + ":" + b64.EncodeToString(ct) + ":" + b64.EncodeToString(tag), nil
}

// Decrypt opens an envelope produced by Encrypt. Any malformation (wrong field
// count, bad base64, wrong nonce/tag length) or a failed authentication tag
// yields a *CryptoError and no plaintext.
func Decrypt(envelope string) ([]byte, error) {
	if aead == nil {
		return nil, &CryptoError{Op: "decrypt", Err: fmt.Errorf("encryption key not initialized")}
	}
	if envelope == NoSecret {
		return nil, nil
	}

	parts := strings.Split(envelope, ":")
	if len(parts) != 3 {
		return nil, &CryptoError{Op: "decrypt", Err: fmt.Errorf("malformed envelope: %d fields", len(parts))}
	}

	b64 := base64.StdEncoding
	nonce, err := b64.DecodeString(parts[0])
	if err != nil {
		return nil, &CryptoError{Op: "decrypt nonce", Err: err}
	}
	ct, err := b64.DecodeString(parts[1])
	if err != nil {
		return nil, &CryptoError{Op: "decrypt ciphertext", Err: err}
	}
	tag, err := b64.DecodeString(parts[2])
	if err != nil {
		return nil, &CryptoError{Op: "decrypt tag", Err: err}
	}

	if len(nonce) != aead.NonceSize() {
		return nil, &CryptoError{Op: "decrypt", Err: fmt.Errorf("bad nonce length %d", len(nonce))}
	}
	if len(tag) != gcmTagSize {
		return nil, &CryptoError{Op: "decrypt", Err: fmt.Errorf("bad tag length %d", len(tag))}
	}

	plaintext, err := aead.Open(nil, nonce, append(ct, tag...), nil)
	if err != nil {
		return nil, &CryptoError{Op: "decrypt", Err: err}
	}
	return plaintext, nil
}
