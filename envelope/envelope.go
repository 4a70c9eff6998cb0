// Package envelope seals the VM's environment variables for the VMM's
// env-encryption public key. Each call generates a fresh ephemeral X25519
// keypair, derives a shared secret with the remote key, and uses it directly
// as an AES-256-GCM key. The raw shared secret is used without a KDF to stay
// wire-compatible with the VMM's decryptor; do not change this silently.
//
// Envelope layout, hex-encoded for transport:
//
//	ephemeral public key (32 bytes) | nonce (12 bytes) | ciphertext+tag
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/curve25519"
)

// NonceSize is the AES-GCM nonce length in bytes.
const NonceSize = 12

// ErrInvalidPublicKey reports a remote public key that is not valid hex or
// does not decode to exactly 32 bytes. It is returned before any key
// agreement or network activity happens.
var ErrInvalidPublicKey = errors.New("invalid env encryption public key")

// Encrypt seals `{"env":<envJSON>}` for the remote X25519 public key given
// as a hex string (an optional "0x" prefix is accepted). The returned value
// is the hex-encoded envelope described in the package comment.
func Encrypt(envJSON, pubkeyHex string) (string, error) {
	remotePub, err := DecodePublicKey(pubkeyHex)
	if err != nil {
		return "", err
	}

	var ephPriv [curve25519.ScalarSize]byte
	if _, err := rand.Read(ephPriv[:]); err != nil {
		return "", fmt.Errorf("generate ephemeral key: %w", err)
	}
	ephPub, err := curve25519.X25519(ephPriv[:], curve25519.Basepoint)
	if err != nil {
		return "", fmt.Errorf("derive ephemeral public key: %w", err)
	}
	shared, err := curve25519.X25519(ephPriv[:], remotePub)
	if err != nil {
		return "", fmt.Errorf("X25519 key agreement: %w", err)
	}

	aead, err := newAEAD(shared)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	plaintext := []byte(`{"env":` + envJSON + `}`)
	ciphertext := aead.Seal(nil, nonce, plaintext, nil)

	out := make([]byte, 0, len(ephPub)+len(nonce)+len(ciphertext))
	out = append(out, ephPub...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return hex.EncodeToString(out), nil
}

// DecodePublicKey parses a hex X25519 public key, stripping an optional
// "0x" prefix and requiring exactly 32 bytes.
func DecodePublicKey(pubkeyHex string) ([]byte, error) {
	trimmed := strings.TrimPrefix(pubkeyHex, "0x")
	key, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	if len(key) != curve25519.PointSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d",
			ErrInvalidPublicKey, curve25519.PointSize, len(key))
	}
	return key, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init AES-256: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init GCM: %w", err)
	}
	return aead, nil
}
