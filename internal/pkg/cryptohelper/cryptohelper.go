// Package cryptohelper holds the key material operations of secret
// notifications: one-time secret generation, ECIES wrapping of that secret for
// the recipient, and the symmetric field cipher keyed by it.
package cryptohelper

import (
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/crypto/ecies"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/notify-dapp/internal/domain"
)

// DefaultSecretLength matches the length of secrets issued to recipients.
const DefaultSecretLength = 14

const (
	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	saltSize = 16
	hkdfInfo = "notification-field-v1"
)

// Helper is stateless; the zero value is ready to use. Rand defaults to crypto/rand.
type Helper struct {
	Rand io.Reader
}

func New() Helper { return Helper{} }

func (h Helper) rand() io.Reader {
	if h.Rand != nil {
		return h.Rand
	}
	return rand.Reader
}

// GenerateSecret returns a random alphanumeric string of length n.
func (h Helper) GenerateSecret(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("secret length must be positive, got %d", n)
	}
	size := big.NewInt(int64(len(alphabet)))
	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(h.rand(), size)
		if err != nil {
			return "", fmt.Errorf("generate secret: %w", err)
		}
		sb.WriteByte(alphabet[idx.Int64()])
	}
	return sb.String(), nil
}

// WrapSecret encrypts secret under a secp256k1 public key with ECIES and
// returns the hex ciphertext.
func (h Helper) WrapSecret(secret, publicKeyHex string) (string, error) {
	pub, err := ParsePublicKey(publicKeyHex)
	if err != nil {
		return "", err
	}
	ct, err := ecies.Encrypt(h.rand(), ecies.ImportECDSAPublic(pub), []byte(secret), nil, nil)
	if err != nil {
		return "", fmt.Errorf("ecies encrypt: %v: %w", err, domain.ErrEncryption)
	}
	return hex.EncodeToString(ct), nil
}

// UnwrapSecret is the recipient side of WrapSecret.
func (h Helper) UnwrapSecret(wrappedHex string, key *ecdsa.PrivateKey) (string, error) {
	ct, err := hex.DecodeString(strings.TrimPrefix(wrappedHex, "0x"))
	if err != nil {
		return "", fmt.Errorf("decode wrapped secret: %v: %w", err, domain.ErrEncryption)
	}
	m, err := ecies.ImportECDSA(key).Decrypt(ct, nil, nil)
	if err != nil {
		return "", fmt.Errorf("ecies decrypt: %v: %w", err, domain.ErrEncryption)
	}
	return string(m), nil
}

// ParsePublicKey accepts uncompressed keys with or without the 0x04 marker
// (64 or 65 bytes) and compressed 33 byte keys, hex encoded with optional 0x.
func ParsePublicKey(s string) (*ecdsa.PublicKey, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, fmt.Errorf("public key is not hex: %w", domain.ErrEncryption)
	}
	var pub *ecdsa.PublicKey
	switch len(raw) {
	case 64:
		pub, err = ethcrypto.UnmarshalPubkey(append([]byte{0x04}, raw...))
	case 65:
		pub, err = ethcrypto.UnmarshalPubkey(raw)
	case 33:
		pub, err = ethcrypto.DecompressPubkey(raw)
	default:
		return nil, fmt.Errorf("public key has %d bytes: %w", len(raw), domain.ErrEncryption)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid public key: %v: %w", err, domain.ErrEncryption)
	}
	return pub, nil
}

// EncryptField seals plaintext under a key derived from secret. Output is
// base64(salt || nonce || ciphertext) and differs on every call.
func (h Helper) EncryptField(plaintext, secret string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(h.rand(), salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	aead, err := fieldAEAD(secret, salt)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(h.rand(), nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	out := make([]byte, 0, saltSize+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

// DecryptField reverses EncryptField.
func (h Helper) DecryptField(ciphertext, secret string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decode field: %v: %w", err, domain.ErrEncryption)
	}
	if len(raw) < saltSize+chacha20poly1305.NonceSizeX {
		return "", fmt.Errorf("field ciphertext too short: %w", domain.ErrEncryption)
	}
	salt, rest := raw[:saltSize], raw[saltSize:]
	aead, err := fieldAEAD(secret, salt)
	if err != nil {
		return "", err
	}
	nonce, sealed := rest[:aead.NonceSize()], rest[aead.NonceSize():]
	pt, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("open field: %v: %w", err, domain.ErrEncryption)
	}
	return string(pt), nil
}

func fieldAEAD(secret string, salt []byte) (cipher.AEAD, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), salt, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("derive field key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("field cipher: %w", err)
	}
	return aead, nil
}
