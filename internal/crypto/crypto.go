package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/hkdf"
)

// MaxSignatureAge is how old a signed ping request may be before the
// receiver rejects it as a possible replay.
const MaxSignatureAge = 60 * time.Second

// blobSeparator splits the encoded nonce from the encoded ciphertext in a
// stored or transported blob.
const blobSeparator = ":"

// Keyring holds the three independent key spaces used by the service:
// per-user at-rest encryption, transit encryption, and request signing.
// Compromise of any one key space must not expose material protected by
// the other two.
type Keyring struct {
	master  []byte
	transit cipher.AEAD
	signing []byte
}

// NewKeyring creates a Keyring from three base64-encoded 32-byte secrets.
func NewKeyring(masterB64, transitB64, signingB64 string) (*Keyring, error) {
	master, err := decodeSecret("master", masterB64)
	if err != nil {
		return nil, err
	}
	transitKey, err := decodeSecret("transit", transitB64)
	if err != nil {
		return nil, err
	}
	signing, err := decodeSecret("signing", signingB64)
	if err != nil {
		return nil, err
	}

	// The transit key is not per-user; derive its AEAD once.
	transit, err := newAEAD(deriveKey(transitKey, "window-warmer/transit"))
	if err != nil {
		return nil, fmt.Errorf("failed to build transit cipher: %w", err)
	}

	return &Keyring{master: master, transit: transit, signing: signing}, nil
}

func decodeSecret(name, b64 string) ([]byte, error) {
	if b64 == "" {
		return nil, fmt.Errorf("%s secret is required", name)
	}
	key, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s secret: %w", name, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%s secret must be 32 bytes, got %d bytes", name, len(key))
	}
	return key, nil
}

// deriveKey expands a 32-byte secret into a purpose-bound AES-256 key via
// HKDF-SHA256. The info string binds the key to its use so the same secret
// can never serve two purposes.
func deriveKey(secret []byte, info string) []byte {
	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, secret, nil, []byte(info))
	if _, err := io.ReadFull(kdf, key); err != nil {
		// HKDF over SHA-256 cannot fail for a 32-byte read.
		panic(fmt.Sprintf("hkdf expand failed: %v", err))
	}
	return key
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher block: %w", err)
	}
	return cipher.NewGCM(block)
}

// userAEAD builds the at-rest AEAD for one user. Every user gets a distinct
// key derived from the master secret and the user identifier.
func (k *Keyring) userAEAD(userID string) (cipher.AEAD, error) {
	return newAEAD(deriveKey(k.master, "window-warmer/at-rest/"+userID))
}

// EncryptAtRest encrypts a credential for storage under the user's derived
// key. Output format: base64(nonce) ":" base64(ciphertext). The user ID is
// bound as associated data, so a blob moved between users fails to decrypt.
func (k *Keyring) EncryptAtRest(userID, plaintext string) (string, error) {
	aead, err := k.userAEAD(userID)
	if err != nil {
		return "", err
	}
	return seal(aead, plaintext, []byte(userID))
}

// DecryptAtRest reverses EncryptAtRest.
func (k *Keyring) DecryptAtRest(userID, blob string) (string, error) {
	aead, err := k.userAEAD(userID)
	if err != nil {
		return "", err
	}
	return open(aead, blob, []byte(userID))
}

// EncryptTransit encrypts a decrypted credential for the hop to the
// execution collaborator. Uses a key independent of the at-rest key space.
func (k *Keyring) EncryptTransit(plaintext string) (string, error) {
	return seal(k.transit, plaintext, nil)
}

// DecryptTransit reverses EncryptTransit.
func (k *Keyring) DecryptTransit(blob string) (string, error) {
	return open(k.transit, blob, nil)
}

func seal(aead cipher.AEAD, plaintext string, aad []byte) (string, error) {
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := aead.Seal(nil, nonce, []byte(plaintext), aad)

	return base64.StdEncoding.EncodeToString(nonce) + blobSeparator +
		base64.StdEncoding.EncodeToString(ciphertext), nil
}

func open(aead cipher.AEAD, blob string, aad []byte) (string, error) {
	encNonce, encCiphertext, found := strings.Cut(blob, blobSeparator)
	if !found {
		return "", fmt.Errorf("malformed blob: missing separator")
	}

	nonce, err := base64.StdEncoding.DecodeString(encNonce)
	if err != nil {
		return "", fmt.Errorf("failed to decode nonce: %w", err)
	}
	if len(nonce) != aead.NonceSize() {
		return "", fmt.Errorf("invalid nonce length %d", len(nonce))
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encCiphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	return string(plaintext), nil
}

// Sign computes the hex-encoded HMAC-SHA256 of credential||timestamp under
// the signing key. The timestamp is the request's unix second.
func (k *Keyring) Sign(credential string, ts time.Time) string {
	mac := hmac.New(sha256.New, k.signing)
	mac.Write([]byte(credential))
	mac.Write([]byte(strconv.FormatInt(ts.Unix(), 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature is the receiver-side check: recompute the HMAC, compare in
// constant time, and reject timestamps older than MaxSignatureAge. Tampering
// and replay are reported as distinct errors so they log distinctly.
func (k *Keyring) VerifySignature(credential string, ts time.Time, signature string, now time.Time) error {
	expected := k.Sign(credential, ts)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("signature mismatch")
	}
	if now.Sub(ts) > MaxSignatureAge {
		return fmt.Errorf("request timestamp too old: %s", now.Sub(ts).Round(time.Second))
	}
	return nil
}
