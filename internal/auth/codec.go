package auth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gtank/cryptopasta"
)

// SessionCodec seals values into opaque, tamper-evident strings: AES-GCM
// encryption followed by an HMAC over the ciphertext.
type SessionCodec struct {
	encKey  *[32]byte
	signKey *[32]byte
	now     func() time.Time
}

// NewSessionCodec takes two keys of at least 32 characters each.
func NewSessionCodec(encryptionKey, signingKey string) (*SessionCodec, error) {
	enc, err := toKey(encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key: %w", err)
	}
	sig, err := toKey(signingKey)
	if err != nil {
		return nil, fmt.Errorf("signing key: %w", err)
	}
	return &SessionCodec{encKey: enc, signKey: sig, now: time.Now}, nil
}

// NewRandomKey returns a URL-safe random key suitable for NewSessionCodec.
func NewRandomKey() (string, error) {
	key := make([]byte, 33)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(key), nil
}

type sealedSession struct {
	Identity  Identity `json:"identity"`
	ExpiresAt int64    `json:"exp"`
}

// SealIdentity encodes ident so that OpenIdentity accepts it until ttl passes.
func (c *SessionCodec) SealIdentity(ident Identity, ttl time.Duration) (string, error) {
	data, err := json.Marshal(sealedSession{Identity: ident, ExpiresAt: c.now().Add(ttl).Unix()})
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	return c.seal(data)
}

func (c *SessionCodec) OpenIdentity(value string) (Identity, error) {
	data, err := c.open(value)
	if err != nil {
		return Identity{}, err
	}
	var s sealedSession
	if err := json.Unmarshal(data, &s); err != nil {
		return Identity{}, fmt.Errorf("decode session: %w", ErrInvalidSession)
	}
	if s.Identity.OwnerID == "" || c.now().Unix() >= s.ExpiresAt {
		return Identity{}, ErrInvalidSession
	}
	return s.Identity, nil
}

// NewState returns a sealed random nonce for the OAuth state parameter.
func (c *SessionCodec) NewState(ttl time.Duration) (string, error) {
	nonce, err := NewRandomKey()
	if err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	data, err := json.Marshal(struct {
		Nonce     string `json:"nonce"`
		ExpiresAt int64  `json:"exp"`
	}{nonce, c.now().Add(ttl).Unix()})
	if err != nil {
		return "", err
	}
	return c.seal(data)
}

// VerifyState accepts a state produced by NewState that has not expired.
func (c *SessionCodec) VerifyState(state string) error {
	data, err := c.open(state)
	if err != nil {
		return err
	}
	var s struct {
		Nonce     string `json:"nonce"`
		ExpiresAt int64  `json:"exp"`
	}
	if err := json.Unmarshal(data, &s); err != nil || s.Nonce == "" {
		return ErrInvalidSession
	}
	if c.now().Unix() >= s.ExpiresAt {
		return ErrInvalidSession
	}
	return nil
}

func (c *SessionCodec) seal(plaintext []byte) (string, error) {
	ciphertext, err := cryptopasta.Encrypt(plaintext, c.encKey)
	if err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}
	signature := cryptopasta.GenerateHMAC(ciphertext, c.signKey)
	return base64.RawURLEncoding.EncodeToString(ciphertext) + "." +
		base64.RawURLEncoding.EncodeToString(signature), nil
}

func (c *SessionCodec) open(value string) ([]byte, error) {
	parts := strings.SplitN(value, ".", 2)
	if len(parts) != 2 {
		return nil, ErrInvalidSession
	}
	ciphertext, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, ErrInvalidSession
	}
	signature, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, ErrInvalidSession
	}
	if !cryptopasta.CheckHMAC(ciphertext, signature, c.signKey) {
		return nil, ErrInvalidSession
	}
	plaintext, err := cryptopasta.Decrypt(ciphertext, c.encKey)
	if err != nil {
		return nil, ErrInvalidSession
	}
	return plaintext, nil
}

func toKey(s string) (*[32]byte, error) {
	if len(s) < 32 {
		return nil, fmt.Errorf("key too short, want at least 32 characters")
	}
	key := &[32]byte{}
	copy(key[:], s)
	return key, nil
}
