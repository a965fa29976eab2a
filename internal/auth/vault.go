package auth

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrNoSession is returned by Vault.Load when nobody is signed in.
var ErrNoSession = errors.New("not signed in")

// Vault persists a Session on disk, sealed with XChaCha20-Poly1305. The CLI uses it
// to stay signed in between invocations.
type Vault struct {
	path string
	aead cipher.AEAD
}

// NewVault needs a 32 byte key.
func NewVault(path string, key []byte) (*Vault, error) {
	a, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("vault key: %w", err)
	}
	return &Vault{path: path, aead: a}, nil
}

func (v *Vault) Path() string { return v.path }

func (v *Vault) Save(s Session) error {
	pt, err := json.Marshal(s)
	if err != nil {
		return err
	}
	sealed, err := v.seal(pt)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(v.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(v.path, []byte(sealed+"\n"), 0o600)
}

// Load returns ErrNoSession when the file is missing or holds an expired token.
func (v *Vault) Load() (Session, error) {
	b, err := os.ReadFile(v.path)
	if errors.Is(err, os.ErrNotExist) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, err
	}
	pt, err := v.open(strings.TrimSpace(string(b)))
	if err != nil {
		return Session{}, fmt.Errorf("read %s: %w", v.path, err)
	}
	var s Session
	if err := json.Unmarshal(pt, &s); err != nil {
		return Session{}, fmt.Errorf("read %s: %w", v.path, err)
	}
	if s.Token == "" || Expired(s.Token) {
		return Session{}, ErrNoSession
	}
	return s, nil
}

func (v *Vault) Clear() error {
	err := os.Remove(v.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (v *Vault) CurrentToken(context.Context) (string, bool) {
	s, err := v.Load()
	return s.Token, err == nil
}

func (v *Vault) CurrentUser(context.Context) (UserProfile, bool) {
	s, err := v.Load()
	return s.User, err == nil
}

func (v *Vault) seal(plaintext []byte) (string, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	buf := v.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawStdEncoding.EncodeToString(buf), nil
}

func (v *Vault) open(encoded string) ([]byte, error) {
	buf, err := base64.RawStdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	ns := v.aead.NonceSize()
	if len(buf) < ns {
		return nil, errors.New("ciphertext too short")
	}
	return v.aead.Open(nil, buf[:ns], buf[ns:], nil)
}
