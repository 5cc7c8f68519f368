package storage

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
)

// ErrTampered is returned when a stored value fails authentication.
var ErrTampered = errors.New("sealed value failed authentication")

// Sealed encrypts values with NaCl secretbox before handing them to the
// underlying storage, so a shared Redis never holds tokens in clear. Each
// sealed value carries the key it was written under; a value moved to another
// key fails with ErrTampered.
type Sealed struct {
	next SecureStorage
	key  [keySize]byte
	rand io.Reader
}

// NewSealed wraps next with a 32-byte key.
func NewSealed(next SecureStorage, key []byte) (*Sealed, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("seal key must be %d bytes, got %d", keySize, len(key))
	}
	s := &Sealed{next: next, rand: rand.Reader}
	copy(s.key[:], key)
	return s, nil
}

// ParseSealKey decodes a hex-encoded seal key.
func ParseSealKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode seal key: %w", err)
	}
	if len(key) != keySize {
		return nil, fmt.Errorf("seal key must be %d bytes, got %d", keySize, len(key))
	}
	return key, nil
}

func (s *Sealed) GetItem(ctx context.Context, key string) (string, bool, error) {
	raw, ok, err := s.next.GetItem(ctx, key)
	if err != nil || !ok {
		return "", ok, err
	}
	box, err := base64.RawStdEncoding.DecodeString(raw)
	if err != nil || len(box) < nonceSize+secretbox.Overhead {
		return "", false, fmt.Errorf("%s: %w", key, ErrTampered)
	}
	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", false, fmt.Errorf("%s: %w", key, ErrTampered)
	}
	value, bound := strings.CutPrefix(string(plain), keyBinding(key))
	if !bound {
		return "", false, fmt.Errorf("%s: sealed under another key: %w", key, ErrTampered)
	}
	return value, true, nil
}

func (s *Sealed) SetItem(ctx context.Context, key, value string) error {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(s.rand, nonce[:]); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(keyBinding(key)+value), &nonce, &s.key)
	return s.next.SetItem(ctx, key, base64.RawStdEncoding.EncodeToString(box))
}

func (s *Sealed) RemoveItem(ctx context.Context, key string) error {
	return s.next.RemoveItem(ctx, key)
}

func keyBinding(key string) string {
	return key + "\x00"
}
