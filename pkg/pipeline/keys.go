package pipeline

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	errs "scrapeguard/pkg/errors"
)

// Required key lengths
const (
	Key1Size = 16 // AES-128
	Key2Size = 24 // 3DES
	Key3Size = 32 // Blowfish
)

// KeySelector names one of the three keys in a KeySet
type KeySelector int

const (
	Key1 KeySelector = iota + 1
	Key2
	Key3
)

func (s KeySelector) String() string {
	return fmt.Sprintf("key%d", int(s))
}

// Size returns the required byte length for the selected key
func (s KeySelector) Size() int {
	switch s {
	case Key1:
		return Key1Size
	case Key2:
		return Key2Size
	case Key3:
		return Key3Size
	default:
		return 0
	}
}

// KeySet is the immutable key material for the pipeline. It is built once at
// startup and shared by reference; it never changes after construction.
type KeySet struct {
	keys [3][]byte
}

// NewKeySet copies and validates the three keys
func NewKeySet(key1, key2, key3 []byte) (*KeySet, error) {
	ks := &KeySet{}
	for i, k := range [][]byte{key1, key2, key3} {
		sel := KeySelector(i + 1)
		if len(k) != sel.Size() {
			return nil, errs.NewCipherError(fmt.Sprintf("%s must be %d bytes, got %d", sel, sel.Size(), len(k)), nil)
		}
		ks.keys[i] = bytes.Clone(k)
	}
	return ks, nil
}

// GenerateKeySet creates a KeySet from crypto/rand
func GenerateKeySet() (*KeySet, error) {
	var raw [3][]byte
	for i := range raw {
		raw[i] = make([]byte, KeySelector(i+1).Size())
		if _, err := io.ReadFull(rand.Reader, raw[i]); err != nil {
			return nil, fmt.Errorf("failed to generate %s: %w", KeySelector(i+1), err)
		}
	}
	return NewKeySet(raw[0], raw[1], raw[2])
}

// Key returns a copy of the selected key, or nil for an unknown selector
func (k *KeySet) Key(sel KeySelector) []byte {
	if sel < Key1 || sel > Key3 {
		return nil
	}
	return bytes.Clone(k.keys[sel-1])
}

func (k *KeySet) key(sel KeySelector) []byte {
	if sel < Key1 || sel > Key3 {
		return nil
	}
	return k.keys[sel-1]
}

// Equal reports whether two key sets hold the same keys
func (k *KeySet) Equal(other *KeySet) bool {
	if k == nil || other == nil {
		return k == other
	}
	for i := range k.keys {
		if !bytes.Equal(k.keys[i], other.keys[i]) {
			return false
		}
	}
	return true
}

// Fingerprint returns a short hash identifying the key set. It is safe to
// print and does not reveal the keys.
func (k *KeySet) Fingerprint() string {
	h := sha256.New()
	for _, key := range k.keys {
		h.Write(key)
	}
	return hex.EncodeToString(h.Sum(nil)[:8])
}
