package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
	"scrapeguard/pkg/storage"
)

const (
	saltSize   = 32
	keySize    = 32
	iterations = 100000
	fileFormat = 1
)

// PassphraseEnv overrides the generated passphrase file
const PassphraseEnv = "SCRAPEGUARD_PASSPHRASE"

// EncryptedFileStore keeps key material in a passphrase encrypted JSON file
type EncryptedFileStore struct {
	path       string
	passphrase string
	mu         sync.RWMutex
}

// fileData is the on-disk layout of the key file
type fileData struct {
	Salt      string    `json:"salt"`
	Encrypted string    `json:"encrypted"`
	Version   int       `json:"version"`
	Modified  time.Time `json:"modified"`
}

// FileOption configures an EncryptedFileStore
type FileOption func(*EncryptedFileStore)

// WithPassphrase sets the passphrase instead of reading the environment or
// the passphrase file
func WithPassphrase(passphrase string) FileOption {
	return func(e *EncryptedFileStore) {
		e.passphrase = passphrase
	}
}

// NewEncryptedFileStore creates a store backed by the file at path
func NewEncryptedFileStore(path string, opts ...FileOption) (*EncryptedFileStore, error) {
	store := &EncryptedFileStore{path: path}
	for _, opt := range opts {
		opt(store)
	}

	if store.passphrase == "" {
		passphrase, err := loadPassphrase()
		if err != nil {
			return nil, fmt.Errorf("failed to get passphrase: %w", err)
		}
		store.passphrase = passphrase
	}
	return store, nil
}

// Name identifies the store
func (e *EncryptedFileStore) Name() string {
	return "file"
}

// Path returns the key file location
func (e *EncryptedFileStore) Path() string {
	return e.path
}

// Put encrypts key material and replaces the key file
func (e *EncryptedFileStore) Put(km *KeyMaterial) error {
	if _, err := km.KeySet(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}
	key := pbkdf2.Key([]byte(e.passphrase), salt, iterations, keySize, sha256.New)

	plaintext, err := json.Marshal(km)
	if err != nil {
		return fmt.Errorf("failed to marshal keys: %w", err)
	}

	encrypted, err := encrypt(plaintext, key)
	if err != nil {
		return fmt.Errorf("failed to encrypt keys: %w", err)
	}

	content, err := json.MarshalIndent(fileData{
		Salt:      base64.StdEncoding.EncodeToString(salt),
		Encrypted: base64.StdEncoding.EncodeToString(encrypted),
		Version:   fileFormat,
		Modified:  time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal file data: %w", err)
	}

	return storage.WriteFileAtomic(e.path, content, 0600)
}

// Get reads and decrypts the key file
func (e *EncryptedFileStore) Get() (*KeyMaterial, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	content, err := os.ReadFile(e.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrKeysNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	var fd fileData
	if err := json.Unmarshal(content, &fd); err != nil {
		return nil, fmt.Errorf("failed to parse key file: %w", err)
	}
	if fd.Version != fileFormat {
		return nil, fmt.Errorf("unsupported key file version %d", fd.Version)
	}

	salt, err := base64.StdEncoding.DecodeString(fd.Salt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	encrypted, err := base64.StdEncoding.DecodeString(fd.Encrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to decode encrypted data: %w", err)
	}

	key := pbkdf2.Key([]byte(e.passphrase), salt, iterations, keySize, sha256.New)
	plaintext, err := decrypt(encrypted, key)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt key file: %w", err)
	}

	var km KeyMaterial
	if err := json.Unmarshal(plaintext, &km); err != nil {
		return nil, fmt.Errorf("failed to parse keys: %w", err)
	}
	return &km, nil
}

// Delete removes the key file
func (e *EncryptedFileStore) Delete() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	err := os.Remove(e.path)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrKeysNotFound
	}
	return err
}

// Exists checks if the key file is present
func (e *EncryptedFileStore) Exists() bool {
	_, err := os.Stat(e.path)
	return err == nil
}

// loadPassphrase reads the passphrase from the environment or the passphrase
// file in the config directory, creating one on first use
func loadPassphrase() (string, error) {
	if pass := os.Getenv(PassphraseEnv); pass != "" {
		return pass, nil
	}

	configDir, err := getConfigDir()
	if err != nil {
		return "", err
	}
	passphraseFile := filepath.Join(configDir, ".passphrase")

	if content, err := os.ReadFile(passphraseFile); err == nil && len(content) > 0 {
		return string(content), nil
	}

	b := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("failed to generate passphrase: %w", err)
	}
	passphrase := base64.URLEncoding.EncodeToString(b)

	if err := storage.WriteFileAtomic(passphraseFile, []byte(passphrase), 0600); err != nil {
		return "", fmt.Errorf("failed to save passphrase: %w", err)
	}
	return passphrase, nil
}

// encrypt seals data with AES-GCM, prefixing the nonce
func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// decrypt opens data sealed by encrypt
func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, ciphertext := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}
