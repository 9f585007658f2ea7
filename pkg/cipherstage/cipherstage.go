package cipherstage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/blowfish"

	errs "scrapeguard/pkg/errors"
)

// Algorithm identifies one of the supported block ciphers
type Algorithm int

const (
	AES Algorithm = iota + 1
	TripleDES
	Blowfish
)

// String returns the algorithm name
func (a Algorithm) String() string {
	switch a {
	case AES:
		return "AES"
	case TripleDES:
		return "3DES"
	case Blowfish:
		return "Blowfish"
	default:
		return fmt.Sprintf("Algorithm(%d)", int(a))
	}
}

// BlockSize returns the cipher block size in bytes, or 0 for an unknown algorithm
func (a Algorithm) BlockSize() int {
	switch a {
	case AES:
		return aes.BlockSize
	case TripleDES:
		return des.BlockSize
	case Blowfish:
		return blowfish.BlockSize
	default:
		return 0
	}
}

// ValidKeySize reports whether n is an acceptable key length for the algorithm
func (a Algorithm) ValidKeySize(n int) bool {
	switch a {
	case AES:
		return n == 16 || n == 24 || n == 32
	case TripleDES:
		return n == 24
	case Blowfish:
		return n >= 1 && n <= 56
	default:
		return false
	}
}

func (a Algorithm) newBlock(key []byte) (cipher.Block, error) {
	if a.BlockSize() == 0 {
		return nil, errs.NewCipherError(fmt.Sprintf("unknown algorithm %d", int(a)), nil)
	}
	if !a.ValidKeySize(len(key)) {
		return nil, errs.NewCipherError(fmt.Sprintf("invalid %s key length %d", a, len(key)), nil)
	}

	var (
		block cipher.Block
		err   error
	)
	switch a {
	case AES:
		block, err = aes.NewCipher(key)
	case TripleDES:
		block, err = des.NewTripleDESCipher(key)
	case Blowfish:
		block, err = blowfish.NewCipher(key)
	}
	if err != nil {
		return nil, errs.NewCipherError(fmt.Sprintf("failed to create %s cipher", a), err)
	}
	return block, nil
}

// Output is one stage's result: IV and ciphertext, both base64 text
type Output struct {
	IV         string
	Ciphertext string
}

// EncryptStage encrypts plaintext under key with a fresh random IV
func EncryptStage(plaintext, key []byte, alg Algorithm) (Output, error) {
	block, err := alg.newBlock(key)
	if err != nil {
		return Output{}, err
	}

	iv := make([]byte, block.BlockSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return Output{}, errs.NewCipherError("failed to generate IV", err)
	}

	padded := Pad(plaintext, block.BlockSize())
	ct := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ct, padded)

	return Output{
		IV:         base64.StdEncoding.EncodeToString(iv),
		Ciphertext: base64.StdEncoding.EncodeToString(ct),
	}, nil
}

// DecryptStage decrypts a stage output under key and strips the padding
func DecryptStage(out Output, key []byte, alg Algorithm) ([]byte, error) {
	block, err := alg.newBlock(key)
	if err != nil {
		return nil, err
	}

	iv, err := base64.StdEncoding.DecodeString(out.IV)
	if err != nil {
		return nil, errs.NewMalformedBundleError("IV is not valid base64", err)
	}
	ct, err := base64.StdEncoding.DecodeString(out.Ciphertext)
	if err != nil {
		return nil, errs.NewMalformedBundleError("ciphertext is not valid base64", err)
	}

	bs := block.BlockSize()
	if len(iv) != bs {
		return nil, errs.NewPaddingError(fmt.Sprintf("IV length %d does not match %s block size %d", len(iv), alg, bs))
	}
	if len(ct) == 0 || len(ct)%bs != 0 {
		return nil, errs.NewPaddingError(fmt.Sprintf("ciphertext length %d is not a multiple of %d", len(ct), bs))
	}

	pt := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(pt, ct)

	return Unpad(pt, bs)
}
