package cipherstage

import (
	"bytes"

	errs "scrapeguard/pkg/errors"
)

// Pad applies PKCS#7 padding. A full block is added when data is already aligned.
func Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	out := make([]byte, len(data), len(data)+n)
	copy(out, data)
	return append(out, bytes.Repeat([]byte{byte(n)}, n)...)
}

// Unpad removes PKCS#7 padding
func Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errs.NewPaddingError("padded data is not block aligned")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, errs.NewPaddingError("invalid padding size")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errs.NewPaddingError("invalid padding bytes")
		}
	}
	return data[:len(data)-n], nil
}
