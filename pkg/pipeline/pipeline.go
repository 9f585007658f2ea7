// Package pipeline chains eight cipher stages into the admin-code encryption
// scheme.
//
// Stage k encrypts the base64 ciphertext text produced by stage k-1 (stage 1
// encrypts the plaintext itself). Ciphers and keys rotate through a fixed
// table so that no two adjacent stages share an algorithm or a key:
//
//	1 AES/key1   2 3DES/key2   3 Blowfish/key3   4 AES/key1
//	5 3DES/key2  6 Blowfish/key3   7 AES/key1    8 3DES/key2
//
// Chaining on base64 text instead of raw bytes inflates every stage by about a
// third. It is kept as is because existing admin code files depend on it.
//
// Bundles carry no MAC. Tampering is only caught by padding failures or a
// plaintext mismatch, which leaves CBC padding-oracle attacks open to anyone
// who can submit bundles and observe the outcome.
package pipeline

import (
	"crypto/subtle"
	"fmt"
	"unicode/utf8"

	"scrapeguard/pkg/cipherstage"
	errs "scrapeguard/pkg/errors"
)

// Stage is one row of the chain table
type Stage struct {
	Number    int
	Algorithm cipherstage.Algorithm
	Key       KeySelector
}

// Stages is the fixed chain, in encryption order
var Stages = [NumStages]Stage{
	{1, cipherstage.AES, Key1},
	{2, cipherstage.TripleDES, Key2},
	{3, cipherstage.Blowfish, Key3},
	{4, cipherstage.AES, Key1},
	{5, cipherstage.TripleDES, Key2},
	{6, cipherstage.Blowfish, Key3},
	{7, cipherstage.AES, Key1},
	{8, cipherstage.TripleDES, Key2},
}

// Direction of a stage call
type Direction string

const (
	DirectionEncrypt Direction = "encrypt"
	DirectionDecrypt Direction = "decrypt"
)

// StageEvent is passed to the stage hook before every cipher call
type StageEvent struct {
	Stage     Stage
	Direction Direction
}

// Pipeline runs the chain with an injected KeySet. It holds no mutable state
// and is safe for concurrent use.
type Pipeline struct {
	keys *KeySet
	hook func(StageEvent)
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithStageHook registers a callback invoked before every cipher call
func WithStageHook(fn func(StageEvent)) Option {
	return func(p *Pipeline) {
		p.hook = fn
	}
}

// New creates a pipeline bound to keys
func New(keys *KeySet, opts ...Option) (*Pipeline, error) {
	if keys == nil {
		return nil, errs.NewCipherError("key set is required", nil)
	}
	p := &Pipeline{keys: keys}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Pipeline) notify(st Stage, dir Direction) {
	if p.hook != nil {
		p.hook(StageEvent{Stage: st, Direction: dir})
	}
}

// Encrypt threads plaintext through all eight stages
func (p *Pipeline) Encrypt(plaintext string) (*Bundle, error) {
	b := &Bundle{}
	input := []byte(plaintext)

	for _, st := range Stages {
		p.notify(st, DirectionEncrypt)
		out, err := cipherstage.EncryptStage(input, p.keys.key(st.Key), st.Algorithm)
		if err != nil {
			return nil, errs.AtStage(err, st.Number)
		}
		b.Stages[st.Number-1] = out
		input = []byte(out.Ciphertext)
	}
	return b, nil
}

// Decrypt walks the chain from stage 8 down to stage 1 and returns the
// recovered plaintext. Each stage's output must equal the ciphertext text
// stored for the stage below it; any mismatch or cipher failure aborts.
func (p *Pipeline) Decrypt(b *Bundle) (string, error) {
	if err := b.ValidateShape(); err != nil {
		return "", err
	}

	ct := b.Stages[NumStages-1].Ciphertext
	for i := NumStages - 1; i >= 0; i-- {
		st := Stages[i]
		p.notify(st, DirectionDecrypt)

		out := cipherstage.Output{IV: b.Stages[i].IV, Ciphertext: ct}
		pt, err := cipherstage.DecryptStage(out, p.keys.key(st.Key), st.Algorithm)
		if err != nil {
			return "", errs.AtStage(err, st.Number)
		}

		if i == 0 {
			if !utf8.Valid(pt) {
				return "", errs.AtStage(errs.NewPaddingError("recovered plaintext is not valid UTF-8"), st.Number)
			}
			return string(pt), nil
		}

		stored := b.Stages[i-1].Ciphertext
		if subtle.ConstantTimeCompare(pt, []byte(stored)) != 1 {
			return "", errs.AtStage(errs.NewPaddingError(fmt.Sprintf("output does not match stored %s", CTField(i))), st.Number)
		}
		ct = stored
	}

	// unreachable: the loop returns at stage 1
	return "", errs.New(errs.ErrorTypeUnknown, "empty chain")
}
