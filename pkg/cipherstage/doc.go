// Package cipherstage runs a single symmetric block cipher in CBC mode over a
// byte payload.
//
// Every call to EncryptStage draws a fresh random IV sized to the cipher's
// block, pads the payload with PKCS#7, and returns the IV and ciphertext as
// standard base64 text so that the result can be stored in JSON and fed into
// the next stage as plaintext. DecryptStage reverses this and reports invalid
// padding as a padding error.
//
// Three algorithms are supported:
//
//	AES        block 16, key 16/24/32
//	TripleDES  block 8,  key 24 (EDE3)
//	Blowfish   block 8,  key 1..56
//
// CBC provides confidentiality only. There is no MAC, so padding failures are
// the only tamper signal a caller gets.
package cipherstage
