package admincode

import (
	"crypto/subtle"

	errs "scrapeguard/pkg/errors"
	"scrapeguard/pkg/logger"
	"scrapeguard/pkg/pipeline"
)

// State is a step of the verification state machine
type State int

const (
	StateLoaded State = iota + 1
	StateValidatingShape
	StateDecrypting
	StateComparing
	StateGranted
	StateDenied
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "LOADED"
	case StateValidatingShape:
		return "VALIDATING_SHAPE"
	case StateDecrypting:
		return "DECRYPTING"
	case StateComparing:
		return "COMPARING"
	case StateGranted:
		return "GRANTED"
	case StateDenied:
		return "DENIED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no transition leaves s
func (s State) Terminal() bool {
	return s == StateGranted || s == StateDenied
}

var errMismatch = errs.New(errs.ErrorTypeAuth, "decrypted code does not match username")

// Verification is the outcome of one run of the state machine. Cause is for
// logs only and must not be shown to users.
type Verification struct {
	Username string
	State    State
	DeniedAt State
	Cause    error
	Trail    []State
}

// Granted reports whether access was granted
func (v Verification) Granted() bool {
	return v.State == StateGranted
}

// Verifier runs the verification state machine
type Verifier struct {
	pipeline *pipeline.Pipeline
	logger   logger.Logger
}

// NewVerifier creates a verifier. A nil logger uses the global one.
func NewVerifier(p *pipeline.Pipeline, l logger.Logger) *Verifier {
	if l == nil {
		l = logger.GetLogger()
	}
	return &Verifier{pipeline: p, logger: l}
}

// Run checks b against username. It starts in LOADED and always ends in
// GRANTED or DENIED.
func (v *Verifier) Run(b *pipeline.Bundle, username string) Verification {
	res := Verification{Username: username}
	expected := []byte(Plaintext(username))
	var recovered string

	state := StateLoaded
	for {
		res.Trail = append(res.Trail, state)

		switch state {
		case StateLoaded:
			state = StateValidatingShape

		case StateValidatingShape:
			if err := b.ValidateShape(); err != nil {
				return v.deny(res, state, err)
			}
			state = StateDecrypting

		case StateDecrypting:
			pt, err := v.pipeline.Decrypt(b)
			if err != nil {
				logger.LogStageFailure(v.logger, errs.StageOf(err), string(pipeline.DirectionDecrypt), err)
				return v.deny(res, state, err)
			}
			recovered = pt
			state = StateComparing

		case StateComparing:
			if subtle.ConstantTimeCompare([]byte(recovered), expected) != 1 {
				return v.deny(res, state, errMismatch)
			}
			state = StateGranted

		case StateGranted:
			res.State = StateGranted
			logger.LogVerification(v.logger, username, res.State.String(), true, nil)
			return res
		}
	}
}

// Deny records a verification that failed before a bundle was available,
// such as a missing or unreadable file.
func (v *Verifier) Deny(username string, cause error) Verification {
	res := Verification{Username: username, Trail: []State{StateLoaded}}
	return v.deny(res, StateLoaded, cause)
}

func (v *Verifier) deny(res Verification, at State, cause error) Verification {
	res.State = StateDenied
	res.DeniedAt = at
	res.Cause = cause
	res.Trail = append(res.Trail, StateDenied)
	logger.LogVerification(v.logger.WithField("denied_at", at.String()), res.Username, res.State.String(), false, cause)
	return res
}
