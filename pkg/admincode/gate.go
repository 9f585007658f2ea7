package admincode

import (
	"scrapeguard/pkg/audit"
	errs "scrapeguard/pkg/errors"
	"scrapeguard/pkg/logger"
)

// Recorder receives every gate decision
type Recorder interface {
	Record(e audit.Entry) error
}

// Gate answers whether a user may run admin-only scripts
type Gate struct {
	manager    *Manager
	purge      bool
	purgeFiles []string
	recorder   Recorder
	logger     logger.Logger
}

// GateOption configures a Gate
type GateOption func(*Gate)

// WithPurge removes the bundle file and the extra files named here whenever
// verification is denied.
func WithPurge(extra ...string) GateOption {
	return func(g *Gate) {
		g.purge = true
		g.purgeFiles = append(g.purgeFiles, extra...)
	}
}

// WithRecorder attaches an audit recorder
func WithRecorder(r Recorder) GateOption {
	return func(g *Gate) {
		g.recorder = r
	}
}

// NewGate creates a gate over m
func NewGate(m *Manager, opts ...GateOption) *Gate {
	g := &Gate{
		manager: m,
		logger:  m.logger.WithField("component", "gate"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check loads the saved bundle and verifies it for username
func (g *Gate) Check(username string) Verification {
	var res Verification
	b, err := g.manager.Load()
	if err != nil {
		res = g.manager.Verifier().Deny(username, err)
	} else {
		res = g.manager.Verifier().Run(b, username)
	}

	var purged []string
	if !res.Granted() && g.purge {
		purged = g.purgeClientFiles()
	}

	if g.recorder != nil {
		entry := audit.Entry{
			Username: username,
			State:    res.State.String(),
			Granted:  res.Granted(),
			Purged:   purged,
		}
		if !res.Granted() {
			entry.DeniedAt = res.DeniedAt.String()
			entry.Reason = string(errs.TypeOf(res.Cause))
		}
		if err := g.recorder.Record(entry); err != nil {
			g.logger.WithError(err).Error("Failed to record audit entry")
		}
	}
	return res
}

// Authorize reports whether username holds a valid admin code
func (g *Gate) Authorize(username string) bool {
	return g.Check(username).Granted()
}

func (g *Gate) purgeClientFiles() []string {
	names := append([]string{g.manager.codeFile}, g.purgeFiles...)
	removed, err := g.manager.store.Remove(names...)
	logger.LogPurge(g.logger, removed, err)
	return removed
}
