package auth

import (
	"crypto/subtle"
	"log/slog"
)

// Gate checks the single shared operator credential. Values are compared
// verbatim; there is no hashing and no lockout.
type Gate struct {
	username []byte
	password []byte
	logger   *slog.Logger
}

func NewGate(username, password string, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{username: []byte(username), password: []byte(password), logger: logger}
}

// Check reports whether the submitted pair matches the configured one.
func (g *Gate) Check(username, password string) bool {
	if len(g.username) == 0 || len(g.password) == 0 {
		g.logger.Warn("auth.gate.unconfigured")
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), g.username) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), g.password) == 1
	ok := userOK && passOK
	if ok {
		g.logger.Info("auth.login.ok")
	} else {
		g.logger.Warn("auth.login.denied")
	}
	return ok
}
