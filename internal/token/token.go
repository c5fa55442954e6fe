// Package token supplies bearer tokens for authenticating realtime sessions.
package token

import (
	"os"
	"strings"
)

// Store returns the current bearer token for a new session. The Connection
// Manager reads it once per connect, so implementations may rotate tokens
// between attempts.
type Store interface {
	// Token returns the current bearer token. ok is false when no token
	// is available.
	Token() (token string, ok bool)
}

// Static is a Store holding a fixed token.
type Static string

// NewStatic creates a Store that always returns tok.
func NewStatic(tok string) Store {
	return Static(tok)
}

// Token implements Store.
func (s Static) Token() (string, bool) {
	if s == "" {
		return "", false
	}
	return string(s), true
}

// Env is a Store reading the token from an environment variable on each call.
type Env struct {
	Key string
}

// NewEnv creates a Store backed by the environment variable key.
func NewEnv(key string) Store {
	return &Env{Key: key}
}

// Token implements Store.
func (e *Env) Token() (string, bool) {
	v := strings.TrimSpace(os.Getenv(e.Key))
	if v == "" {
		return "", false
	}
	return v, true
}

// File is a Store reading the token from a file on each call, so externally
// rotated tokens are picked up by the next connect.
type File struct {
	Path string
}

// NewFile creates a Store backed by the file at path.
func NewFile(path string) Store {
	return &File{Path: path}
}

// Token implements Store.
func (f *File) Token() (string, bool) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", false
	}
	v := strings.TrimSpace(string(data))
	if v == "" {
		return "", false
	}
	return v, true
}
