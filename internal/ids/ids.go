// Copyright 2025 Gateway Authors
// SPDX-License-Identifier: BUSL-1.1

// Package ids centralizes ID generation for the gateway's conversation-scoped
// and queue-scoped entities (messages, sessions, tasks, requests), matching
// the teacher's uuid.New().String() convention used throughout its handlers
// and repositories.
package ids

import "github.com/google/uuid"

// New returns a fresh random v4 UUID string.
func New() string {
	return uuid.New().String()
}

// NewWithPrefix returns a fresh UUID string prefixed with p and a hyphen,
// e.g. NewWithPrefix("msg") -> "msg-3fa9c1de-...".
func NewWithPrefix(p string) string {
	return p + "-" + uuid.New().String()
}
