// Package featureflags evaluates operator-controlled switches such as uploads.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
)

// Uploads gates POST /api/upload.
const Uploads = "uploads"

// Manager evaluates flags parsed from a list like "uploads=on,beta=25%".
type Manager struct {
	flags map[string]rule
}

type rule struct {
	raw     string
	percent int // -1 when the rule is a plain on/off switch
	on      bool
}

// NewManager parses a comma-separated key=value list. Malformed pairs are skipped.
func NewManager(raw string) *Manager {
	m := &Manager{flags: make(map[string]rule)}
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		m.flags[key] = parseRule(value)
	}
	return m
}

func parseRule(value string) rule {
	r := rule{raw: value, percent: -1}
	switch value {
	case "on", "true", "1":
		r.on = true
		return r
	case "off", "false", "0":
		return r
	}
	if pct, ok := strings.CutSuffix(value, "%"); ok {
		if n, err := strconv.Atoi(pct); err == nil {
			r.percent = min(max(n, 0), 100)
		}
	}
	return r
}

// Enabled reports whether name is on for userID. Percentage rollouts bucket
// users deterministically; anonymous users only see 100% rollouts.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	r, ok := m.flags[normalize(name)]
	if !ok {
		return false
	}
	switch {
	case r.percent < 0:
		return r.on
	case r.percent == 0:
		return false
	case r.percent == 100:
		return true
	case userID == 0:
		return false
	default:
		return rolloutBucket(name, userID) < r.percent
	}
}

// Raw returns a copy of the configured values.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string, len(m.flags))
	for k, r := range m.flags {
		out[k] = r.raw
	}
	return out
}

// Snapshot evaluates every configured flag for one user.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool, len(m.flags))
	for name := range m.flags {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%s:%d", normalize(name), userID)
	return int(h.Sum32() % 100)
}
