// Package security decides which host types scripts may resolve by name.
package security

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

type Mode int

const (
	Unrestricted Mode = iota
	DenyAll
	AllowList
)

func (m Mode) String() string {
	switch m {
	case DenyAll:
		return "deny-all"
	case AllowList:
		return "allow-list"
	default:
		return "unrestricted"
	}
}

// ParseMode accepts the names printed by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unrestricted":
		return Unrestricted, nil
	case "deny-all", "deny", "none":
		return DenyAll, nil
	case "allow-list", "allowlist", "allow":
		return AllowList, nil
	}
	return Unrestricted, fmt.Errorf("unknown security mode %q", s)
}

// AccessDenied is returned by Check when name may not be resolved.
type AccessDenied struct {
	Name string
	Mode Mode
}

func (e *AccessDenied) Error() string {
	return fmt.Sprintf("access to %s denied (%s)", e.Name, e.Mode)
}

// Policy is safe for concurrent use; hosts may reconfigure it while a
// machine runs on another goroutine.
type Policy struct {
	mu    sync.RWMutex
	mode  Mode
	allow map[string]bool
}

func NewPolicy(mode Mode, allow ...string) *Policy {
	p := &Policy{mode: mode, allow: map[string]bool{}}
	p.Add(allow...)
	return p
}

func (p *Policy) Mode() Mode {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.mode
}

func (p *Policy) SetMode(mode Mode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mode = mode
}

// Add allows fully qualified type names. A name ending in `::*` allows a
// whole namespace.
func (p *Policy) Add(names ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			p.allow[name] = true
		}
	}
}

func (p *Policy) Remove(names ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, name := range names {
		delete(p.allow, name)
	}
}

func (p *Policy) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allow = map[string]bool{}
}

// Entries returns the allow-list, sorted.
func (p *Policy) Entries() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.allow))
	for name := range p.allow {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Allowed reports whether name may be resolved. In allow-list mode a name
// matches an exact entry or any `Prefix::*` entry of an enclosing namespace.
func (p *Policy) Allowed(name string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	switch p.mode {
	case Unrestricted:
		return true
	case DenyAll:
		return false
	}
	if p.allow[name] {
		return true
	}
	for ns := name; ; {
		i := strings.LastIndex(ns, "::")
		if i < 0 {
			return false
		}
		ns = ns[:i]
		if p.allow[ns+"::*"] {
			return true
		}
	}
}

func (p *Policy) Check(name string) error {
	if p.Allowed(name) {
		return nil
	}
	return &AccessDenied{Name: name, Mode: p.Mode()}
}
