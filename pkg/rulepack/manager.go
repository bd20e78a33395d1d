package rulepack

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/mailguard/pkg/analyzer"
)

// Registrar is the subset of the orchestrator the manager drives. Replace
// must swap old for add atomically and return the names it added.
type Registrar interface {
	Replace(old []string, add []analyzer.Analyzer) []string
}

// Stats describes the manager state.
type Stats struct {
	Path          string    `json:"path"`
	Packs         []string  `json:"packs"`
	Version       string    `json:"version,omitempty"`
	LastReload    time.Time `json:"last_reload"`
	Reloads       int64     `json:"reloads"`
	FailedReloads int64     `json:"failed_reloads"`
	LastReloadErr string    `json:"last_reload_error,omitempty"`
}

// Manager keeps the analyzers built from the packs under a path registered
// with a Registrar. Reload is all-or-nothing: if any pack fails to load,
// the previously registered packs stay in place.
type Manager struct {
	registrar Registrar
	logger    *slog.Logger
	reserved  map[string]bool

	mu      sync.Mutex
	path    string
	version string
	active  []string
	stats   Stats
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets the logger.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithReservedNames rejects packs whose name collides with an analyzer the
// manager does not own.
func WithReservedNames(names ...string) ManagerOption {
	return func(m *Manager) {
		for _, n := range names {
			m.reserved[n] = true
		}
	}
}

// NewManager creates a manager for the packs under path.
func NewManager(registrar Registrar, path string, opts ...ManagerOption) *Manager {
	m := &Manager{
		registrar: registrar,
		path:      path,
		logger:    slog.Default(),
		reserved:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "rulepack.manager")
	return m
}

// SetSource points the manager at a new path and records the version
// (for example a commit SHA) it corresponds to. It does not reload.
func (m *Manager) SetSource(path, version string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.path = path
	m.version = version
}

// Reload loads every pack and swaps the registered analyzers.
func (m *Manager) Reload(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	analyzers, err := m.build()
	if err != nil {
		m.stats.FailedReloads++
		m.stats.LastReloadErr = err.Error()
		m.logger.Error("rule pack reload failed, keeping previous packs",
			"path", m.path,
			"error", err,
			"active", len(m.active),
		)
		return err
	}

	add := make([]analyzer.Analyzer, len(analyzers))
	for i, a := range analyzers {
		add[i] = a
	}
	names := m.registrar.Replace(m.active, add)
	m.active = names

	m.stats.Reloads++
	m.stats.LastReload = time.Now()
	m.stats.LastReloadErr = ""
	m.logger.Info("rule packs loaded",
		"path", m.path,
		"packs", len(names),
		"version", m.version,
	)
	return nil
}

func (m *Manager) build() ([]*Analyzer, error) {
	packs, err := Load(m.path)
	if err != nil {
		return nil, err
	}

	analyzers := make([]*Analyzer, 0, len(packs))
	for _, p := range packs {
		if m.reserved[p.Name] {
			return nil, fmt.Errorf("rule pack %q in %s uses a reserved analyzer name", p.Name, p.File)
		}
		a, err := NewAnalyzer(p)
		if err != nil {
			return nil, err
		}
		analyzers = append(analyzers, a)
	}
	return analyzers, nil
}

// Unload deregisters every pack the manager registered.
func (m *Manager) Unload() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registrar.Replace(m.active, nil)
	m.active = nil
}

// Stats returns a snapshot of the manager state.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stats
	s.Path = m.path
	s.Version = m.version
	s.Packs = append([]string(nil), m.active...)
	return s
}
