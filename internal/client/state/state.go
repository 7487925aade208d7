// Package state holds the mutable application state shared by the REPL,
// the connectivity watcher and the voice handlers.
package state

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/farmadvisor/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/farmadvisor/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// DefaultView is the screen shown before any navigation.
const DefaultView = "home"

// Snapshot is a consistent copy of the state.
type Snapshot struct {
	Mode     Mode
	Language string
	User     string
	View     string
}

// AppState is safe for concurrent use. Language, user and view are
// persisted through the metadata repository; the mode is not.
type AppState struct {
	meta metadata.Repository
	log  logging.Logger

	mu       sync.RWMutex
	mode     Mode
	language string
	user     string
	view     string
}

// New starts offline with the given fallback language until Load or the
// connectivity watcher says otherwise.
func New(meta metadata.Repository, language string, log logging.Logger) *AppState {
	if log == nil {
		log = logging.Nop()
	}
	return &AppState{
		meta:     meta,
		log:      log.With("module", "state"),
		mode:     ModeOffline,
		language: language,
		view:     DefaultView,
	}
}

// Load restores persisted values. Absent keys keep the current values.
func (s *AppState) Load(ctx context.Context) error {
	vals, err := s.meta.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if v := string(vals[metadata.KeyLanguage]); v != "" {
		s.language = v
	}
	if v := string(vals[metadata.KeyCurrentUser]); v != "" {
		s.user = v
	}
	if v := string(vals[metadata.KeyView]); v != "" {
		s.view = v
	}
	return nil
}

func (s *AppState) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Mode: s.mode, Language: s.language, User: s.user, View: s.view}
}

func (s *AppState) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

func (s *AppState) IsOnline() bool {
	return s.Mode() == ModeOnline
}

// SetMode switches the mode and reports whether it changed.
func (s *AppState) SetMode(ctx context.Context, m Mode) bool {
	s.mu.Lock()
	if s.mode == m {
		s.mu.Unlock()
		return false
	}
	s.mode = m
	s.mu.Unlock()

	s.log.Info(ctx, fmt.Sprintf("switched to %s mode", m))
	return true
}

func (s *AppState) Language() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.language
}

func (s *AppState) SetLanguage(ctx context.Context, lang string) error {
	return s.set(ctx, metadata.KeyLanguage, lang, &s.language)
}

func (s *AppState) User() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// SetUser records who uses the device. An empty name signs the user out and
// removes the stored key.
func (s *AppState) SetUser(ctx context.Context, user string) error {
	if user != "" {
		return s.set(ctx, metadata.KeyCurrentUser, user, &s.user)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.meta.Delete(ctx, metadata.KeyCurrentUser); err != nil {
		return fmt.Errorf("failed to forget %s: %w", metadata.KeyCurrentUser, err)
	}
	s.user = ""
	return nil
}

func (s *AppState) View() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

func (s *AppState) SetView(ctx context.Context, view string) error {
	return s.set(ctx, metadata.KeyView, view, &s.view)
}

// set persists first so memory never runs ahead of storage.
func (s *AppState) set(ctx context.Context, key, value string, field *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := metadata.SetString(ctx, s.meta, key, value); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	*field = value
	return nil
}
