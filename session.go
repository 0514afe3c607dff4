package leaserenew

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// Session owns the single browser used across renewal cycles and whether it
// is currently logged in. It is created once by the caller and passed to the
// Authenticator and the Renewer.
type Session struct {
	mutex         sync.RWMutex
	launch        Launcher
	browser       Browser
	authenticated bool
}

// NewSession returns a Session that starts browsers with launch on demand.
func NewSession(launch Launcher) *Session {
	return &Session{launch: launch}
}

// Acquire returns the live browser, starting one if none exists.
// A failed start is returned as ErrDriverInitFailed and is not retried.
func (s *Session) Acquire(ctx context.Context) (Browser, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.browser != nil {
		return s.browser, nil
	}
	log.Print("Starting browser")
	b, err := s.launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDriverInitFailed, err)
	}
	log.Printf("Browser started, target %s", b.ID())
	s.browser = b
	return b, nil
}

// Release closes the browser if one exists. Close errors are logged only;
// the handle is cleared either way.
func (s *Session) Release() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.browser == nil {
		return
	}
	if err := s.browser.Close(); err != nil {
		log.Printf("Error closing browser: %s", err)
	} else {
		log.Print("Browser closed")
	}
	s.browser = nil
	s.authenticated = false
}

// Authenticated reports whether a live browser holds a logged in session.
func (s *Session) Authenticated() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.authenticated && s.browser != nil
}

// TargetID returns the page target of the live browser, if any.
func (s *Session) TargetID() (string, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.browser == nil {
		return "", false
	}
	return s.browser.ID(), true
}

// markAuthenticated is the Unauthenticated -> Authenticated transition.
// It never applies without a browser.
func (s *Session) markAuthenticated() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.browser != nil {
		s.authenticated = true
	}
}

// Invalidate is the Authenticated -> Unauthenticated transition, forcing a
// login on next use. It is applied whenever an interaction failure means the
// page state can no longer be trusted.
func (s *Session) Invalidate(cause error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.authenticated {
		log.Printf("Session invalidated: %s", cause)
	}
	s.authenticated = false
}
