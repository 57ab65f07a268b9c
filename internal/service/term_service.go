package service

import (
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"

	appErrors "github.com/campushub/coursespaces/pkg/errors"
)

var termPattern = regexp.MustCompile(`^(fa|sp)\d{2}$`)

const fallbackTerm = "fa25"

// TermService owns the process-wide current academic term. The value changes
// only through Set, which validates first; listeners registered with OnChange
// observe every successful change synchronously, in registration order.
type TermService struct {
	mu        sync.Mutex
	current   string
	listeners []func(term string)
	logger    *zap.Logger
}

// NewTermService seeds the current term from configuration. An invalid
// default falls back to a known-good value rather than failing boot.
func NewTermService(defaultTerm string, logger *zap.Logger) *TermService {
	if logger == nil {
		logger = zap.NewNop()
	}
	term := strings.ToLower(strings.TrimSpace(defaultTerm))
	if !termPattern.MatchString(term) {
		logger.Warn("invalid default term, falling back",
			zap.String("default_term", defaultTerm),
			zap.String("fallback", fallbackTerm),
		)
		term = fallbackTerm
	}
	return &TermService{current: term, logger: logger}
}

// Current returns the current term. Never fails.
func (s *TermService) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Set validates and installs a new current term, then notifies listeners.
// On a validation failure the current value is untouched and no listeners
// fire. A failing listener never affects the other listeners or the caller:
// term-change notification is fire-and-forget by contract.
func (s *TermService) Set(candidate string) error {
	term := strings.ToLower(strings.TrimSpace(candidate))
	if !termPattern.MatchString(term) {
		return appErrors.Clone(appErrors.ErrValidation, "term must match faYY or spYY, e.g. fa25")
	}

	s.mu.Lock()
	s.current = term
	listeners := append([]func(string){}, s.listeners...)
	s.mu.Unlock()

	for _, listener := range listeners {
		s.notify(listener, term)
	}
	return nil
}

// OnChange registers a listener invoked with the new term after every
// successful Set. Listeners run synchronously inside Set and must not block
// on network I/O.
func (s *TermService) OnChange(listener func(term string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listener)
}

func (s *TermService) notify(listener func(string), term string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("term change listener panicked",
				zap.String("term", term),
				zap.Any("panic", r),
			)
		}
	}()
	listener(term)
}
