package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Checker reports whether a dependency is reachable.
type Checker interface {
	Ping(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Ping(ctx context.Context) error { return f(ctx) }

// Component is the result of one dependency check.
type Component struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Report is the health payload.
type Report struct {
	OK         bool        `json:"ok"`
	Components []Component `json:"components,omitempty"`
}

// Service encapsulates health-related checks.
type Service struct {
	mu      sync.RWMutex
	checks  map[string]Checker
	timeout time.Duration
}

// NewService constructs a new health service.
func NewService() *Service {
	return &Service{checks: map[string]Checker{}, timeout: 2 * time.Second}
}

// Register adds a named dependency check. A nil checker is ignored.
func (s *Service) Register(name string, c Checker) {
	if c == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = c
}

// Status pings every registered dependency concurrently.
func (s *Service) Status(ctx context.Context) Report {
	s.mu.RLock()
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	checks := make(map[string]Checker, len(s.checks))
	for k, v := range s.checks {
		checks[k] = v
	}
	s.mu.RUnlock()
	sort.Strings(names)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out := make([]Component, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			comp := Component{Name: name, OK: true}
			if err := checks[name].Ping(ctx); err != nil {
				comp.OK = false
				comp.Error = err.Error()
			}
			out[i] = comp
		}(i, name)
	}
	wg.Wait()

	report := Report{OK: true, Components: out}
	for _, c := range out {
		if !c.OK {
			report.OK = false
		}
	}
	return report
}
