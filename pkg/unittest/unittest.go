// ABOUTME: Self-test suite definitions and assertion handle
// ABOUTME: Suites register globally and run under a Runner
package unittest

import (
	"fmt"
	"sync"
)

// Suite is a named group of related checks. Run performs them all,
// reporting through the T handle.
type Suite interface {
	Name() string
	Run(t *T)
}

// Categorised is implemented by suites that belong to a category;
// the runner groups and filters by it.
type Categorised interface {
	Category() string
}

// Initialiser is implemented by suites that need per-run setup.
type Initialiser interface {
	Initialise() error
}

// Shutdowner is implemented by suites that need per-run teardown.
type Shutdowner interface {
	Shutdown()
}

// T is the handle a suite reports through. It accumulates pass and
// failure counts per section started with Begin.
type T struct {
	runner  *Runner
	suite   Suite
	section string
	aborted bool
}

// Begin starts a named section within the suite. Results are tallied
// against the most recent section.
func (t *T) Begin(section string) {
	t.section = section
	t.runner.beginSection(t.suite, section)
}

// Expect records a pass when ok is true, otherwise a failure with the
// given message.
func (t *T) Expect(ok bool, message string) {
	if ok {
		t.runner.addPass(t.suite)
		return
	}
	t.fail(message)
}

// Expectf is Expect with a formatted failure message.
func (t *T) Expectf(ok bool, format string, args ...any) {
	if ok {
		t.runner.addPass(t.suite)
		return
	}
	t.fail(fmt.Sprintf(format, args...))
}

// ExpectEquals records a pass when got equals want.
func ExpectEquals[V comparable](t *T, got, want V, message string) {
	if got == want {
		t.runner.addPass(t.suite)
		return
	}
	t.fail(fmt.Sprintf("%s: expected %v, got %v", message, want, got))
}

// Logf emits a message into the runner's log without affecting counts.
func (t *T) Logf(format string, args ...any) {
	t.runner.logf("[%s] %s", t.suite.Name(), fmt.Sprintf(format, args...))
}

// Aborted reports whether the runner has asked this suite to stop.
// Suites with expensive sections should check it between Begins.
func (t *T) Aborted() bool { return t.aborted }

func (t *T) fail(message string) {
	t.runner.addFailure(t.suite, t.section, message)
	if t.runner.AbortOnFailure {
		t.aborted = true
	}
}

var (
	registryMu sync.Mutex
	registry   []Suite
)

// Register adds a suite to the global list picked up by RunAll.
// Typically called from an init function.
func Register(s Suite) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = append(registry, s)
}

// AllSuites returns the registered suites in registration order.
func AllSuites() []Suite {
	registryMu.Lock()
	defer registryMu.Unlock()
	out := make([]Suite, len(registry))
	copy(out, registry)
	return out
}

// SuitesInCategory returns registered suites whose category matches.
func SuitesInCategory(category string) []Suite {
	var out []Suite
	for _, s := range AllSuites() {
		if c, ok := s.(Categorised); ok && c.Category() == category {
			out = append(out, s)
		}
	}
	return out
}
