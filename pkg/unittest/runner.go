// ABOUTME: Self-test runner
// ABOUTME: Executes suites, tallies per-section results, and reports
package unittest

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"
)

// Result holds the outcome of one section of one suite.
type Result struct {
	SuiteName string
	Category  string
	Section   string
	Passes    int
	Failures  int
	Messages  []string
}

// Runner executes suites and collects their results. The zero value is
// ready to use; configure fields before calling Run methods.
type Runner struct {
	// AbortOnFailure makes suites stop at their first failed check.
	AbortOnFailure bool

	// Log receives progress messages. Defaults to the standard logger.
	Log func(format string, args ...any)

	// Seed drives the random source handed to suites. Zero picks the
	// current time so repeated runs shake out order-dependent bugs.
	Seed int64

	// ResultsUpdated, when set, fires after every recorded pass or
	// failure. Useful for live progress displays.
	ResultsUpdated func()

	mu      sync.Mutex
	results []Result
	rand    *rand.Rand
}

// RunAll executes every registered suite.
func (r *Runner) RunAll() {
	r.RunSuites(AllSuites())
}

// RunSuites executes the given suites in order, collecting results.
// Earlier results are discarded.
func (r *Runner) RunSuites(suites []Suite) {
	seed := r.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	r.mu.Lock()
	r.results = nil
	r.rand = rand.New(rand.NewSource(seed))
	r.mu.Unlock()

	r.logf("running %d suites with seed %d", len(suites), seed)

	for _, s := range suites {
		r.runOne(s)
	}

	passes, failures := r.totals()
	r.logf("done: %d passes, %d failures", passes, failures)
}

func (r *Runner) runOne(s Suite) {
	r.logf("suite: %s", s.Name())

	if init, ok := s.(Initialiser); ok {
		if err := init.Initialise(); err != nil {
			r.beginSection(s, "initialise")
			r.addFailure(s, "initialise", fmt.Sprintf("setup failed: %v", err))
			return
		}
	}

	t := &T{runner: r, suite: s}
	r.beginSection(s, "")
	s.Run(t)

	if shut, ok := s.(Shutdowner); ok {
		shut.Shutdown()
	}
}

// NumResults returns how many section results have been collected.
func (r *Runner) NumResults() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

// Result returns a copy of the i'th collected result.
func (r *Runner) Result(i int) Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := r.results[i]
	res.Messages = append([]string(nil), res.Messages...)
	return res
}

// Results returns a copy of all collected results.
func (r *Runner) Results() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Result, len(r.results))
	for i, res := range r.results {
		res.Messages = append([]string(nil), res.Messages...)
		out[i] = res
	}
	return out
}

// Failures returns the total failure count across all results.
func (r *Runner) Failures() int {
	_, failures := r.totals()
	return failures
}

// Random returns the run's seeded random source.
func (r *Runner) Random() *rand.Rand {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rand == nil {
		r.rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return r.rand
}

func (r *Runner) totals() (passes, failures int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range r.results {
		passes += res.Passes
		failures += res.Failures
	}
	return passes, failures
}

func (r *Runner) beginSection(s Suite, section string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Reuse the open unnamed result a suite starts with.
	if n := len(r.results); n > 0 {
		last := &r.results[n-1]
		if last.SuiteName == s.Name() && last.Section == "" && last.Passes == 0 && last.Failures == 0 {
			last.Section = section
			return
		}
	}
	r.results = append(r.results, Result{
		SuiteName: s.Name(),
		Category:  categoryOf(s),
		Section:   section,
	})
}

func (r *Runner) addPass(s Suite) {
	r.mu.Lock()
	r.currentLocked(s).Passes++
	r.mu.Unlock()
	r.notify()
}

func (r *Runner) addFailure(s Suite, section, message string) {
	r.mu.Lock()
	res := r.currentLocked(s)
	res.Failures++
	res.Messages = append(res.Messages, message)
	r.mu.Unlock()

	if section != "" {
		r.logf("FAIL %s / %s: %s", s.Name(), section, message)
	} else {
		r.logf("FAIL %s: %s", s.Name(), message)
	}
	r.notify()
}

func (r *Runner) notify() {
	if r.ResultsUpdated != nil {
		r.ResultsUpdated()
	}
}

func (r *Runner) currentLocked(s Suite) *Result {
	if n := len(r.results); n > 0 && r.results[n-1].SuiteName == s.Name() {
		return &r.results[n-1]
	}
	r.results = append(r.results, Result{SuiteName: s.Name(), Category: categoryOf(s)})
	return &r.results[len(r.results)-1]
}

func (r *Runner) logf(format string, args ...any) {
	if r.Log != nil {
		r.Log(format, args...)
		return
	}
	log.Printf(format, args...)
}

func categoryOf(s Suite) string {
	if c, ok := s.(Categorised); ok {
		return c.Category()
	}
	return ""
}
