// ABOUTME: Tests for the self-test harness
// ABOUTME: Covers result tallying, sections, abort, and lifecycle hooks
package unittest

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

type scriptedSuite struct {
	name     string
	category string
	script   func(t *T)

	initErr      error
	initialised  bool
	shutdownDone bool
}

func (s *scriptedSuite) Name() string     { return s.name }
func (s *scriptedSuite) Category() string { return s.category }
func (s *scriptedSuite) Run(t *T)         { s.script(t) }

func (s *scriptedSuite) Initialise() error {
	s.initialised = true
	return s.initErr
}

func (s *scriptedSuite) Shutdown() { s.shutdownDone = true }

func quietRunner() *Runner {
	return &Runner{Log: func(string, ...any) {}, Seed: 1}
}

func TestRunnerTallies(t *testing.T) {
	suite := &scriptedSuite{
		name:     "maths",
		category: "core",
		script: func(t *T) {
			t.Begin("addition")
			t.Expect(1+1 == 2, "one plus one")
			ExpectEquals(t, 2+2, 4, "two plus two")
			t.Begin("subtraction")
			t.Expect(5-3 == 1, "five minus three")
		},
	}

	r := quietRunner()
	r.RunSuites([]Suite{suite})

	if r.NumResults() != 2 {
		t.Fatalf("expected 2 section results, got %d", r.NumResults())
	}

	add := r.Result(0)
	if add.Section != "addition" || add.Passes != 2 || add.Failures != 0 {
		t.Errorf("unexpected addition result: %+v", add)
	}
	if add.SuiteName != "maths" || add.Category != "core" {
		t.Errorf("unexpected result identity: %+v", add)
	}

	sub := r.Result(1)
	if sub.Section != "subtraction" || sub.Passes != 0 || sub.Failures != 1 {
		t.Errorf("unexpected subtraction result: %+v", sub)
	}
	if len(sub.Messages) != 1 || !strings.Contains(sub.Messages[0], "five minus three") {
		t.Errorf("unexpected failure messages: %v", sub.Messages)
	}

	if r.Failures() != 1 {
		t.Errorf("expected 1 failure total, got %d", r.Failures())
	}
}

func TestExpectEqualsMessage(t *testing.T) {
	suite := &scriptedSuite{
		name: "eq",
		script: func(t *T) {
			t.Begin("values")
			ExpectEquals(t, "got", "want", "strings differ")
		},
	}

	r := quietRunner()
	r.RunSuites([]Suite{suite})

	msg := r.Result(0).Messages[0]
	if !strings.Contains(msg, "expected want") || !strings.Contains(msg, "got got") {
		t.Errorf("unexpected message: %q", msg)
	}
}

func TestAbortOnFailure(t *testing.T) {
	checks := 0
	suite := &scriptedSuite{
		name: "abort",
		script: func(t *T) {
			t.Begin("first")
			t.Expect(false, "always fails")
			if t.Aborted() {
				return
			}
			checks++
			t.Expect(true, "never reached")
		},
	}

	r := quietRunner()
	r.AbortOnFailure = true
	r.RunSuites([]Suite{suite})

	if checks != 0 {
		t.Error("expected suite to stop at first failure")
	}
}

func TestInitialiseFailureSkipsRun(t *testing.T) {
	suite := &scriptedSuite{
		name:    "broken",
		initErr: errors.New("no hardware"),
		script: func(t *T) {
			t.Expect(true, "should not run")
		},
	}

	r := quietRunner()
	r.RunSuites([]Suite{suite})

	if !suite.initialised {
		t.Error("expected Initialise to be called")
	}
	if suite.shutdownDone {
		t.Error("expected Shutdown to be skipped after failed setup")
	}
	res := r.Result(0)
	if res.Failures != 1 || res.Passes != 0 {
		t.Errorf("expected one setup failure, got %+v", res)
	}
}

func TestShutdownRuns(t *testing.T) {
	suite := &scriptedSuite{
		name:   "clean",
		script: func(t *T) { t.Expect(true, "fine") },
	}

	r := quietRunner()
	r.RunSuites([]Suite{suite})

	if !suite.shutdownDone {
		t.Error("expected Shutdown to run")
	}
}

func TestRunnerLogSink(t *testing.T) {
	var lines []string
	suite := &scriptedSuite{
		name: "logs",
		script: func(t *T) {
			t.Begin("talk")
			t.Logf("answer is %d", 42)
			t.Expect(true, "ok")
		},
	}

	r := &Runner{Seed: 1, Log: func(format string, args ...any) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}}
	r.RunSuites([]Suite{suite})

	found := false
	for _, l := range lines {
		if strings.Contains(l, "answer is 42") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected log message in output, got %v", lines)
	}
}

func TestResultsUpdatedHook(t *testing.T) {
	suite := &scriptedSuite{
		name: "hook",
		script: func(t *T) {
			t.Begin("checks")
			t.Expect(true, "ok")
			t.Expect(false, "bad")
		},
	}

	fired := 0
	r := quietRunner()
	r.ResultsUpdated = func() { fired++ }
	r.RunSuites([]Suite{suite})

	if fired != 2 {
		t.Errorf("expected hook to fire per check, got %d", fired)
	}
}

func TestSeededRandom(t *testing.T) {
	a := &Runner{Seed: 7, Log: func(string, ...any) {}}
	b := &Runner{Seed: 7, Log: func(string, ...any) {}}
	a.RunSuites(nil)
	b.RunSuites(nil)
	if a.Random().Int63() != b.Random().Int63() {
		t.Error("expected identical sequences for identical seeds")
	}
}

func TestSuitesInCategory(t *testing.T) {
	core := &scriptedSuite{name: "in", category: "wanted", script: func(*T) {}}
	other := &scriptedSuite{name: "out", category: "other", script: func(*T) {}}
	Register(core)
	Register(other)

	found := SuitesInCategory("wanted")
	ok := false
	for _, s := range found {
		if s == Suite(core) {
			ok = true
		}
		if s == Suite(other) {
			t.Error("category filter leaked an unrelated suite")
		}
	}
	if !ok {
		t.Error("expected registered suite in its category")
	}
}
