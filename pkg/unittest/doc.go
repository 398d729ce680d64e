// ABOUTME: Package doc for the self-test harness
// ABOUTME: In-process suites runnable from a shipped binary

// Package unittest is a small self-test harness for checks that ship
// inside the binary, where the standard testing package is unavailable.
// Suites register globally and a Runner executes them, tallying passes
// and failures per section.
package unittest
