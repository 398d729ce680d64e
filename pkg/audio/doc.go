// ABOUTME: Package documentation for audio types
// ABOUTME: Describes the int32 sample convention shared by all packages
// Package audio provides the shared PCM types used across duplex-go.
//
// Samples are int32, left-justified so that 16-bit material occupies the
// upper bits of the 24-bit range. This lets 16-bit and 24-bit streams move
// through the same pipelines without loss; backends convert at the edge.
package audio
