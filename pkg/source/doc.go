// ABOUTME: Package doc for audio sources
// ABOUTME: Callbacks and decoders that feed devices with audio

// Package source provides audio-producing callbacks: a sine test tone
// and a file player backed by an extension-keyed decoder registry with
// WAV, MP3, FLAC, and Ogg Vorbis support.
package source
