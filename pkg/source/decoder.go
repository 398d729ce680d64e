// ABOUTME: Streaming decoder interface and format registry
// ABOUTME: Maps file extensions to decoders producing interleaved int32 PCM
package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/openduplex/duplex-go/pkg/audio"
)

// Decoder produces interleaved int32 PCM from an encoded stream.
type Decoder interface {
	// Format describes the decoded stream.
	Format() audio.Format

	// Read fills dst with interleaved samples and returns how many were
	// written. io.EOF with n == 0 means the stream is finished.
	Read(dst []int32) (n int, err error)

	// Close releases decoder resources.
	Close() error
}

// DecoderFactory builds a Decoder from a raw stream.
type DecoderFactory func(r io.ReadSeeker) (Decoder, error)

// Registry maps format keys (file extensions) to decoder factories.
type Registry struct {
	mtx       sync.Mutex
	factories map[string]DecoderFactory
}

// NewRegistry creates an empty decoder registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]DecoderFactory)}
}

// Register adds a factory for a format key like "wav".
func (r *Registry) Register(format string, f DecoderFactory) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.factories[strings.ToLower(format)] = f
}

// Get returns the factory for a format key.
func (r *Registry) Get(format string) (DecoderFactory, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	f, ok := r.factories[strings.ToLower(format)]
	return f, ok
}

// Formats lists the registered format keys.
func (r *Registry) Formats() []string {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	return out
}

var defaultRegistry = NewRegistry()

// RegisterDecoder adds a factory to the process-wide registry.
func RegisterDecoder(format string, f DecoderFactory) {
	defaultRegistry.Register(format, f)
}

// NewDecoder builds a decoder for the given format key from the
// process-wide registry.
func NewDecoder(format string, r io.ReadSeeker) (Decoder, error) {
	f, ok := defaultRegistry.Get(format)
	if !ok {
		return nil, fmt.Errorf("no decoder registered for %q (have %v)", format, defaultRegistry.Formats())
	}
	return f(r)
}

// fileDecoder couples a decoder with the file it reads from.
type fileDecoder struct {
	Decoder
	f *os.File
}

func (d *fileDecoder) Close() error {
	err := d.Decoder.Close()
	if cerr := d.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// OpenFile opens path and builds a decoder from its extension. Closing
// the returned decoder also closes the file.
func OpenFile(path string) (Decoder, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return nil, fmt.Errorf("cannot infer format of %q", path)
	}
	factory, ok := defaultRegistry.Get(ext)
	if !ok {
		return nil, fmt.Errorf("no decoder registered for %q (have %v)", ext, defaultRegistry.Formats())
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	dec, err := factory(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &fileDecoder{Decoder: dec, f: f}, nil
}
