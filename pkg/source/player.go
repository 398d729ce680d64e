// ABOUTME: File playback callback
// ABOUTME: Streams a decoded audio file through any device callback slot
package source

import (
	"io"
	"log"
	"sync"
	"sync/atomic"

	"github.com/openduplex/duplex-go/pkg/audio"
	"github.com/openduplex/duplex-go/pkg/device"
)

// FilePlayer is a device.Callback that plays a Decoder to completion.
// When the decoder runs dry the player renders silence and signals Done;
// the device keeps running so callers decide when to stop it.
type FilePlayer struct {
	mu       sync.Mutex
	dec      Decoder
	format   audio.Format
	buf      []int32
	finished atomic.Bool
	done     chan struct{}
	doneOnce sync.Once
	frames   atomic.Int64
}

// NewFilePlayer wraps an already-open decoder. The player takes ownership
// and closes the decoder when playback finishes or Close is called.
func NewFilePlayer(dec Decoder) *FilePlayer {
	return &FilePlayer{
		dec:    dec,
		format: dec.Format(),
		done:   make(chan struct{}),
	}
}

// PlayFile opens path via the decoder registry and returns a player for it.
func PlayFile(path string) (*FilePlayer, error) {
	dec, err := OpenFile(path)
	if err != nil {
		return nil, err
	}
	return NewFilePlayer(dec), nil
}

// Format returns the decoded file's format.
func (p *FilePlayer) Format() audio.Format { return p.format }

// Done is closed once the decoder is exhausted.
func (p *FilePlayer) Done() <-chan struct{} { return p.done }

// Finished reports whether the whole file has been rendered.
func (p *FilePlayer) Finished() bool { return p.finished.Load() }

// FramesPlayed returns how many frames have been rendered so far.
func (p *FilePlayer) FramesPlayed() int64 { return p.frames.Load() }

// AboutToStart checks the device setup against the file format.
func (p *FilePlayer) AboutToStart(d device.Device) {
	setup := d.CurrentSetup()
	if int(setup.SampleRate) != p.format.SampleRate {
		log.Printf("warning: playing %dHz file on %gHz device, pitch will be off",
			p.format.SampleRate, setup.SampleRate)
	}
}

// ProcessBlock fills the output with the next stretch of the file. Decoded
// channels map onto enabled outputs by index; a mono file feeds every output.
func (p *FilePlayer) ProcessBlock(in, out [][]int32, frames int) {
	if p.finished.Load() || len(out) == 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	fileCh := p.format.Channels
	want := frames * fileCh
	if len(p.buf) < want {
		p.buf = make([]int32, want)
	}

	got := 0
	for got < want {
		n, err := p.dec.Read(p.buf[got:want])
		got += n
		if err != nil {
			if err != io.EOF {
				log.Printf("decode error, stopping playback: %v", err)
			}
			p.finishLocked()
			break
		}
	}

	gotFrames := got / fileCh
	for i := 0; i < gotFrames; i++ {
		for ch := range out {
			src := ch
			if src >= fileCh {
				src = src % fileCh
			}
			out[ch][i] = p.buf[i*fileCh+src]
		}
	}
	p.frames.Add(int64(gotFrames))
}

// Stopped releases the decoder if playback ended mid-file.
func (p *FilePlayer) Stopped() {}

// Close releases the decoder. Safe to call more than once.
func (p *FilePlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.finishLocked()
}

func (p *FilePlayer) finishLocked() error {
	p.finished.Store(true)
	p.doneOnce.Do(func() { close(p.done) })
	if p.dec == nil {
		return nil
	}
	err := p.dec.Close()
	p.dec = nil
	return err
}
