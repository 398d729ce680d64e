// ABOUTME: Shared streaming engine for device backends
// ABOUTME: Paces callbacks, zeroes output blocks and implements the stop-flush handshake
package device

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// BlockSource fills the planar input block for the next callback. A nil
// BlockSource means silent inputs. Returning io.EOF ends the stream
// cleanly; any other error stops the pump and is recorded as LastError.
type BlockSource func(in [][]int32, frames int) error

// BlockSink consumes the planar output block a callback produced. A nil
// BlockSink discards output. Errors stop the pump.
type BlockSink func(out [][]int32, frames int) error

// PumpStats counts what happened on the streaming goroutine.
type PumpStats struct {
	Callbacks int64
	Frames    int64
	Underruns int64
}

// Pump drives a Callback from a dedicated goroutine on behalf of a
// backend. It allocates the channel blocks once, zeroes the output block
// before every callback, paces invocations at the block duration (or
// freewheels), and guarantees that Stop only returns after any in-flight
// callback has finished and Stopped has been delivered.
type Pump struct {
	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	lastErr error
	playing atomic.Bool
	stats   struct {
		callbacks atomic.Int64
		frames    atomic.Int64
		underruns atomic.Int64
	}
}

// PumpConfig describes one streaming run.
type PumpConfig struct {
	Setup    Setup
	Realtime bool // pace callbacks at the block duration
	Source   BlockSource
	Sink     BlockSink
}

// Start launches the streaming goroutine. d is handed to the callback's
// AboutToStart; cfg.Setup decides block geometry and pacing.
func (p *Pump) Start(d Device, cb Callback, cfg PumpConfig) error {
	if cb == nil {
		return ErrNilCallback
	}
	if cfg.Setup.SampleRate <= 0 || cfg.Setup.BufferSize <= 0 {
		return ErrBadSetup
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	p.lastErr = nil
	p.playing.Store(true)

	go p.run(ctx, done, d, cb, cfg)
	return nil
}

func (p *Pump) run(ctx context.Context, done chan struct{}, d Device, cb Callback, cfg PumpConfig) {
	defer close(done)
	defer p.playing.Store(false)
	defer cb.Stopped()

	in := allocBlocks(cfg.Setup.InputChannels.Count(), cfg.Setup.BufferSize)
	out := allocBlocks(cfg.Setup.OutputChannels.Count(), cfg.Setup.BufferSize)
	frames := cfg.Setup.BufferSize

	cb.AboutToStart(d)

	var ticker *time.Ticker
	if cfg.Realtime {
		blockDur := time.Duration(float64(frames) / cfg.Setup.SampleRate * float64(time.Second))
		ticker = time.NewTicker(blockDur)
		defer ticker.Stop()
	}

	for {
		if cfg.Realtime {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		} else if ctx.Err() != nil {
			return
		}

		if cfg.Source != nil {
			if err := cfg.Source(in, frames); err != nil {
				if !errors.Is(err, io.EOF) {
					p.fail(cb, err)
				}
				return
			}
		} else {
			zeroBlocks(in)
		}

		zeroBlocks(out)
		cb.ProcessBlock(in, out, frames)
		p.stats.callbacks.Add(1)
		p.stats.frames.Add(int64(frames))

		if cfg.Sink != nil {
			if err := cfg.Sink(out, frames); err != nil {
				if !errors.Is(err, io.EOF) {
					p.fail(cb, err)
				}
				return
			}
		}
	}
}

func (p *Pump) fail(cb Callback, err error) {
	p.mu.Lock()
	p.lastErr = err
	p.mu.Unlock()
	log.Printf("device stream failed: %v", err)
	if reporter, ok := cb.(ErrorReporter); ok {
		reporter.DeviceError(err)
	}
}

// Stop cancels the streaming goroutine and waits for it to flush. Safe to
// call repeatedly and when never started.
func (p *Pump) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Playing reports whether the streaming goroutine is live. It turns false
// on its own if the backend fails or the source ends.
func (p *Pump) Playing() bool { return p.playing.Load() }

// LastError returns the error that killed the last run, or nil.
func (p *Pump) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// Stats returns a snapshot of the streaming counters.
func (p *Pump) Stats() PumpStats {
	return PumpStats{
		Callbacks: p.stats.callbacks.Load(),
		Frames:    p.stats.frames.Load(),
		Underruns: p.stats.underruns.Load(),
	}
}

// AddUnderrun lets a backend record that it had to emit silence.
func (p *Pump) AddUnderrun() { p.stats.underruns.Add(1) }

func allocBlocks(channels, frames int) [][]int32 {
	blocks := make([][]int32, channels)
	for i := range blocks {
		blocks[i] = make([]int32, frames)
	}
	return blocks
}

func zeroBlocks(blocks [][]int32) {
	for _, b := range blocks {
		for i := range b {
			b[i] = 0
		}
	}
}
