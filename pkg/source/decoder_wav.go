// ABOUTME: WAV stream decoder
// ABOUTME: Wraps go-audio/wav behind the Decoder interface
package source

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/openduplex/duplex-go/pkg/audio"
)

func init() {
	RegisterDecoder("wav", newWAVDecoder)
}

type wavDecoder struct {
	dec    *wav.Decoder
	format audio.Format
	buf    *goaudio.IntBuffer
}

func newWAVDecoder(r io.ReadSeeker) (Decoder, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("not a valid wav stream")
	}
	return &wavDecoder{
		dec: dec,
		format: audio.Format{
			SampleRate: int(dec.SampleRate),
			Channels:   int(dec.NumChans),
			BitDepth:   int(dec.BitDepth),
		},
	}, nil
}

func (d *wavDecoder) Format() audio.Format { return d.format }

func (d *wavDecoder) Read(dst []int32) (int, error) {
	if d.buf == nil || len(d.buf.Data) != len(dst) {
		d.buf = &goaudio.IntBuffer{
			Format: &goaudio.Format{NumChannels: d.format.Channels, SampleRate: d.format.SampleRate},
			Data:   make([]int, len(dst)),
		}
	}

	n, err := d.dec.PCMBuffer(d.buf)
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("wav decode: %w", err)
	}
	if n == 0 {
		return 0, io.EOF
	}

	for i := 0; i < n; i++ {
		dst[i] = audio.SampleFromBitDepth(d.buf.Data[i], d.format.BitDepth)
	}
	return n, nil
}

func (d *wavDecoder) Close() error { return nil }
