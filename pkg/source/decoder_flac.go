// ABOUTME: FLAC stream decoder
// ABOUTME: Wraps mewkiz/flac behind the Decoder interface
package source

import (
	"fmt"
	"io"

	"github.com/mewkiz/flac"

	"github.com/openduplex/duplex-go/pkg/audio"
)

func init() {
	RegisterDecoder("flac", newFLACDecoder)
}

type flacDecoder struct {
	stream  *flac.Stream
	format  audio.Format
	pending []int32 // interleaved leftovers from the last parsed frame
}

func newFLACDecoder(r io.ReadSeeker) (Decoder, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create flac decoder: %w", err)
	}
	info := stream.Info
	return &flacDecoder{
		stream: stream,
		format: audio.Format{
			SampleRate: int(info.SampleRate),
			Channels:   int(info.NChannels),
			BitDepth:   int(info.BitsPerSample),
		},
	}, nil
}

func (d *flacDecoder) Format() audio.Format { return d.format }

func (d *flacDecoder) Read(dst []int32) (int, error) {
	written := 0
	for written < len(dst) {
		if len(d.pending) == 0 {
			frame, err := d.stream.ParseNext()
			if err != nil {
				if err == io.EOF {
					break
				}
				return written, fmt.Errorf("flac decode: %w", err)
			}
			// Subframe samples are signed at every depth, including 8-bit,
			// so a plain shift left-justifies them.
			shift := 24 - d.format.BitDepth
			d.pending = d.pending[:0]
			n := frame.Subframes[0].NSamples
			for i := 0; i < n; i++ {
				for _, sub := range frame.Subframes {
					s := sub.Samples[i]
					if shift >= 0 {
						s <<= shift
					} else {
						s >>= -shift
					}
					d.pending = append(d.pending, s)
				}
			}
		}

		n := copy(dst[written:], d.pending)
		d.pending = d.pending[n:]
		written += n
	}

	if written == 0 {
		return 0, io.EOF
	}
	return written, nil
}

func (d *flacDecoder) Close() error { return nil }
