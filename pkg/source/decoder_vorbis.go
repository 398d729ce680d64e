// ABOUTME: Ogg Vorbis stream decoder
// ABOUTME: Wraps jfreymuth/oggvorbis behind the Decoder interface
package source

import (
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"

	"github.com/openduplex/duplex-go/pkg/audio"
)

func init() {
	RegisterDecoder("ogg", newVorbisDecoder)
	RegisterDecoder("oga", newVorbisDecoder)
}

type vorbisDecoder struct {
	dec    *oggvorbis.Reader
	format audio.Format
	buf    []float32
}

func newVorbisDecoder(r io.ReadSeeker) (Decoder, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create vorbis decoder: %w", err)
	}
	return &vorbisDecoder{
		dec:    dec,
		format: audio.Format{SampleRate: dec.SampleRate(), Channels: dec.Channels(), BitDepth: 16},
	}, nil
}

func (d *vorbisDecoder) Format() audio.Format { return d.format }

func (d *vorbisDecoder) Read(dst []int32) (int, error) {
	if len(d.buf) != len(dst) {
		d.buf = make([]float32, len(dst))
	}

	n, err := d.dec.Read(d.buf)
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		if err != io.EOF {
			err = fmt.Errorf("vorbis decode: %w", err)
		}
		return 0, err
	}

	for i := 0; i < n; i++ {
		v := d.buf[i]
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		dst[i] = audio.Clamp24(int64(v * float32(audio.Max24Bit)))
	}
	return n, nil
}

func (d *vorbisDecoder) Close() error { return nil }
