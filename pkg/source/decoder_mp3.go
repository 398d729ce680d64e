// ABOUTME: MP3 stream decoder
// ABOUTME: Wraps hajimehoshi/go-mp3 behind the Decoder interface
package source

import (
	"encoding/binary"
	"fmt"
	"io"

	mp3 "github.com/hajimehoshi/go-mp3"

	"github.com/openduplex/duplex-go/pkg/audio"
)

func init() {
	RegisterDecoder("mp3", newMP3Decoder)
}

type mp3Decoder struct {
	dec    *mp3.Decoder
	format audio.Format
	buf    []byte
}

func newMP3Decoder(r io.ReadSeeker) (Decoder, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}
	return &mp3Decoder{
		dec: dec,
		// go-mp3 always outputs 16-bit stereo
		format: audio.Format{SampleRate: dec.SampleRate(), Channels: 2, BitDepth: 16},
	}, nil
}

func (d *mp3Decoder) Format() audio.Format { return d.format }

func (d *mp3Decoder) Read(dst []int32) (int, error) {
	want := len(dst) * 2
	if len(d.buf) != want {
		d.buf = make([]byte, want)
	}

	n, err := io.ReadFull(d.dec, d.buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		if err == io.EOF {
			return 0, io.EOF
		}
		return 0, fmt.Errorf("mp3 decode: %w", err)
	}

	samples := n / 2
	for i := 0; i < samples; i++ {
		sample16 := int16(binary.LittleEndian.Uint16(d.buf[i*2:]))
		dst[i] = audio.SampleFromInt16(sample16)
	}
	if samples == 0 {
		return 0, io.EOF
	}
	return samples, nil
}

func (d *mp3Decoder) Close() error { return nil }
