// ABOUTME: Wire format for the network stream backend
// ABOUTME: JSON hello handshake plus timestamped binary audio frames
package netdev

import (
	"encoding/binary"
	"fmt"
)

// Codec names accepted in the hello handshake.
const (
	CodecPCM  = "pcm"  // interleaved 16-bit little-endian
	CodecOpus = "opus" // one opus packet per frame
)

// DefaultPath is the websocket endpoint a sink serves.
const DefaultPath = "/duplex"

// Hello is the JSON handshake a device sends after connecting.
type Hello struct {
	ClientID   string `json:"client_id"`
	Name       string `json:"name"`
	Codec      string `json:"codec"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// frameHeaderSize is the timestamp prefix on every binary audio frame.
const frameHeaderSize = 8

// EncodeFrame prefixes an audio payload with its timestamp in unix
// microseconds, big-endian, matching the binary chunk framing used on
// the wire.
func EncodeFrame(timestampMicros int64, payload []byte) []byte {
	buf := make([]byte, frameHeaderSize+len(payload))
	binary.BigEndian.PutUint64(buf, uint64(timestampMicros))
	copy(buf[frameHeaderSize:], payload)
	return buf
}

// DecodeFrame splits a binary frame into timestamp and payload. The
// payload aliases the input buffer.
func DecodeFrame(frame []byte) (timestampMicros int64, payload []byte, err error) {
	if len(frame) < frameHeaderSize {
		return 0, nil, fmt.Errorf("frame too short: %d bytes", len(frame))
	}
	return int64(binary.BigEndian.Uint64(frame)), frame[frameHeaderSize:], nil
}
