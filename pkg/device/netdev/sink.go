// ABOUTME: WebSocket sink accepting network stream devices
// ABOUTME: Collects hello handshakes and timestamped audio frames
package netdev

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// SinkFrame is one received audio frame.
type SinkFrame struct {
	ClientID        string
	TimestampMicros int64
	Payload         []byte
}

// Sink is an http.Handler that accepts device connections, reads their
// hello and forwards their audio frames to a channel. Mostly used to
// receive a NetStream device on the far end, and by tests.
type Sink struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]Hello

	// Frames delivers received audio frames. The channel is buffered;
	// frames are dropped when the consumer lags.
	Frames chan SinkFrame
}

// NewSink creates a sink with a buffered frame channel.
func NewSink() *Sink {
	return &Sink{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[string]Hello),
		Frames:  make(chan SinkFrame, 100),
	}
}

// Clients returns the hellos of all devices that ever connected.
func (s *Sink) Clients() []Hello {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Hello, 0, len(s.clients))
	for _, h := range s.clients {
		out = append(out, h)
	}
	return out
}

// ServeHTTP upgrades the connection and pumps frames until the device
// disconnects.
func (s *Sink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("sink upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	var hello Hello
	if err := conn.ReadJSON(&hello); err != nil {
		log.Printf("sink handshake failed: %v", err)
		return
	}
	s.mu.Lock()
	s.clients[hello.ClientID] = hello
	s.mu.Unlock()
	log.Printf("sink: client %s (%s) connected, %s %dHz %dch",
		hello.ClientID, hello.Name, hello.Codec, hello.SampleRate, hello.Channels)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		ts, payload, err := DecodeFrame(data)
		if err != nil {
			log.Printf("sink: bad frame from %s: %v", hello.ClientID, err)
			continue
		}
		select {
		case s.Frames <- SinkFrame{ClientID: hello.ClientID, TimestampMicros: ts, Payload: payload}:
		default:
			// consumer lagging, drop
		}
	}
}
