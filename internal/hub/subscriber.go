package hub

import (
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

type subscriber struct {
	id   string
	conn *ws.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newSubscriber(id string, conn *ws.Conn, queue int) *subscriber {
	return &subscriber{
		id:   id,
		conn: conn,
		send: make(chan []byte, queue),
		done: make(chan struct{}),
	}
}

// trySend queues data for the writer. It never blocks and reports false when
// the queue is full or the subscriber is closing.
func (s *subscriber) trySend(data []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

// close sends a close frame and releases the connection. Safe to call more
// than once and from either loop.
func (s *subscriber) close(writeWait time.Duration) {
	s.once.Do(func() {
		close(s.done)
		if s.conn == nil {
			return
		}
		_ = s.conn.WriteControl(
			ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		_ = s.conn.Close()
	})
}
