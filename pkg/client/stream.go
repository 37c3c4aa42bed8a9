package client

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/fasthttp/websocket"

	"github.com/obdsuperstar/api/internal/model"
)

// FrameHandler consumes one progress frame. It returns true when the frame
// ended the run and reading should stop.
type FrameHandler func(frame model.ProgressFrame) bool

// ProgressStream reads a run's progress frames off the websocket and hands
// them to a FrameHandler. All interpretation of frames lives in the handler;
// the stream only moves bytes, drops malformed messages, and reports when the
// connection dies before the run ends.
type ProgressStream struct {
	conn      *websocket.Conn
	closeOnce sync.Once
	done      chan struct{}
}

// DialProgress opens the progress stream for a run.
func DialProgress(ctx context.Context, wsURL string) (*ProgressStream, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return &ProgressStream{conn: conn, done: make(chan struct{})}, nil
}

// Run reads frames until the handler reports the run is over, the stream is
// closed, or the connection drops. onLost is called only for a drop that
// happens before a terminal frame; the server data is intact in that case and
// the caller is expected to keep its run handle and resume later.
func (s *ProgressStream) Run(handle FrameHandler, onLost func(err error)) {
	defer s.Close()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
				// Closed locally, not a connection loss.
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) && onLost != nil {
					onLost(err)
				}
			}
			return
		}

		var frame model.ProgressFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		if handle(frame) {
			return
		}
	}
}

// Close tears the connection down. Safe to call more than once and
// concurrently with Run.
func (s *ProgressStream) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}
