// Package websocket carries the two realtime surfaces: the per-run progress
// stream and the per-campaign collaboration channel. Frame interpretation
// lives in the services; this package only moves typed frames across
// connections.
package websocket

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/obdsuperstar/api/internal/model"
	"github.com/obdsuperstar/api/internal/service"
)

const pingInterval = 30 * time.Second

// ProgressHub streams pipeline progress frames to subscribers of a run. On
// connect the full buffered frame log is replayed (catch-up), then live
// frames follow; if the run is already terminal the connection is closed
// right after catch-up. Disconnecting never stops the pipeline.
type ProgressHub struct {
	pipeline *service.PipelineService
}

func NewProgressHub(pipeline *service.PipelineService) *ProgressHub {
	return &ProgressHub{pipeline: pipeline}
}

// HandleConnection serves one progress subscriber until the run finishes or
// the client goes away.
func (h *ProgressHub) HandleConnection(c *websocket.Conn, jobID string) {
	frames, live, cancel, err := h.pipeline.Subscribe(jobID)
	if err != nil {
		_ = c.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(4004, "run not found"))
		return
	}
	defer cancel()
	log.Printf("Progress WS connected for run %s", jobID)

	for _, frame := range frames {
		if err := writeFrame(c, frame); err != nil {
			return
		}
	}

	if live == nil {
		// Already terminal; catch-up was the whole conversation.
		_ = c.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case frame, ok := <-live:
				if !ok {
					_ = c.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
				if err := writeFrame(c, frame); err != nil {
					return
				}
			case <-ticker.C:
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// Reader loop only detects disconnects; the stream is server-to-client.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}
	cancel()
	<-done
	log.Printf("Progress WS disconnected for run %s", jobID)
}

func writeFrame(c *websocket.Conn, frame model.ProgressFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		log.Printf("Failed to marshal progress frame: %v", err)
		return nil
	}
	return c.WriteMessage(websocket.TextMessage, data)
}
