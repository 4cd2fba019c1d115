package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/stratfolio/internal/metrics"
	"github.com/wonny/stratfolio/internal/risk"
)

const (
	writeWait      = 10 * time.Second
	progressBucket = 100 // progress 메시지 최대 개수
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamMessage is one frame of the Monte Carlo stream
type StreamMessage struct {
	Type   string                 `json:"type"` // progress | result | error
	Done   int                    `json:"done,omitempty"`
	Total  int                    `json:"total,omitempty"`
	Result *risk.MonteCarloResult `json:"result,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

// MonteCarloStream runs one simulation per connection and streams progress
// GET /ws/montecarlo; the first client frame is a MonteCarloRequest
func (h *Handler) MonteCarloStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade websocket")
		return
	}
	defer conn.Close()

	metrics.WSConnections.Inc()
	defer metrics.WSConnections.Dec()

	var req MonteCarloRequest
	if err := conn.ReadJSON(&req); err != nil {
		h.writeFrame(conn, StreamMessage{Type: "error", Error: "Invalid request body"})
		return
	}
	cfg, err := req.Config()
	if err != nil {
		h.writeFrame(conn, StreamMessage{Type: "error", Error: err.Error()})
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// 클라이언트 종료 감지 → 시뮬레이션 취소
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	cfg.Progress = func(done, total int) {
		step := total / progressBucket
		if step < 1 {
			step = 1
		}
		if done%step == 0 || done == total {
			h.writeFrame(conn, StreamMessage{Type: "progress", Done: done, Total: total})
		}
	}

	result, err := h.orch.MonteCarlo(ctx, req.PortfolioData, cfg)
	switch {
	case err == nil:
		h.writeFrame(conn, StreamMessage{Type: "result", Result: result})
	case errors.Is(err, risk.ErrSimulationCancelled):
		h.logger.WithField("completed", completedRuns(result)).Info("Monte Carlo stream cancelled")
	default:
		msg := err.Error()
		if statusFor(err) == http.StatusInternalServerError {
			h.logger.WithError(err).Error("Monte Carlo stream failed")
			msg = "Failed to run monte carlo"
		}
		h.writeFrame(conn, StreamMessage{Type: "error", Error: msg})
		return
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// writeFrame progress 콜백은 직렬화되므로 writer 는 항상 하나
func (h *Handler) writeFrame(conn *websocket.Conn, msg StreamMessage) {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.WithError(err).WithField("type", msg.Type).Debug("Websocket write failed")
	}
}
