package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portunus/keypad/internal/auth"
	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/service"
	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/types"
)

const (
	streamWriteWait = 5 * time.Second
	streamReadLimit = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(_ *http.Request) bool {
		// The bearer token is the access check.
		return true
	},
}

// StreamMessage is one push on the dashboard stream.
type StreamMessage struct {
	Type       string               `json:"type"`
	ServerTime string               `json:"server_time"`
	Points     []types.DashboardRow `json:"points,omitempty"`
	Error      string               `json:"error,omitempty"`
}

// handleDashboardStream pushes the dashboard feed on every poll interval
// until the client goes away.  Connectivity is re-derived on each push, so
// a silent point decays from Live to Dead without any device traffic.
func (s *Server) handleDashboardStream(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := s.logger.With(zap.Int64("account_id", p.AccountID))
	poller := service.NewPoller("dashboard-stream", s.streamInterval, func(ctx context.Context) error {
		now := time.Now().UTC()
		msg := StreamMessage{Type: "dashboard", ServerTime: now.Format(time.RFC3339Nano)}

		rows, feedErr := s.dashboardService.Feed(ctx, p.AccountID, now)
		if feedErr != nil {
			msg.Type = "error"
			msg.Error = "dashboard temporarily unavailable"
		} else {
			msg.Points = rows
		}

		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		if err := conn.WriteJSON(msg); err != nil {
			cancel()
			return err
		}
		return feedErr
	}, logger)

	poller.Start(ctx)
	defer poller.Stop()

	// The client sends nothing meaningful; reading only detects close.
	conn.SetReadLimit(streamReadLimit)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("dashboard stream closed", zap.Error(err))
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}
