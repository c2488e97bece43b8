package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"HeartForm/internal/domain/models"
	"HeartForm/internal/usecase"
	xhttp "HeartForm/pkg/http"
	xlogger "HeartForm/pkg/logger"
)

const (
	wsPingInterval = 30 * time.Second
	wsWriteWait    = 10 * time.Second
	wsReadLimit    = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// socketFrame is a server frame: a state push or an error for the last
// client message.
type socketFrame struct {
	Type    string        `json:"type"`
	Data    *FormResponse `json:"data,omitempty"`
	Message string        `json:"message,omitempty"`
	Errors  interface{}   `json:"errors,omitempty"`
}

// Socket upgrades to a websocket that pushes the form after every transition
// and accepts change and submit frames.
func (h *FormEchoHandler) Socket(c echo.Context) error {
	form, id := h.session(c)

	header := http.Header{}
	if cookies := c.Response().Header().Values(echo.HeaderSetCookie); len(cookies) > 0 {
		header[echo.HeaderSetCookie] = cookies
	}
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), header)
	if err != nil {
		h.logger.Warn("websocket upgrade", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, unsubscribe := form.Subscribe()
	defer unsubscribe()

	out := make(chan socketFrame, 8)
	go h.writeLoop(ctx, cancel, conn, id, updates, out)

	initial := newFormResponse(id, form.Snapshot())
	send(ctx, out, socketFrame{Type: "state", Data: &initial})

	conn.SetReadLimit(wsReadLimit)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read", xlogger.String("session_id", id), xlogger.Error(err))
			}
			return nil
		}
		if frame, ok := h.handleFrame(ctx, form, id, data); !ok {
			send(ctx, out, frame)
		}
	}
}

// handleFrame applies one client message. It returns an error frame and
// false when the message was rejected.
func (h *FormEchoHandler) handleFrame(ctx context.Context, form *usecase.PredictionForm, id string, data []byte) (socketFrame, bool) {
	var msg models.SocketMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return socketFrame{Type: "error", Message: "invalid message"}, false
	}
	if verr := xhttp.ValidateStruct(ctx, &msg); verr != nil {
		return socketFrame{Type: "error", Message: "invalid message", Errors: verr}, false
	}

	switch msg.Type {
	case "change":
		if _, err := form.Change(ctx, msg.Field, msg.Value, fieldKind(msg.Field, msg.Kind)); err != nil {
			return socketFrame{Type: "error", Message: err.Error()}, false
		}
	case "submit":
		if form.Snapshot().Loading {
			return socketFrame{Type: "error", Message: usecase.ErrSubmitInProgress.Error()}, false
		}
		if !h.limiter.Allow(id) {
			return socketFrame{Type: "error", Message: "too many prediction requests"}, false
		}
		if _, err := form.Submit(ctx); err != nil {
			return socketFrame{Type: "error", Message: err.Error()}, false
		}
	}
	return socketFrame{}, true
}

func (h *FormEchoHandler) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, id string, updates <-chan usecase.State, out <-chan socketFrame) {
	defer cancel()
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		var err error
		select {
		case <-ctx.Done():
			return
		case s, ok := <-updates:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"),
					time.Now().Add(wsWriteWait))
				return
			}
			resp := newFormResponse(id, s)
			err = writeJSON(conn, socketFrame{Type: "state", Data: &resp})
		case f := <-out:
			err = writeJSON(conn, f)
		case <-ticker.C:
			err = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
		}
		if err != nil {
			h.logger.Debug("websocket write", xlogger.String("session_id", id), xlogger.Error(err))
			_ = conn.Close()
			return
		}
	}
}

func writeJSON(conn *websocket.Conn, v interface{}) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(v)
}

func send(ctx context.Context, out chan<- socketFrame, f socketFrame) {
	select {
	case out <- f:
	case <-ctx.Done():
	}
}
