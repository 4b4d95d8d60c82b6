// websocket.go - Drag session WebSocket protocol
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/conveyor-designer/backend/internal/placement"
	"github.com/conveyor-designer/backend/internal/session"
)

// WebSocket message types for the drag protocol
const (
	// Client -> Server messages
	MsgTypeDragBegin   = "drag:begin"
	MsgTypePointerMove = "pointer:move"
	MsgTypePointerUp   = "pointer:up"
	MsgTypeKeyDown     = "key:down"
	MsgTypePing        = "ping"

	// Server -> Client messages
	MsgTypeConnected    = "connected"
	MsgTypeDragState    = "drag:state"
	MsgTypeCommitted    = "placement:committed"
	MsgTypeFailed       = "placement:failed"
	MsgTypeCancelled    = "placement:cancelled"
	MsgTypeSlotsChanged = "slots:changed"
	MsgTypeError        = "error"
	MsgTypePong         = "pong"
)

// WebSocket message structure
type WSMessage struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// Drag state payload sent while a drag is in flight
type WSDragStatePayload struct {
	State placement.DragState `json:"state"`
	Ghost *placement.Ghost    `json:"ghost,omitempty"`
}

// WebSocket error response
type WSErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// wsClient serializes writes to one connection. After a takeover the drag
// observer can fire from the new connection's read loop, so writes to a
// connection are not confined to its own goroutine.
type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsClient) send(msg WSMessage) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.conn.WriteJSON(msg); err != nil {
		fmt.Printf("[WebSocket] Failed to send message: %v\n", err)
	}
}

func (w *wsClient) sendError(message, code string) {
	w.send(WSMessage{
		Type:      MsgTypeError,
		Timestamp: time.Now().UnixMilli(),
		Payload: mustJSON(WSErrorResponse{
			Type:    MsgTypeError,
			Message: message,
			Code:    code,
		}),
	})
}

// WebSocketHandler manages WebSocket connections for drag sessions
type WebSocketHandler struct {
	sessions        SessionManager
	upgrader        websocket.Upgrader
	maxMessageBytes int64
}

// NewWebSocketHandler creates a new drag session WebSocket handler
func NewWebSocketHandler(sessions SessionManager) *WebSocketHandler {
	return &WebSocketHandler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
		},
		maxMessageBytes: 64 * 1024,
	}
}

// HandleWebSocket upgrades the connection and runs the drag protocol for
// one editing session. The connection becomes the session's drag event
// sink; a later connection to the same session takes the stream over.
func (wsh *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	id := c.Param("sessionId")
	sess, ok := wsh.sessions.Session(id)
	if !ok {
		return NewNotFoundError("session", id)
	}

	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	if wsh.maxMessageBytes > 0 {
		ws.SetReadLimit(wsh.maxMessageBytes)
	}

	client := &wsClient{conn: ws}
	fmt.Printf("[WebSocket] Client connected to session %s\n", id)

	observer := &session.DragObserver{
		OnPreview: func(g placement.Ghost) {
			client.send(WSMessage{
				Type:      MsgTypeDragState,
				Timestamp: time.Now().UnixMilli(),
				Payload:   mustJSON(WSDragStatePayload{State: placement.StateTargeting, Ghost: &g}),
			})
		},
		OnPreviewReleased: func(placement.Ghost) {
			client.send(WSMessage{
				Type:      MsgTypeDragState,
				Timestamp: time.Now().UnixMilli(),
				Payload:   mustJSON(WSDragStatePayload{State: placement.StateDragging}),
			})
		},
		OnResult: func(n placement.Notification) {
			client.send(WSMessage{
				Type:      resultMessageType(n.Outcome),
				Timestamp: time.Now().UnixMilli(),
				Payload:   mustJSON(n),
			})
		},
		OnSlotsChanged: func(u session.ParameterUpdate) {
			client.send(WSMessage{
				Type:      MsgTypeSlotsChanged,
				Timestamp: time.Now().UnixMilli(),
				Payload:   mustJSON(u),
			})
		},
	}
	sess.SetObserver(observer)
	defer func() {
		// Detach only if no later connection took the stream over. A drag
		// left in flight would pin the session past its max age, so the
		// owner cancels it on the way out.
		if sess.ClearObserver(observer) {
			sess.Dragger.Cancel()
		}
	}()

	client.send(WSMessage{
		Type:      MsgTypeConnected,
		Timestamp: time.Now().UnixMilli(),
		Payload:   mustJSON(sess.Info()),
	})

	// Main message loop
	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				fmt.Printf("[WebSocket] Connection error: %v\n", err)
			}
			break
		}

		switch msg.Type {
		case MsgTypePing:
			client.send(WSMessage{Type: MsgTypePong, Timestamp: time.Now().UnixMilli()})
		case MsgTypeDragBegin:
			wsh.handleDragBegin(client, sess, msg)
		case MsgTypePointerMove:
			wsh.handlePointer(client, sess.Dispatcher.PointerMove, msg)
		case MsgTypePointerUp:
			wsh.handlePointer(client, sess.Dispatcher.PointerUp, msg)
		case MsgTypeKeyDown:
			wsh.handleKey(client, sess, msg)
		default:
			client.sendError("Unknown message type: "+msg.Type, "INVALID_TYPE")
		}
	}

	fmt.Printf("[WebSocket] Client disconnected from session %s\n", id)
	return nil
}

// handleDragBegin starts a drag from the raw payload the frontend lifted
// off the dragstart event. A drag already in flight is superseded; its
// cancellation notification goes out before the new drag starts.
func (wsh *WebSocketHandler) handleDragBegin(client *wsClient, sess *session.EditSession, msg WSMessage) {
	if err := sess.Dragger.BeginDrag(string(msg.Payload)); err != nil {
		client.sendError("Invalid drag payload: "+err.Error(), "INVALID_PAYLOAD")
		return
	}

	client.send(WSMessage{
		Type:      MsgTypeDragState,
		Timestamp: time.Now().UnixMilli(),
		Payload:   mustJSON(WSDragStatePayload{State: placement.StateDragging}),
	})
}

// handlePointer forwards a pointer sample to the session's dispatcher
func (wsh *WebSocketHandler) handlePointer(client *wsClient, dispatch func(placement.PointerEvent), msg WSMessage) {
	var ev placement.PointerEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		client.sendError("Invalid pointer payload: "+err.Error(), "INVALID_PAYLOAD")
		return
	}
	dispatch(ev)
}

// handleKey forwards a key press to the session's dispatcher
func (wsh *WebSocketHandler) handleKey(client *wsClient, sess *session.EditSession, msg WSMessage) {
	var ev placement.KeyEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		client.sendError("Invalid key payload: "+err.Error(), "INVALID_PAYLOAD")
		return
	}
	sess.Dispatcher.KeyDown(ev)
}

// Helper functions

func resultMessageType(o placement.Outcome) string {
	switch o {
	case placement.OutcomeCommitted:
		return MsgTypeCommitted
	case placement.OutcomeCancelled:
		return MsgTypeCancelled
	default:
		return MsgTypeFailed
	}
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
