package server

import (
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"sockgate/internal/gateway"
	identityservice "sockgate/internal/identity/service"
	"sockgate/internal/revocation"
	"sockgate/internal/security"
	userdomain "sockgate/internal/user/domain"
)

// connectWait is how long the server waits for the client's connect frame
// before falling back to header-only authentication.
const connectWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// Event is the wire envelope for every client and server frame.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type connectPayload struct {
	Token string `json:"token"`
}

type errorPayload struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
	For    string `json:"for,omitempty"`
}

// handleWS upgrades the connection, authenticates it exactly once, and then
// serves its event loop. No event handler runs before authentication has
// completed: the first frame is either the connect frame (carrying the auth
// payload) or is held back and dispatched only after the context is built.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	hs := gateway.Handshake{Header: r.Header, RemoteAddr: r.RemoteAddr}

	// Wait briefly for a connect frame carrying the auth payload. Any other
	// frame arriving first is deferred until authentication completes.
	var deferred *Event
	_ = conn.SetReadDeadline(time.Now().Add(connectWait))
	_, raw, err := conn.ReadMessage()
	switch {
	case err == nil:
		var ev Event
		if jsonErr := json.Unmarshal(raw, &ev); jsonErr != nil {
			closeWith(conn, websocket.CloseInvalidFramePayloadData, "malformed frame")
			return
		}
		if ev.Event == "connect" {
			var p connectPayload
			if len(ev.Data) > 0 {
				_ = json.Unmarshal(ev.Data, &p)
			}
			hs.Token = p.Token
		} else {
			deferred = &ev
		}
	case isTimeout(err):
		// No connect frame; header-only authentication.
	default:
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	cc, err := s.deps.Authenticator.Authenticate(r.Context(), hs)
	if err != nil {
		closeWith(conn, websocket.ClosePolicyViolation, hardRejectReason(err))
		return
	}

	ack := map[string]interface{}{
		"connection_id": cc.ID,
		"authenticated": cc.Authenticated,
	}
	if cc.Authenticated {
		ack["identity"] = map[string]string{
			"id":           cc.Identity.ID,
			"display_name": cc.Identity.DisplayName,
			"role":         string(cc.Identity.Role),
		}
	}
	if err := writeEvent(conn, "connect.ack", ack); err != nil {
		return
	}

	if deferred != nil {
		if err := s.dispatch(conn, cc, deferred); err != nil {
			return
		}
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			if err := writeError(conn, "", "MALFORMED_FRAME", "frame is not valid JSON"); err != nil {
				return
			}
			continue
		}
		if err := s.dispatch(conn, cc, &ev); err != nil {
			return
		}
	}
}

// dispatch runs one event through the rate limiter and its guard, then the
// handler. Denials answer the event with an error frame and keep the
// connection; only write failures propagate.
func (s *Server) dispatch(conn *websocket.Conn, cc *gateway.ConnContext, ev *Event) error {
	if err := s.deps.Limiter.Check(cc, ev.Event); err != nil {
		return writeError(conn, ev.Event, "RATE_LIMIT_EXCEEDED", "too many events")
	}

	switch ev.Event {
	case "presence.ping":
		return writeEvent(conn, "presence.pong", map[string]string{"connection_id": cc.ID})

	case "room.join":
		if err := s.deps.Gate.RequireAuthenticated(cc, ev.Event); err != nil {
			return s.writeDenial(conn, ev.Event, err)
		}
		var p struct {
			Room string `json:"room"`
		}
		if err := json.Unmarshal(ev.Data, &p); err != nil || p.Room == "" {
			return writeError(conn, ev.Event, "BAD_REQUEST", "room is required")
		}
		return writeEvent(conn, "room.joined", map[string]string{"room": p.Room})

	case "room.moderate":
		if err := s.deps.Gate.RequireRole(cc, ev.Event, userdomain.RoleModerator); err != nil {
			return s.writeDenial(conn, ev.Event, err)
		}
		var p struct {
			Room   string `json:"room"`
			Action string `json:"action"`
		}
		if err := json.Unmarshal(ev.Data, &p); err != nil || p.Room == "" {
			return writeError(conn, ev.Event, "BAD_REQUEST", "room is required")
		}
		return writeEvent(conn, "room.moderated", map[string]string{"room": p.Room, "action": p.Action})

	case "profile.update":
		var p struct {
			OwnerID     string `json:"owner_id"`
			DisplayName string `json:"display_name"`
		}
		if err := json.Unmarshal(ev.Data, &p); err != nil || p.OwnerID == "" {
			return writeError(conn, ev.Event, "BAD_REQUEST", "owner_id is required")
		}
		if err := s.deps.Gate.RequireOwnership(cc, ev.Event, p.OwnerID); err != nil {
			return s.writeDenial(conn, ev.Event, err)
		}
		return writeEvent(conn, "profile.updated", map[string]string{"owner_id": p.OwnerID})

	default:
		return writeError(conn, ev.Event, "UNKNOWN_EVENT", "unsupported event")
	}
}

func (s *Server) writeDenial(conn *websocket.Conn, event string, err error) error {
	switch {
	case errors.Is(err, gateway.ErrAuthRequired):
		return writeError(conn, event, "AUTH_REQUIRED", "authentication required")
	case errors.Is(err, gateway.ErrInsufficientPermissions):
		return writeError(conn, event, "INSUFFICIENT_PERMISSIONS", "role not permitted")
	case errors.Is(err, gateway.ErrAccessDenied):
		return writeError(conn, event, "ACCESS_DENIED", "not resource owner")
	default:
		return writeError(conn, event, "INTERNAL", "internal error")
	}
}

// hardRejectReason maps a connection-level authentication error to the close reason.
func hardRejectReason(err error) string {
	switch {
	case errors.Is(err, security.ErrWrongTokenType):
		return "WRONG_TOKEN_TYPE"
	case errors.Is(err, revocation.ErrTokenRevoked):
		return "TOKEN_REVOKED"
	case errors.Is(err, identityservice.ErrSessionNotFound):
		return "SESSION_NOT_FOUND"
	default:
		return "AUTH_FAILED"
	}
}

func writeEvent(conn *websocket.Conn, event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return conn.WriteJSON(Event{Event: event, Data: payload})
}

func writeError(conn *websocket.Conn, forEvent, code, reason string) error {
	payload, err := json.Marshal(errorPayload{Code: code, Reason: reason, For: forEvent})
	if err != nil {
		return err
	}
	return conn.WriteJSON(Event{Event: "error", Data: payload})
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
		log.Printf("server: write close frame: %v", err)
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
