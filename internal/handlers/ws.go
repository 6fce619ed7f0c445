// internal/handlers/ws.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/brainbattle/battle-service/internal/broadcast"
)

// handleBattleWS subscribes the client to a room's event channel and forwards
// every envelope. The socket is read-only for the client; mutations go
// through the HTTP surface.
func (s *Server) handleBattleWS(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(r.PathValue("roomId"))
	if err != nil {
		http.Error(w, "invalid room id", http.StatusBadRequest)
		return
	}

	// Snapshot before upgrading so a bad room id is an HTTP error, not a
	// websocket close.
	state, err := s.Rooms.CachedState(r.Context(), roomID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.Log.Warnf("websocket accept error: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub := s.Rdb.Subscribe(ctx, broadcast.ChannelFor(roomID))
	defer sub.Close()

	// Initial snapshot so the client does not have to poll once before the
	// first mutation arrives.
	if err := writeWSJSON(ctx, c, broadcast.EventRoomUpdated, roomID, state); err != nil {
		return
	}

	// Drain client frames so pings and closes are processed.
	go func() {
		defer cancel()
		for {
			if _, _, err := c.Read(ctx); err != nil {
				return
			}
		}
	}()

	for {
		msg, err := sub.ReceiveMessage(ctx)
		if err != nil {
			c.Close(websocket.StatusNormalClosure, "subscription closed")
			return
		}
		writeCtx, writeCancel := context.WithTimeout(ctx, 10*time.Second)
		err = c.Write(writeCtx, websocket.MessageText, []byte(msg.Payload))
		writeCancel()
		if err != nil {
			s.Log.Warnf("websocket write error for room %s: %v", roomID, err)
			return
		}
	}
}

func writeWSJSON(ctx context.Context, c *websocket.Conn, event string, roomID uuid.UUID, payload interface{}) error {
	env, err := broadcast.Encode(event, roomID, payload)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return c.Write(writeCtx, websocket.MessageText, env)
}
