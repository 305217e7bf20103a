package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/suzarilshah/aquanexus-sub003/pkg/pubsub"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
)

// handleStream pushes the session events of one environment over a
// websocket. The current sessions are sent first as a snapshot.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userID(r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	env, err := s.environmentFor(r.Context(), userID, r.URL.Query().Get("environmentId"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	snapshot, err := s.Sessions.ListForEnvironment(r.Context(), env.ID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Websocket upgrade failed env=%s: %v", env.ID, err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	events, unsubscribe := s.Events.Subscribe(env.ID)
	defer unsubscribe()

	for i := range snapshot {
		sess := &snapshot[i]

		if err := s.writeEvent(conn, pubsub.Event{
			Type:          pubsub.EventSessionUpdated,
			EnvironmentID: env.ID,
			SessionID:     sess.ID,
			DeviceType:    sess.DeviceType,
			Status:        sess.Status,
			Cursor:        sess.Cursor,
			TotalRows:     sess.TotalRows,
			Message:       "snapshot",
			Timestamp:     time.Now().UTC(),
		}); err != nil {
			return
		}
	}

	// The client never sends data; reading only surfaces the close.
	closed := make(chan struct{})

	go func() {
		defer close(closed)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}

			if err := s.writeEvent(conn, ev); err != nil {
				log.Printf("Websocket write failed env=%s: %v", env.ID, err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (*Server) writeEvent(conn *websocket.Conn, ev pubsub.Event) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}

	return conn.WriteJSON(ev)
}
