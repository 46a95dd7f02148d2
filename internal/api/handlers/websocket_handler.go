package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/isdelr/profile-view/internal/render"
	"github.com/isdelr/profile-view/internal/session"
	ws "github.com/isdelr/profile-view/internal/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler streams view re-renders to the page that mounted them.
type WebSocketHandler struct {
	hub      *ws.Hub
	sessions *session.Registry
	renderer *render.Renderer
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler. Connections are accepted
// from the serving host itself and from allowedOrigins.
func NewWebSocketHandler(hub *ws.Hub, sessions *session.Registry, renderer *render.Renderer, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		sessions: sessions,
		renderer: renderer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				if u, err := url.Parse(origin); err == nil && u.Host == r.Host {
					return true
				}
				return slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// Serve attaches to a view session. The view stays mounted for as long as the
// connection is open and is unmounted when it closes.
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session")
	sess, err := h.sessions.Attach(sessionID)
	if err != nil {
		status := http.StatusNotFound
		if errors.Is(err, session.ErrAlreadyAttached) {
			status = http.StatusConflict
		}
		log.Warn().Err(err).Str("session_id", sessionID).Msg("Rejected view websocket")
		http.Error(w, err.Error(), status)
		return
	}
	defer h.sessions.Remove(sessionID)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to upgrade websocket connection")
		return
	}

	client := ws.NewClient(h.hub, conn, sessionID)
	h.hub.Register(client)
	go client.WritePump()

	ctx, cancel := context.WithCancel(context.Background())
	watching := make(chan struct{})
	go func() {
		defer close(watching)
		h.watch(ctx, sess)
	}()

	// Incoming messages carry nothing for this view; reading only detects close.
	client.ReadPump(nil)

	cancel()
	<-watching
	h.hub.Unregister(client)
}

// watch pushes a render for every new view version until ctx is done or the
// view unmounts.
func (h *WebSocketHandler) watch(ctx context.Context, sess *session.Session) {
	var sent uint64
	first := true
	for {
		snap, changed := sess.View.Watch()
		if !snap.Mounted {
			return
		}
		if first || snap.Version != sent {
			body, err := h.renderer.ViewHTML(snap)
			if err != nil {
				log.Error().Err(err).Str("session_id", sess.ID).Msg("Failed to render view update")
				h.hub.BroadcastTo(sess.ID, ws.NewErrorMessage("Failed to render view"))
			} else {
				h.hub.BroadcastTo(sess.ID, ws.NewRenderMessage(snap.Version, string(body)))
			}
			sent, first = snap.Version, false
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return
		}
	}
}
