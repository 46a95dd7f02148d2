package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/profile-view/internal/models"
	"github.com/isdelr/profile-view/internal/profile"
	"github.com/isdelr/profile-view/internal/render"
	"github.com/isdelr/profile-view/internal/session"
	"github.com/rs/zerolog/log"
)

// Upstream is the remote API as seen by the handlers.
type Upstream interface {
	profile.Source
	GetPost(ctx context.Context, id string) (models.Post, error)
}

// ProfileHandler serves the user profile page.
type ProfileHandler struct {
	api      Upstream
	sessions *session.Registry
	renderer *render.Renderer
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(api Upstream, sessions *session.Registry, renderer *render.Renderer) *ProfileHandler {
	return &ProfileHandler{api: api, sessions: sessions, renderer: renderer}
}

// routeParams resolves the view identifier from the route.
func routeParams(r *http.Request) profile.Resolver {
	return func(context.Context) (profile.Params, error) {
		return profile.Params{ID: chi.URLParam(r, "id")}, nil
	}
}

// Show mounts a view for the user in the route. By default the current,
// usually pending, state is rendered at once and later states are pushed over
// the view's websocket. With ?wait=true the response is held until both
// resources have settled.
func (h *ProfileHandler) Show(w http.ResponseWriter, r *http.Request) {
	view := profile.NewView(h.api)

	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		view.MountFrom(r.Context(), routeParams(r))
		defer view.Unmount()

		snap, err := view.Wait(r.Context())
		if err != nil {
			log.Warn().Err(err).Str("user_id", snap.ID).Msg("Client went away before the profile settled")
			return
		}
		h.write(w, snap, "")
		return
	}

	// Loads outlive this request; the session owns them until unmount.
	sess := h.sessions.Create(chi.URLParam(r, "id"), view)
	view.MountFrom(context.WithoutCancel(r.Context()), routeParams(r))
	h.write(w, view.Snapshot(), sess.ID)
}

func (h *ProfileHandler) write(w http.ResponseWriter, snap profile.Snapshot, sessionID string) {
	body, err := h.renderer.ViewHTML(snap)
	if err != nil {
		log.Error().Err(err).Str("user_id", snap.ID).Msg("Failed to render profile view")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	title := "User profile"
	if snap.User.Ok() {
		title = snap.User.Data.Name
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := h.renderer.Document(w, render.Page{Title: title, SessionID: sessionID, Body: body}); err != nil {
		log.Error().Err(err).Str("user_id", snap.ID).Msg("Failed to write profile page")
	}
}
