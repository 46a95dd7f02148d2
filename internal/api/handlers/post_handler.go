package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/profile-view/internal/fetch"
	"github.com/isdelr/profile-view/internal/render"
	"github.com/isdelr/profile-view/internal/upstream"
	"github.com/rs/zerolog/log"
)

// PostHandler serves the post detail page linked from the profile.
type PostHandler struct {
	api      Upstream
	renderer *render.Renderer
}

// NewPostHandler creates a new PostHandler.
func NewPostHandler(api Upstream, renderer *render.Renderer) *PostHandler {
	return &PostHandler{api: api, renderer: renderer}
}

// Show renders one post, or the fetch error in its place.
func (h *PostHandler) Show(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	status := http.StatusOK
	title := "Post"

	post, err := h.api.GetPost(r.Context(), id)
	errMsg := ""
	if err != nil {
		log.Warn().Err(err).Str("post_id", id).Msg("Failed to fetch post")
		errMsg = fetch.Message(err)
		status = http.StatusBadGateway
		var se *upstream.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			status = http.StatusNotFound
		}
	} else {
		title = post.Title
	}

	body, err := h.renderer.PostHTML(post, errMsg)
	if err != nil {
		log.Error().Err(err).Str("post_id", id).Msg("Failed to render post")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.renderer.Document(w, render.Page{Title: title, Body: body}); err != nil {
		log.Error().Err(err).Str("post_id", id).Msg("Failed to write post page")
	}
}
