// Package render turns view state into HTML. Everything here is a pure
// function of its input: the same snapshot always yields the same bytes.
package render

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"strings"

	"github.com/isdelr/profile-view/internal/models"
	"github.com/isdelr/profile-view/internal/profile"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer holds the parsed templates and the map collaborator.
type Renderer struct {
	tmpl *template.Template
	maps MapRenderer
}

// New parses the templates. A nil maps falls back to OSMEmbed.
func New(maps MapRenderer) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	if maps == nil {
		maps = OSMEmbed{}
	}
	return &Renderer{tmpl: tmpl, maps: maps}, nil
}

// Page is a full HTML document wrapping a rendered region.
type Page struct {
	Title     string
	SessionID string // Non-empty enables live updates over the websocket
	Body      template.HTML
}

type viewData struct {
	Snap    profile.Snapshot
	Address string
	HasMap  bool
	Map     template.HTML
}

type postData struct {
	Post models.Post
	Err  string
}

// View renders the profile region for snap.
func (r *Renderer) View(w io.Writer, snap profile.Snapshot) error {
	data := viewData{Snap: snap}
	if snap.User.Ok() {
		u := snap.User.Data
		data.Address = AddressLine(u.Address)
		if u.Address.Geo.Present() {
			m, err := r.maps.RenderMap(u.Address.Geo)
			if err != nil {
				log.Warn().Err(err).Int("user_id", u.ID).Msg("Map renderer failed, showing placeholder")
			} else {
				data.HasMap, data.Map = true, m
			}
		}
	}
	return r.tmpl.ExecuteTemplate(w, "view", data)
}

// ViewHTML is View into a string.
func (r *Renderer) ViewHTML(snap profile.Snapshot) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.View(&buf, snap); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// Post renders a post detail region; a non-empty errMsg replaces the post.
func (r *Renderer) Post(w io.Writer, post models.Post, errMsg string) error {
	return r.tmpl.ExecuteTemplate(w, "post", postData{Post: post, Err: errMsg})
}

// PostHTML is Post into a string.
func (r *Renderer) PostHTML(post models.Post, errMsg string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.Post(&buf, post, errMsg); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// Document writes a complete HTML page.
func (r *Renderer) Document(w io.Writer, p Page) error {
	return r.tmpl.ExecuteTemplate(w, "layout", p)
}

// AddressLine joins street, suite, city and zipcode with ", ".
func AddressLine(a models.Address) string {
	return strings.Join([]string{a.Street, a.Suite, a.City, a.Zipcode}, ", ")
}
