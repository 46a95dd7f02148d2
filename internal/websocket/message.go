package websocket

import "encoding/json"

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

// RenderPayload carries the re-rendered view region.
type RenderPayload struct {
	Version uint64 `json:"version"`
	HTML    string `json:"html"`
}

// NewRenderMessage encodes a "render" message.
func NewRenderMessage(version uint64, html string) []byte {
	return encode(Message{Action: "render", Payload: RenderPayload{Version: version, HTML: html}})
}

// NewErrorMessage encodes an "error" message.
func NewErrorMessage(msg string) []byte {
	return encode(Message{Action: "error", Payload: msg})
}

func encode(m Message) []byte {
	// Payloads are plain structs and strings; Marshal cannot fail on them.
	b, _ := json.Marshal(m)
	return b
}
