// Package humastar serves Datastar pages from Huma operations: streams are
// Huma StreamResponses speaking the Datastar SSE protocol, and actions read
// their signals from the request body or the datastar query parameter.
//
// A page handler embeds [Handler]:
//
//	type Handler struct {
//	    humastar.Handler
//	    Sessions *session.Manager
//	}
//
//	func (h *Handler) Events(ctx context.Context, in *humastar.QuerySignalsInput) (*huma.StreamResponse, error) {
//	    return h.Stream(func(sse humastar.SSE) {
//	        sse.Patch(h.RenderList("park-item", items, "No parks.", ""), "#park-list")
//	    }), nil
//	}
package humastar

import (
	"bytes"
	"encoding/json"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/joeblew999/plat-parks/internal/templates"
)

// Handler is the embeddable base of page handlers.
type Handler struct {
	Renderer *templates.Renderer
}

// Stream wraps fn in a Huma StreamResponse. fn owns the connection until it
// returns.
func (h *Handler) Stream(fn func(sse SSE)) *huma.StreamResponse {
	return &huma.StreamResponse{
		Body: func(ctx huma.Context) {
			fn(NewSSE(ctx))
		},
	}
}

// RenderList is [RenderList] with the handler's renderer.
func (h *Handler) RenderList(tmpl string, items []any, emptyTitle, emptyMsg string) string {
	return RenderList(h.Renderer, tmpl, items, emptyTitle, emptyMsg)
}

// RenderSelect is [RenderSelect] with the handler's renderer.
func (h *Handler) RenderSelect(placeholder string, options []SelectOptionData) string {
	return RenderSelect(h.Renderer, placeholder, options)
}

// SSE is a Datastar event generator bound to one streaming request.
type SSE struct {
	*datastar.ServerSentEventGenerator
}

// NewSSE starts a Datastar stream on the request behind a Huma context.
func NewSSE(ctx huma.Context) SSE {
	r, w := humago.Unwrap(ctx)
	return SSE{datastar.NewSSE(w, r)}
}

// Patch replaces the children of the element at selector.
func (s SSE) Patch(html, selector string) {
	s.PatchElements(html,
		datastar.WithSelector(selector),
		datastar.WithModeInner(),
		datastar.WithViewTransitions(),
	)
}

// Error sets the error signal the page shows as a banner. An empty msg
// clears it.
func (s SSE) Error(msg string) {
	s.MarshalAndPatchSignals(map[string]any{"error": msg})
}

// Signals merges signals into the page's signal store.
func (s SSE) Signals(signals map[string]any) {
	s.MarshalAndPatchSignals(signals)
}

// Signals is the flat JSON object of signals Datastar sends with a request.
type Signals map[string]any

// ParseSignals decodes a Datastar signals object.
func ParseSignals(body []byte) (Signals, error) {
	var signals Signals
	if err := json.Unmarshal(body, &signals); err != nil {
		return nil, err
	}
	return signals, nil
}

// String returns the string signal at key, or "".
func (s Signals) String(key string) string {
	str, _ := s[key].(string)
	return str
}

// Int returns the numeric signal at key truncated to int, or 0.
func (s Signals) Int(key string) int {
	switch n := s[key].(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return 0
}

// Bool returns the bool signal at key, or false.
func (s Signals) Bool(key string) bool {
	b, _ := s[key].(bool)
	return b
}

// Has reports whether key was sent, even with a zero value.
func (s Signals) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// EmptyInput is the input of operations without parameters.
type EmptyInput struct{}

// SignalsInput carries the signals of a Datastar POST as the raw body.
type SignalsInput struct {
	RawBody []byte
}

// Parse decodes the body.
func (i *SignalsInput) Parse() (Signals, error) {
	return ParseSignals(i.RawBody)
}

// MustParse decodes the body, answering 400 when it is not a signals object.
func (i *SignalsInput) MustParse() (Signals, error) {
	signals, err := ParseSignals(i.RawBody)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid request data: " + err.Error())
	}
	return signals, nil
}

// QuerySignalsInput carries signals the way Datastar sends them on GET
// requests: JSON in the datastar query parameter.
type QuerySignalsInput struct {
	Datastar string `query:"datastar" doc:"Datastar signals as JSON"`
}

// Parse decodes the query parameter. An empty parameter yields no signals.
func (i *QuerySignalsInput) Parse() (Signals, error) {
	if i.Datastar == "" {
		return Signals{}, nil
	}
	return ParseSignals([]byte(i.Datastar))
}

// SelectOptionData is the data of the "select-option" template.
type SelectOptionData struct {
	Value string
	Label string
}

// RenderList renders each item with tmpl, or the "empty-state" template when
// there are none.
func RenderList(r *templates.Renderer, tmpl string, items []any, emptyTitle, emptyMsg string) string {
	var buf bytes.Buffer
	if len(items) == 0 {
		r.RenderToBuffer(&buf, "empty-state", map[string]string{
			"Title": emptyTitle, "Message": emptyMsg,
		})
		return buf.String()
	}
	for _, item := range items {
		r.RenderToBuffer(&buf, tmpl, item)
	}
	return buf.String()
}

// RenderSelect renders a placeholder option with an empty value followed by
// options.
func RenderSelect(r *templates.Renderer, placeholder string, options []SelectOptionData) string {
	var buf bytes.Buffer
	r.RenderToBuffer(&buf, "select-option", SelectOptionData{Label: placeholder})
	for _, opt := range options {
		r.RenderToBuffer(&buf, "select-option", opt)
	}
	return buf.String()
}
