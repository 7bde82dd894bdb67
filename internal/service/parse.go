package service

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/krishn-mehta/speak-code-build-sub000/internal/model"
)

type ParseKind string

const (
	ParseStructured ParseKind = "structured"
	ParseFallback   ParseKind = "fallback"
)

// ParsedContent is the tagged result of a parse step. The backend's response
// shape is never assumed at the call site: either the structured payload was
// recovered, or the deterministic template for the requested kind stands in.
type ParsedContent struct {
	Kind    ParseKind
	Content model.SiteContent
}

// backendPayload accepts both the canonical field names and the html/css/js
// aliases the backend sometimes produces.
type backendPayload struct {
	Markup string  `json:"markup"`
	Style  string  `json:"style"`
	Script *string `json:"script"`
	HTML   string  `json:"html"`
	CSS    string  `json:"css"`
	JS     *string `json:"js"`
}

// ParseSiteContent turns a raw backend response into site content. Parse
// failures are a recorded degradation, not an error: the caller always gets
// something previewable.
func ParseSiteContent(raw string, templateKind model.TemplateKind) ParsedContent {
	if payload, ok := extractPayload(raw); ok {
		return ParsedContent{Kind: ParseStructured, Content: payload}
	}

	log.Warn().
		Str("templateKind", string(templateKind)).
		Int("responseLength", len(raw)).
		Msg("unparsable backend response, using fallback template")

	return ParsedContent{Kind: ParseFallback, Content: FallbackContent(templateKind)}
}

func extractPayload(raw string) (model.SiteContent, bool) {
	body := stripCodeFence(strings.TrimSpace(raw))

	// the payload may be embedded in surrounding prose
	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end <= start {
		return model.SiteContent{}, false
	}

	var payload backendPayload
	if err := json.Unmarshal([]byte(body[start:end+1]), &payload); err != nil {
		return model.SiteContent{}, false
	}

	markup := payload.Markup
	if markup == "" {
		markup = payload.HTML
	}
	if markup == "" {
		return model.SiteContent{}, false
	}

	style := payload.Style
	if style == "" {
		style = payload.CSS
	}

	script := payload.Script
	if script == nil {
		script = payload.JS
	}

	return model.SiteContent{Markup: markup, Style: style, Script: script}, true
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:] // drop the language tag line
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
