package service

import (
	"strings"

	"github.com/krishn-mehta/speak-code-build-sub000/internal/model"
)

// RenderedDocument is a self-contained document plus the pixel frame for the
// chosen viewport class. SandboxFlags name the iframe attributes the host
// must apply; the renderer only assembles content, the embedding frame is the
// enforcement point.
type RenderedDocument struct {
	Document     string `json:"document"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Fluid        bool   `json:"fluid"`
	SandboxFlags string `json:"sandboxFlags"`
}

// Generated script may run, but must never reach the host page's cookies,
// storage or globals. allow-scripts without allow-same-origin keeps the frame
// on an opaque origin.
const sandboxFlags = "allow-scripts"

type viewportFrame struct {
	width  int
	height int
	fluid  bool
}

var viewportFrames = map[model.Viewport]viewportFrame{
	model.ViewportDesktop: {fluid: true},
	model.ViewportTablet:  {width: 768, height: 1024},
	model.ViewportMobile:  {width: 375, height: 812},
}

// RenderPreview assembles the markup/style/script triple into one isolated
// document. Pure and deterministic: no network, no clock, identical inputs
// yield byte-identical output.
func RenderPreview(content model.SiteContent, viewport model.Viewport) RenderedDocument {
	frame, ok := viewportFrames[viewport]
	if !ok {
		frame = viewportFrames[model.ViewportDesktop]
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	b.WriteString(`<meta charset="utf-8">` + "\n")
	b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">` + "\n")
	b.WriteString("<style>\n")
	b.WriteString(content.Style)
	b.WriteString("\n</style>\n</head>\n<body>\n")
	b.WriteString(content.Markup)
	b.WriteString("\n")
	if content.Script != nil && *content.Script != "" {
		b.WriteString("<script>\n")
		b.WriteString(*content.Script)
		b.WriteString("\n</script>\n")
	}
	b.WriteString("</body>\n</html>\n")

	return RenderedDocument{
		Document:     b.String(),
		Width:        frame.width,
		Height:       frame.height,
		Fluid:        frame.fluid,
		SandboxFlags: sandboxFlags,
	}
}
