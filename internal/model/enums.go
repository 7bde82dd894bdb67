package model

type ActionKind string

const (
	ActionGenerate ActionKind = "generate"
	ActionIterate  ActionKind = "iterate"
	ActionLiveEdit ActionKind = "live_edit"
	ActionExport   ActionKind = "export"
	ActionRefill   ActionKind = "refill"
)

type TemplateKind string

const (
	TemplatePortfolio TemplateKind = "portfolio"
	TemplateLanding   TemplateKind = "landing"
	TemplateBlog      TemplateKind = "blog"
	TemplateBusiness  TemplateKind = "business"
	TemplateBlank     TemplateKind = "blank"
)

var TemplateKinds = []string{
	string(TemplatePortfolio),
	string(TemplateLanding),
	string(TemplateBlog),
	string(TemplateBusiness),
	string(TemplateBlank),
}

type Viewport string

const (
	ViewportDesktop Viewport = "desktop"
	ViewportTablet  Viewport = "tablet"
	ViewportMobile  Viewport = "mobile"
)

var Viewports = []string{
	string(ViewportDesktop),
	string(ViewportTablet),
	string(ViewportMobile),
}
