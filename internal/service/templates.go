package service

import (
	"github.com/krishn-mehta/speak-code-build-sub000/internal/model"
)

// fallbackTemplates are the deterministic stand-ins used when the backend's
// response cannot be parsed. Pure data: identical kind, identical content.
var fallbackTemplates = map[model.TemplateKind]model.SiteContent{
	model.TemplatePortfolio: {
		Markup: `<header><h1>My Portfolio</h1><p>Selected work and projects</p></header>
<main>
  <section class="gallery">
    <article class="card"><h2>Project One</h2><p>A short description of the project.</p></article>
    <article class="card"><h2>Project Two</h2><p>A short description of the project.</p></article>
    <article class="card"><h2>Project Three</h2><p>A short description of the project.</p></article>
  </section>
</main>
<footer><p>Get in touch: hello@example.com</p></footer>`,
		Style: `body{font-family:Georgia,serif;margin:0;color:#222}
header{padding:4rem 2rem;text-align:center;background:#f4f1ec}
.gallery{display:grid;grid-template-columns:repeat(auto-fit,minmax(240px,1fr));gap:1.5rem;padding:2rem}
.card{border:1px solid #ddd;border-radius:8px;padding:1.5rem}
footer{padding:2rem;text-align:center;color:#666}`,
	},
	model.TemplateLanding: {
		Markup: `<header class="hero">
  <h1>Your Product Name</h1>
  <p>A one-line pitch that explains the value.</p>
  <a class="cta" href="#signup">Get Started</a>
</header>
<main>
  <section class="features">
    <div><h2>Fast</h2><p>Describe the first benefit.</p></div>
    <div><h2>Simple</h2><p>Describe the second benefit.</p></div>
    <div><h2>Reliable</h2><p>Describe the third benefit.</p></div>
  </section>
</main>`,
		Style: `body{font-family:system-ui,sans-serif;margin:0}
.hero{padding:6rem 2rem;text-align:center;background:linear-gradient(135deg,#4f46e5,#7c3aed);color:#fff}
.cta{display:inline-block;margin-top:1rem;padding:.75rem 2rem;background:#fff;color:#4f46e5;border-radius:9999px;text-decoration:none;font-weight:600}
.features{display:flex;gap:2rem;justify-content:center;padding:4rem 2rem;flex-wrap:wrap}
.features div{max-width:240px;text-align:center}`,
	},
	model.TemplateBlog: {
		Markup: `<header><h1>My Blog</h1><nav><a href="#">Home</a> <a href="#">Archive</a> <a href="#">About</a></nav></header>
<main>
  <article>
    <h2>First Post</h2>
    <time>January 1</time>
    <p>Start writing here. This post is a placeholder.</p>
  </article>
</main>`,
		Style: `body{font-family:Charter,Georgia,serif;max-width:42rem;margin:0 auto;padding:2rem;line-height:1.7}
header{border-bottom:1px solid #eee;padding-bottom:1rem;margin-bottom:2rem}
nav a{margin-right:1rem;color:#444}
time{color:#888;font-size:.875rem}`,
	},
	model.TemplateBusiness: {
		Markup: `<header><h1>Company Name</h1><p>What we do, in one sentence.</p></header>
<main>
  <section class="services">
    <h2>Services</h2>
    <ul>
      <li>Service one</li>
      <li>Service two</li>
      <li>Service three</li>
    </ul>
  </section>
  <section class="contact">
    <h2>Contact</h2>
    <p>contact@example.com · (555) 000-0000</p>
  </section>
</main>`,
		Style: `body{font-family:Helvetica,Arial,sans-serif;margin:0;color:#1a1a1a}
header{padding:3rem 2rem;background:#0f172a;color:#fff}
main{padding:2rem;max-width:56rem;margin:0 auto}
section{margin-bottom:2rem}`,
	},
	model.TemplateBlank: {
		Markup: `<main><h1>New Site</h1><p>Describe what you want and iterate from here.</p></main>`,
		Style:  `body{font-family:system-ui,sans-serif;display:grid;place-items:center;min-height:100vh;margin:0}`,
	},
}

// FallbackContent returns the deterministic template for the given kind.
// Unknown kinds get the blank template.
func FallbackContent(kind model.TemplateKind) model.SiteContent {
	if content, ok := fallbackTemplates[kind]; ok {
		return content
	}
	return fallbackTemplates[model.TemplateBlank]
}
