package model

import (
	"time"
)

// SiteVersion is one immutable entry in a site's history. Version numbers are
// strictly increasing and contiguous from 1 for a given site.
type SiteVersion struct {
	ID            string    `db:"id" json:"id"`
	SiteID        string    `db:"site_id" json:"siteId"`
	VersionNumber int       `db:"version_number" json:"versionNumber"`
	Markup        string    `db:"markup" json:"markup"`
	Style         string    `db:"style" json:"style"`
	Script        *string   `db:"script" json:"script,omitempty"`
	ChangeSummary string    `db:"change_summary" json:"changeSummary"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

func (v *SiteVersion) Content() SiteContent {
	return SiteContent{
		Markup: v.Markup,
		Style:  v.Style,
		Script: v.Script,
	}
}

type CreateSiteVersionParams struct {
	SiteID        string
	VersionNumber int
	Content       SiteContent
	ChangeSummary string
}
