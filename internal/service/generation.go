package service

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	apperrors "github.com/krishn-mehta/speak-code-build-sub000/internal/errors"
	"github.com/krishn-mehta/speak-code-build-sub000/internal/llm"
	"github.com/krishn-mehta/speak-code-build-sub000/internal/model"
	"github.com/krishn-mehta/speak-code-build-sub000/internal/sse"
)

const systemPrompt = `You are a website generator. Given a description, produce a complete single-page website.
Respond with a JSON object containing exactly these fields:
  "markup": the HTML body content (no <html> or <head> wrapper)
  "style": a CSS stylesheet
  "script": optional JavaScript, or omit the field
Do not include any text outside the JSON object.`

const maxChangeSummaryLen = 140

// EventPublisher pushes generation progress to the UI shell. Satisfied by
// *sse.Broker.
type EventPublisher interface {
	Publish(ctx context.Context, userID string, eventType string, data any) error
}

type GenerateParams struct {
	OwnerID        string
	ConversationID *string
	Prompt         string
	TemplateKind   model.TemplateKind
	Title          string
}

// GenerationService coordinates one generation or iteration end to end:
// debit, backend call, parse, persist. It is the only component allowed to
// compensate (refund) a debit; the ledger and the site store raise but never
// self-heal.
type GenerationService struct {
	ledger          *LedgerService
	sites           *SiteService
	backend         llm.Backend
	events          EventPublisher
	contextMaxChars int
}

func NewGenerationService(
	ledger *LedgerService,
	sites *SiteService,
	backend llm.Backend,
	events EventPublisher,
	contextMaxChars int,
) *GenerationService {
	return &GenerationService{
		ledger:          ledger,
		sites:           sites,
		backend:         backend,
		events:          events,
		contextMaxChars: contextMaxChars,
	}
}

// Generate runs the full pipeline for a new site. The user is never charged
// for a generation that did not produce an artifact: every failure after the
// debit refunds it.
func (s *GenerationService) Generate(ctx context.Context, params GenerateParams) (*model.Site, error) {
	debit, err := s.ledger.CheckAndDebit(ctx, params.OwnerID, model.ActionGenerate, nil)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, params.OwnerID, sse.EventGenerationStarted, map[string]any{
		"action": model.ActionGenerate,
		"title":  params.Title,
	})

	// The caller may abandon the request while the backend call is in
	// flight; the compensation path must still run once it resolves, so the
	// rest of the pipeline is detached from the caller's cancellation.
	ctx = context.WithoutCancel(ctx)

	resp, err := s.backend.GenerateSite(ctx, llm.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   composePrompt(params.Prompt, params.TemplateKind),
	})
	if err != nil {
		s.compensate(ctx, params.OwnerID, debit.Cost, model.ActionGenerate, nil)
		s.publish(ctx, params.OwnerID, sse.EventGenerationFailed, map[string]any{
			"action": model.ActionGenerate,
		})
		return nil, apperrors.GenerationBackend(err)
	}

	parsed := ParseSiteContent(resp.Text, params.TemplateKind)

	site, err := s.sites.Create(ctx, model.CreateSiteParams{
		OwnerID:        params.OwnerID,
		ConversationID: params.ConversationID,
		Title:          params.Title,
		TemplateKind:   params.TemplateKind,
		Content:        parsed.Content,
		StatusMetadata: statusMetadata(parsed),
	})
	if err != nil {
		s.compensate(ctx, params.OwnerID, debit.Cost, model.ActionGenerate, nil)
		s.publish(ctx, params.OwnerID, sse.EventGenerationFailed, map[string]any{
			"action": model.ActionGenerate,
		})
		return nil, err
	}

	s.publish(ctx, params.OwnerID, sse.EventGenerationCompleted, map[string]any{
		"action":   model.ActionGenerate,
		"siteId":   site.ID,
		"fallback": parsed.Kind == ParseFallback,
	})

	log.Info().
		Str("siteId", site.ID).
		Str("ownerId", params.OwnerID).
		Bool("fallback", parsed.Kind == ParseFallback).
		Int("remainingTokens", debit.Remaining).
		Msg("generation completed")

	return site, nil
}

// Iterate refines an existing site. Ownership is verified before any side
// effect, so an authorization failure needs no compensation.
func (s *GenerationService) Iterate(ctx context.Context, siteID, ownerID, prompt string) (*model.Site, error) {
	site, err := s.sites.Get(ctx, siteID, ownerID)
	if err != nil {
		return nil, err
	}

	debit, err := s.ledger.CheckAndDebit(ctx, ownerID, model.ActionIterate, &siteID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, ownerID, sse.EventGenerationStarted, map[string]any{
		"action": model.ActionIterate,
		"siteId": siteID,
	})

	ctx = context.WithoutCancel(ctx)

	resp, err := s.backend.GenerateSite(ctx, llm.Request{
		SystemPrompt:   systemPrompt,
		UserPrompt:     composePrompt(prompt, site.TemplateKind),
		CurrentContent: s.iterationContext(site),
	})
	if err != nil {
		s.compensate(ctx, ownerID, debit.Cost, model.ActionIterate, &siteID)
		s.publish(ctx, ownerID, sse.EventGenerationFailed, map[string]any{
			"action": model.ActionIterate,
			"siteId": siteID,
		})
		return nil, apperrors.GenerationBackend(err)
	}

	parsed := ParseSiteContent(resp.Text, site.TemplateKind)

	updated, err := s.sites.AppendVersion(ctx, siteID, ownerID, parsed.Content, changeSummary(prompt), statusMetadata(parsed))
	if err != nil {
		// covers both persistence failures and a lost version race; either
		// way the artifact was not produced, so the debit comes back
		s.compensate(ctx, ownerID, debit.Cost, model.ActionIterate, &siteID)
		s.publish(ctx, ownerID, sse.EventGenerationFailed, map[string]any{
			"action": model.ActionIterate,
			"siteId": siteID,
		})
		return nil, err
	}

	s.publish(ctx, ownerID, sse.EventGenerationCompleted, map[string]any{
		"action":   model.ActionIterate,
		"siteId":   siteID,
		"version":  updated.CurrentVersion,
		"fallback": parsed.Kind == ParseFallback,
	})

	return updated, nil
}

// LiveEdit appends a user-authored version without a backend call.
func (s *GenerationService) LiveEdit(ctx context.Context, siteID, ownerID string, content model.SiteContent, summary string) (*model.Site, error) {
	if _, err := s.sites.Get(ctx, siteID, ownerID); err != nil {
		return nil, err
	}

	debit, err := s.ledger.CheckAndDebit(ctx, ownerID, model.ActionLiveEdit, &siteID)
	if err != nil {
		return nil, err
	}

	if summary == "" {
		summary = "Live edit"
	}
	// user-authored content clears any fallback flag from a prior iteration
	updated, err := s.sites.AppendVersion(ctx, siteID, ownerID, content, summary, nil)
	if err != nil {
		s.compensate(ctx, ownerID, debit.Cost, model.ActionLiveEdit, &siteID)
		return nil, err
	}
	return updated, nil
}

// Export renders the site's current content as a standalone document.
func (s *GenerationService) Export(ctx context.Context, siteID, ownerID string) (*RenderedDocument, error) {
	site, err := s.sites.Get(ctx, siteID, ownerID)
	if err != nil {
		return nil, err
	}

	if _, err := s.ledger.CheckAndDebit(ctx, ownerID, model.ActionExport, &siteID); err != nil {
		return nil, err
	}

	doc := RenderPreview(model.SiteContent{
		Markup: site.Markup,
		Style:  site.Style,
		Script: site.Script,
	}, model.ViewportDesktop)

	return &doc, nil
}

// compensate credits a debit back after a failed action. A refund failure is
// logged loudly but not surfaced: the original failure is what the caller
// needs to see.
func (s *GenerationService) compensate(ctx context.Context, userID string, cost int, kind model.ActionKind, siteID *string) {
	if err := s.ledger.Refund(ctx, userID, cost, kind, siteID); err != nil {
		log.Error().
			Err(err).
			Str("userId", userID).
			Str("action", string(kind)).
			Int("cost", cost).
			Msg("token refund failed, ledger needs reconciliation")
	}
}

func (s *GenerationService) publish(ctx context.Context, userID, eventType string, data any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, userID, eventType, data); err != nil {
		log.Warn().Err(err).Str("userId", userID).Msg("failed to publish generation event")
	}
}

// iterationContext serializes the site's current content for the backend,
// truncated to the configured budget. Context size is a tunable cost/quality
// tradeoff, not a contract.
func (s *GenerationService) iterationContext(site *model.Site) string {
	script := ""
	if site.Script != nil {
		script = *site.Script
	}
	content := fmt.Sprintf("HTML:\n%s\n\nCSS:\n%s\n\nJS:\n%s", site.Markup, site.Style, script)
	if s.contextMaxChars > 0 && len(content) > s.contextMaxChars {
		content = truncateUTF8(content, s.contextMaxChars)
	}
	return content
}

func composePrompt(prompt string, kind model.TemplateKind) string {
	return fmt.Sprintf("%s\n\nSite kind: %s", prompt, kind)
}

func changeSummary(prompt string) string {
	summary := "Iteration: " + prompt
	if len(summary) > maxChangeSummaryLen {
		summary = truncateUTF8(summary, maxChangeSummaryLen-3) + "..."
	}
	return summary
}

// truncateUTF8 cuts s to at most max bytes, backing up so a multi-byte rune
// is never split. Postgres rejects invalid UTF-8, so a byte-wise slice here
// would turn a valid non-ASCII prompt into a write error.
func truncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func statusMetadata(parsed ParsedContent) *json.RawMessage {
	if parsed.Kind != ParseFallback {
		return nil
	}
	raw := json.RawMessage(`{"fallbackUsed":true}`)
	return &raw
}
