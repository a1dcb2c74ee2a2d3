package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rateintake/internal/domain"
	"rateintake/internal/logger"
	"rateintake/internal/port"
)

// Controller drives one upload through its extraction stages:
// relationship extraction, then detail extraction for detail categories,
// then rate extraction for rate categories. It never retries; a failed stage
// ends the upload in the error stage.
type Controller struct {
	client   port.ExtractionClient
	timeout  time.Duration
	cardType string
}

// NewController creates a Controller. Every extraction call is bounded by
// timeout.
func NewController(client port.ExtractionClient, timeout time.Duration, cardType string) *Controller {
	return &Controller{client: client, timeout: timeout, cardType: cardType}
}

// Run processes u to completion. Results that arrive after u has been
// superseded are discarded, and Run stops at the first discarded step.
func (c *Controller) Run(s *Session, u *Upload) {
	ctx := logger.WithSessionID(u.Context(), s.ID().String())
	log := logger.FromContext(ctx).With("file_id", u.File.ID, "category", u.Category)

	profile, ok := s.Policy().Profile(u.Category)
	if !ok {
		s.Fail(u, fmt.Errorf("%w: no profile for %s", domain.ErrConfiguration, u.Category))
		return
	}

	if !s.SetStage(u, domain.StageRelationshipExtraction) {
		return
	}
	result, err := c.extractDocument(ctx, s, u, domain.ScopeRelationship)
	if err != nil {
		c.fail(ctx, s, u, domain.StageRelationshipExtraction, err)
		return
	}
	if !s.ApplyExtraction(u, result) {
		log.Debug("stageController.Run: discarding superseded relationship result")
		return
	}

	if profile.CarriesDetails {
		if !s.SetStage(u, domain.StageDetailExtraction) {
			return
		}
		details, err := c.extractDocument(ctx, s, u, domain.ScopeDetails)
		if err != nil {
			c.fail(ctx, s, u, domain.StageDetailExtraction, err)
			return
		}
		if !s.ApplyExtraction(u, details) {
			log.Debug("stageController.Run: discarding superseded detail result")
			return
		}
	}

	if profile.CarriesRates {
		if !s.SetStage(u, domain.StageRateExtraction) {
			return
		}
		rates, err := c.extractRates(ctx, s, u)
		if err != nil {
			c.fail(ctx, s, u, domain.StageRateExtraction, err)
			return
		}
		if !s.ApplyRates(u, rates) {
			log.Debug("stageController.Run: discarding superseded rate result")
			return
		}
	}

	if s.SetStage(u, domain.StageComplete) {
		log.Info("stageController.Run: upload processed", "file", u.File.Name)
	}
}

func (c *Controller) extractDocument(ctx context.Context, s *Session, u *Upload, scope domain.ExtractionScope) (domain.ExtractionResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.client.ExtractDocument(callCtx, port.ExtractDocumentInput{
		File:         u.File,
		DocumentType: u.Category,
		ProviderID:   s.providerID,
		Scope:        scope,
	})
}

func (c *Controller) extractRates(ctx context.Context, s *Session, u *Upload) (*port.RateCardExtraction, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.client.ExtractRateCard(callCtx, port.ExtractRateCardInput{
		File:         u.File,
		CardType:     c.cardType,
		DocumentType: u.Category,
		ProviderID:   s.providerID,
		CustomerID:   s.customerID,
	})
}

func (c *Controller) fail(ctx context.Context, s *Session, u *Upload, stage domain.ProcessingStage, err error) {
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrTransport) {
		err = fmt.Errorf("%w: %s timed out after %s: %w", domain.ErrTransport, stage, c.timeout, err)
	}
	if !s.Fail(u, err) {
		return
	}
	logger.FromContext(ctx).Warn("stageController.Run: extraction failed",
		"file_id", u.File.ID,
		"stage", stage,
		"error", err,
	)
}
