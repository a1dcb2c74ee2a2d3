package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"sync"
	"time"

	"github.com/google/uuid"

	"rateintake/internal/domain"
	"rateintake/internal/logger"
	"rateintake/internal/port"
	"rateintake/internal/rateexport"
	"rateintake/internal/session"
)

// CreateSessionInput is the DTO for starting an onboarding workflow.
type CreateSessionInput struct {
	ProviderID string
	CustomerID string
	// Fields seeds record fields known before any upload, e.g. the name typed
	// by the operator.
	Fields map[string]string
}

// UploadDocumentInput is the DTO for adding a document to a slot.
type UploadDocumentInput struct {
	SessionID uuid.UUID
	Category  domain.DocumentCategory
	File      multipart.File
	Header    *multipart.FileHeader
}

// RateExport is a rendered rate table download.
type RateExport struct {
	FileName    string
	ContentType string
	Data        []byte
}

// DraftSummary describes a saved draft that can be resumed.
type DraftSummary struct {
	SessionID        uuid.UUID `json:"session_id"`
	ProviderID       string    `json:"provider_id"`
	SupplierName     string    `json:"supplier_name,omitempty"`
	ProviderCategory string    `json:"provider_category,omitempty"`
	Active           bool      `json:"active"`
	SavedAt          time.Time `json:"saved_at"`
}

// OnboardingService owns the live sessions and runs their extractions.
type OnboardingService interface {
	CreateSession(ctx context.Context, input CreateSessionInput) (*session.Snapshot, error)
	GetSession(ctx context.Context, id uuid.UUID) (*session.Snapshot, error)
	DiscardSession(ctx context.Context, id uuid.UUID) error
	ResetSession(ctx context.Context, id uuid.UUID) (*session.Snapshot, error)
	UploadDocument(ctx context.Context, input UploadDocumentInput) (*session.Snapshot, error)
	RemoveDocument(ctx context.Context, id uuid.UUID, category domain.DocumentCategory, index int) (*session.Snapshot, error)
	RetryDocument(ctx context.Context, id uuid.UUID, category domain.DocumentCategory, index int) (*session.Snapshot, error)
	DocumentURL(ctx context.Context, id uuid.UUID, category domain.DocumentCategory, index int) (string, error)
	UpdateRecord(ctx context.Context, id uuid.UUID, fields map[string]string) (*session.Snapshot, error)
	EditRateCell(ctx context.Context, id uuid.UUID, row int, column, value string) (*session.Snapshot, error)
	AddRateRow(ctx context.Context, id uuid.UUID) (*session.Snapshot, error)
	RemoveRateRow(ctx context.Context, id uuid.UUID, row int) (*session.Snapshot, error)
	ExportRates(ctx context.Context, id uuid.UUID, format rateexport.Format) (*RateExport, error)
	Confirm(ctx context.Context, id uuid.UUID) (*domain.ConfirmationResult, error)
	ResumeDraft(ctx context.Context, id uuid.UUID) (*session.Snapshot, error)
	ListDrafts(ctx context.Context, limit int64) ([]DraftSummary, error)
	Shutdown(ctx context.Context) error
}

// OnboardingDeps groups the collaborators of the onboarding service.
type OnboardingDeps struct {
	Policy     session.Policy
	Controller *session.Controller
	Intake     *Intake
	Gateway    port.ConfirmationGateway
	Drafts     port.DraftStore
	Email      port.EmailSender
	Operators  []string
}

const (
	presignExpirySeconds = 900
	maxDraftListing      = 100
)

type onboardingService struct {
	deps OnboardingDeps

	mu       sync.RWMutex
	sessions map[uuid.UUID]*session.Session
	closed   bool

	// uploads outlive the request that started them
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewOnboardingService creates a new OnboardingService implementation.
func NewOnboardingService(deps OnboardingDeps) OnboardingService {
	ctx, cancel := context.WithCancel(context.Background())
	return &onboardingService{
		deps:     deps,
		sessions: make(map[uuid.UUID]*session.Session),
		baseCtx:  ctx,
		cancel:   cancel,
	}
}

func (s *onboardingService) CreateSession(ctx context.Context, input CreateSessionInput) (*session.Snapshot, error) {
	sess, err := session.New(s.deps.Policy, session.Options{
		ProviderID: input.ProviderID,
		CustomerID: input.CustomerID,
	})
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	if len(input.Fields) > 0 {
		if err := sess.SetFields(input.Fields); err != nil {
			return nil, err
		}
	}

	if err := s.add(sess); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("onboardingService.CreateSession: session created",
		"session_id", sess.ID(), "provider_id", input.ProviderID)
	s.saveDraft(ctx, sess)
	return snapshot(sess), nil
}

func (s *onboardingService) GetSession(_ context.Context, id uuid.UUID) (*session.Snapshot, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return snapshot(sess), nil
}

func (s *onboardingService) DiscardSession(ctx context.Context, id uuid.UUID) error {
	sess, err := s.get(id)
	if err != nil {
		return err
	}
	s.remove(id)
	sess.Close()
	for _, d := range sess.Documents() {
		s.deps.Intake.Discard(ctx, d.File)
	}
	if err := s.deps.Drafts.Delete(ctx, id); err != nil {
		logger.FromContext(ctx).Warn("onboardingService.DiscardSession: failed to delete draft", "session_id", id, "error", err)
	}
	logger.FromContext(ctx).Info("onboardingService.DiscardSession: session discarded", "session_id", id)
	return nil
}

func (s *onboardingService) ResetSession(ctx context.Context, id uuid.UUID) (*session.Snapshot, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	docs := sess.Documents()
	sess.Reset()
	for _, d := range docs {
		s.deps.Intake.Discard(ctx, d.File)
	}
	s.saveDraft(ctx, sess)
	return snapshot(sess), nil
}

func (s *onboardingService) UploadDocument(ctx context.Context, input UploadDocumentInput) (*session.Snapshot, error) {
	if !input.Category.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, input.Category)
	}
	sess, err := s.get(input.SessionID)
	if err != nil {
		return nil, err
	}

	ref, err := s.deps.Intake.Accept(ctx, IntakeInput{
		SessionID: input.SessionID,
		Category:  input.Category,
		File:      input.File,
		Header:    input.Header,
	})
	if err != nil {
		return nil, err
	}

	upload, err := sess.AddFile(s.baseCtx, input.Category, ref)
	if err != nil {
		s.deps.Intake.Discard(ctx, ref)
		return nil, err
	}
	if upload.Replaced != nil {
		s.deps.Intake.Discard(ctx, *upload.Replaced)
	}

	logger.FromContext(ctx).Info("onboardingService.UploadDocument: document received",
		"session_id", input.SessionID, "category", input.Category, "file_id", ref.ID, "file", ref.Name)
	if err := s.start(sess, upload); err != nil {
		return nil, err
	}
	return snapshot(sess), nil
}

func (s *onboardingService) RemoveDocument(ctx context.Context, id uuid.UUID, category domain.DocumentCategory, index int) (*session.Snapshot, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	removed, err := sess.RemoveFile(category, index)
	if err != nil {
		return nil, err
	}
	s.deps.Intake.Discard(ctx, removed)
	s.saveDraft(ctx, sess)
	return snapshot(sess), nil
}

func (s *onboardingService) RetryDocument(ctx context.Context, id uuid.UUID, category domain.DocumentCategory, index int) (*session.Snapshot, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	ref, err := sess.File(category, index)
	if err != nil {
		return nil, err
	}
	ref, err = s.deps.Intake.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}

	upload, err := sess.ReplaceFile(s.baseCtx, category, index, ref)
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("onboardingService.RetryDocument: re-extracting document",
		"session_id", id, "category", category, "file", ref.Name)
	if err := s.start(sess, upload); err != nil {
		return nil, err
	}
	return snapshot(sess), nil
}

func (s *onboardingService) DocumentURL(ctx context.Context, id uuid.UUID, category domain.DocumentCategory, index int) (string, error) {
	sess, err := s.get(id)
	if err != nil {
		return "", err
	}
	ref, err := sess.File(category, index)
	if err != nil {
		return "", err
	}
	return s.deps.Intake.URL(ctx, ref, presignExpirySeconds)
}

func (s *onboardingService) UpdateRecord(ctx context.Context, id uuid.UUID, fields map[string]string) (*session.Snapshot, error) {
	return s.mutate(ctx, id, func(sess *session.Session) error {
		return sess.SetFields(fields)
	})
}

func (s *onboardingService) EditRateCell(ctx context.Context, id uuid.UUID, row int, column, value string) (*session.Snapshot, error) {
	return s.mutate(ctx, id, func(sess *session.Session) error {
		return sess.EditRateCell(row, column, value)
	})
}

func (s *onboardingService) AddRateRow(ctx context.Context, id uuid.UUID) (*session.Snapshot, error) {
	return s.mutate(ctx, id, func(sess *session.Session) error {
		sess.AddRateRow()
		return nil
	})
}

func (s *onboardingService) RemoveRateRow(ctx context.Context, id uuid.UUID, row int) (*session.Snapshot, error) {
	return s.mutate(ctx, id, func(sess *session.Session) error {
		return sess.RemoveRateRow(row)
	})
}

func (s *onboardingService) ExportRates(_ context.Context, id uuid.UUID, format rateexport.Format) (*RateExport, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	snap := sess.Snapshot()
	data, err := rateexport.Bytes(format, snap.Rates)
	if err != nil {
		return nil, fmt.Errorf("exporting rates: %w", err)
	}
	return &RateExport{
		FileName:    rateexport.BuildFilename(snap.Record.Name, format, time.Now()),
		ContentType: format.ContentType(),
		Data:        data,
	}, nil
}

func (s *onboardingService) Confirm(ctx context.Context, id uuid.UUID) (*domain.ConfirmationResult, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx).With("session_id", id)
	res, err := sess.Confirm(ctx, s.deps.Gateway)
	if err != nil {
		var notReady *domain.NotReadyError
		if !errors.As(err, &notReady) && !errors.Is(err, domain.ErrConfirmInProgress) {
			log.Warn("onboardingService.Confirm: confirmation failed, session kept for retry", "error", err)
			s.saveDraft(ctx, sess)
		}
		return nil, err
	}

	s.remove(id)
	sess.Close()
	if err := s.deps.Drafts.Delete(ctx, id); err != nil {
		log.Warn("onboardingService.Confirm: failed to delete draft", "error", err)
	}
	s.notify(ctx, sess.Record(), res)
	log.Info("onboardingService.Confirm: session confirmed",
		"supplier_id", res.SupplierID, "rate_card_id", res.RateCardID)
	return res, nil
}

func (s *onboardingService) notify(ctx context.Context, rec domain.NormalizedRecord, res *domain.ConfirmationResult) {
	if len(s.deps.Operators) == 0 {
		return
	}
	err := s.deps.Email.SendConfirmationNotice(ctx, port.ConfirmationNotice{
		SupplierName:  rec.Name,
		SupplierID:    res.SupplierID.String(),
		RateCardID:    res.RateCardID,
		RowsProcessed: res.RowsProcessed,
		Recipients:    s.deps.Operators,
	})
	if err != nil {
		logger.FromContext(ctx).Warn("onboardingService.notify: failed to send confirmation notice",
			"supplier_id", res.SupplierID, "error", err)
	}
}

func (s *onboardingService) ResumeDraft(ctx context.Context, id uuid.UUID) (*session.Snapshot, error) {
	if sess, err := s.get(id); err == nil {
		return snapshot(sess), nil
	}

	draft, err := s.deps.Drafts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("loading draft: %w", err)
	}

	var state session.State
	if len(draft.State) > 0 {
		if err := json.Unmarshal(draft.State, &state); err != nil {
			return nil, fmt.Errorf("decoding draft state: %w", err)
		}
	}

	sess, err := session.New(s.deps.Policy, session.Options{
		ID:         draft.SessionID,
		ProviderID: draft.ProviderID,
		CustomerID: draft.CustomerID,
	})
	if err != nil {
		return nil, fmt.Errorf("restoring session: %w", err)
	}
	if err := sess.Restore(state); err != nil {
		return nil, fmt.Errorf("restoring session state: %w", err)
	}
	if err := s.add(sess); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("onboardingService.ResumeDraft: session restored",
		"session_id", id, "saved_at", draft.SavedAt, "documents", len(state.Files))
	return snapshot(sess), nil
}

func (s *onboardingService) ListDrafts(ctx context.Context, limit int64) ([]DraftSummary, error) {
	if limit <= 0 || limit > maxDraftListing {
		limit = maxDraftListing
	}
	ids, err := s.deps.Drafts.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing drafts: %w", err)
	}

	out := make([]DraftSummary, 0, len(ids))
	for _, id := range ids {
		draft, err := s.deps.Drafts.Get(ctx, id)
		if err != nil {
			// expired between the index read and the fetch
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("loading draft %s: %w", id, err)
		}
		_, liveErr := s.get(id)
		out = append(out, DraftSummary{
			SessionID:        draft.SessionID,
			ProviderID:       draft.ProviderID,
			SupplierName:     draft.SupplierName,
			ProviderCategory: draft.ProviderCategory,
			Active:           liveErr == nil,
			SavedAt:          draft.SavedAt,
		})
	}
	return out, nil
}

// Shutdown stops accepting uploads and waits for in-flight extractions. When
// ctx ends first, remaining extractions are cancelled.
func (s *onboardingService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	log := logger.FromContext(ctx)
	log.Info("onboardingService.Shutdown: waiting for in-flight extractions")

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		log.Info("onboardingService.Shutdown: shutdown complete")
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		log.Warn("onboardingService.Shutdown: cancelled in-flight extractions")
		return ctx.Err()
	}
}

// start runs an upload's stages in the background and saves a draft when it
// finishes.
func (s *onboardingService) start(sess *session.Session, upload *session.Upload) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("%w: service is shutting down", domain.ErrTransport)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.deps.Controller.Run(sess, upload)
		if upload.Context().Err() == nil {
			s.saveLiveDraft(s.baseCtx, sess)
		}
	}()
	return nil
}

func (s *onboardingService) mutate(ctx context.Context, id uuid.UUID, fn func(*session.Session) error) (*session.Snapshot, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	s.saveDraft(ctx, sess)
	return snapshot(sess), nil
}

// saveDraft stores the session's state. Failures are logged only; drafts are
// a convenience, not the system of record.
func (s *onboardingService) saveDraft(ctx context.Context, sess *session.Session) {
	state, err := json.Marshal(sess.State())
	if err != nil {
		logger.FromContext(ctx).Warn("onboardingService.saveDraft: failed to encode state", "error", err)
		return
	}
	snap := sess.Snapshot()
	draft := &port.Draft{
		SessionID:        snap.ID,
		ProviderID:       snap.ProviderID,
		CustomerID:       snap.CustomerID,
		SupplierName:     snap.Record.Name,
		ProviderCategory: snap.Record.ProviderCategory,
		State:            state,
		SavedAt:          time.Now().UTC(),
	}
	if err := s.deps.Drafts.Save(ctx, draft); err != nil {
		logger.FromContext(ctx).Warn("onboardingService.saveDraft: failed to save draft", "session_id", snap.ID, "error", err)
	}
}

// saveLiveDraft saves from a background upload. A session confirmed or
// discarded while the draft was being written has its draft deleted again.
func (s *onboardingService) saveLiveDraft(ctx context.Context, sess *session.Session) {
	if !s.isLive(sess) {
		return
	}
	s.saveDraft(ctx, sess)
	if s.isLive(sess) {
		return
	}
	if err := s.deps.Drafts.Delete(ctx, sess.ID()); err != nil {
		logger.FromContext(ctx).Warn("onboardingService.saveLiveDraft: failed to delete stale draft", "session_id", sess.ID(), "error", err)
	}
}

func (s *onboardingService) add(sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("%w: service is shutting down", domain.ErrTransport)
	}
	s.sessions[sess.ID()] = sess
	return nil
}

func (s *onboardingService) get(id uuid.UUID) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return sess, nil
}

func (s *onboardingService) isLive(sess *session.Session) bool {
	live, err := s.get(sess.ID())
	return err == nil && live == sess
}

func (s *onboardingService) remove(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

func snapshot(sess *session.Session) *session.Snapshot {
	snap := sess.Snapshot()
	return &snap
}
