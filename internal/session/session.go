// Package session holds one onboarding workflow's state: the document slots,
// the per-upload extraction stages, the reconciled record, the rate table,
// and the operator's corrections.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"rateintake/internal/domain"
	"rateintake/internal/mapper"
	"rateintake/internal/port"
	"rateintake/internal/ratetable"
	"rateintake/internal/slot"
)

// Options identify the provider and customer a session onboards and seed its
// record.
type Options struct {
	ID         uuid.UUID
	ProviderID string
	CustomerID string
	Base       domain.NormalizedRecord
	Rows       []domain.RateRow
	// EstimatedTotal is the full row count when Rows is a preview.
	EstimatedTotal int
}

// Upload is the handle for one file's extraction run. Its context is
// cancelled when the file is replaced, removed, or the session is reset.
type Upload struct {
	Category   domain.DocumentCategory
	File       domain.FileRef
	Generation uint64
	// Replaced is the file this upload displaced from a single slot.
	Replaced *domain.FileRef

	ctx    context.Context
	cancel context.CancelFunc
}

// Context returns the upload's context.
func (u *Upload) Context() context.Context { return u.ctx }

type uploadState struct {
	upload    *Upload
	stage     domain.ProcessingStage
	err       error
	updatedAt time.Time
}

type contribution struct {
	fileID     uuid.UUID
	generation uint64
	result     domain.ExtractionResult
}

type rateContribution struct {
	fileID         uuid.UUID
	generation     uint64
	fileName       string
	rows           []domain.RateRow
	estimatedTotal int
}

// Session is safe for concurrent use. All mutation happens under one mutex.
type Session struct {
	mu sync.Mutex

	id         uuid.UUID
	providerID string
	customerID string
	policy     Policy
	registry   *slot.Registry

	generations map[domain.DocumentCategory]uint64
	uploads     map[uuid.UUID]*uploadState

	base          domain.NormalizedRecord
	contributions []contribution
	overrides     map[string]string

	rows           []domain.RateRow
	estimatedTotal int
	rateSource     uuid.UUID
	rateFileName   string
	rateHistory    []rateContribution

	confirming  bool
	lastFailure error
	confirmed   *domain.ConfirmationResult

	createdAt time.Time
	updatedAt time.Time
}

// New creates a session with a slot per policy profile.
func New(policy Policy, opts Options) (*Session, error) {
	reg := slot.NewRegistry()
	for _, p := range policy.Profiles {
		if err := reg.Register(p.Category, p.Multiplicity); err != nil {
			return nil, err
		}
	}

	id := opts.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	estimated := opts.EstimatedTotal
	if estimated < len(opts.Rows) {
		estimated = len(opts.Rows)
	}
	now := time.Now().UTC()
	return &Session{
		id:             id,
		providerID:     opts.ProviderID,
		customerID:     opts.CustomerID,
		policy:         policy,
		registry:       reg,
		generations:    make(map[domain.DocumentCategory]uint64),
		uploads:        make(map[uuid.UUID]*uploadState),
		base:           opts.Base.Clone(),
		overrides:      make(map[string]string),
		rows:           domain.CloneRows(opts.Rows),
		estimatedTotal: estimated,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

// ID returns the session ID.
func (s *Session) ID() uuid.UUID { return s.id }

// Policy returns the session's workflow policy.
func (s *Session) Policy() Policy { return s.policy }

// AddFile stores file in its category's slot and starts tracking an upload
// for it. Replacing the file of a single slot cancels the previous upload and
// drops everything it contributed. The returned upload's context derives from
// parent.
func (s *Session) AddFile(parent context.Context, category domain.DocumentCategory, file domain.FileRef) (*Upload, error) {
	if file.ID == uuid.Nil {
		file.ID = uuid.New()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, replaced, err := s.registry.AddFile(category, file)
	if err != nil {
		return nil, err
	}
	if replaced != nil {
		s.dropFileLocked(replaced.ID)
	}

	u := s.trackLocked(parent, category, file, domain.StageDocumentReceived)
	u.Replaced = replaced
	s.touchLocked()
	return u, nil
}

// ReplaceFile swaps the file at index for a fresh copy and starts a new
// upload for it. The previous upload is cancelled and its contributions
// dropped. This is how a failed upload is re-entered.
func (s *Session) ReplaceFile(parent context.Context, category domain.DocumentCategory, index int, file domain.FileRef) (*Upload, error) {
	file.ID = uuid.New()

	s.mu.Lock()
	defer s.mu.Unlock()

	old, err := s.registry.ReplaceFile(category, index, file)
	if err != nil {
		return nil, err
	}
	s.dropFileLocked(old.ID)
	u := s.trackLocked(parent, category, file, domain.StageDocumentReceived)
	s.touchLocked()
	return u, nil
}

// File returns the file at index in a slot.
func (s *Session) File(category domain.DocumentCategory, index int) (domain.FileRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := s.registry.Files(category)
	if err != nil {
		return domain.FileRef{}, err
	}
	if index < 0 || index >= len(files) {
		return domain.FileRef{}, fmt.Errorf("%w: %s has no file at index %d", domain.ErrNotFound, category, index)
	}
	return files[index], nil
}

// Documents returns every file currently held, without content.
func (s *Session) Documents() []port.SubmittedDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.documentsLocked()
}

func (s *Session) documentsLocked() []port.SubmittedDocument {
	var docs []port.SubmittedDocument
	for _, sl := range s.registry.Slots() {
		for _, f := range sl.Files {
			f.Content = nil
			docs = append(docs, port.SubmittedDocument{Category: sl.Category, File: f})
		}
	}
	return docs
}

func (s *Session) trackLocked(parent context.Context, category domain.DocumentCategory, file domain.FileRef, stage domain.ProcessingStage) *Upload {
	s.generations[category]++
	ctx, cancel := context.WithCancel(parent)
	u := &Upload{
		Category:   category,
		File:       file,
		Generation: s.generations[category],
		ctx:        ctx,
		cancel:     cancel,
	}
	s.uploads[file.ID] = &uploadState{upload: u, stage: stage, updatedAt: time.Now().UTC()}
	return u
}

// RemoveFile removes the file at index from a slot, cancels its upload and
// drops its contributions.
func (s *Session) RemoveFile(category domain.DocumentCategory, index int) (domain.FileRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed, err := s.registry.RemoveFile(category, index)
	if err != nil {
		return domain.FileRef{}, err
	}
	s.dropFileLocked(removed.ID)
	s.touchLocked()
	return removed, nil
}

func (s *Session) dropFileLocked(fileID uuid.UUID) {
	if st, ok := s.uploads[fileID]; ok {
		st.upload.cancel()
		delete(s.uploads, fileID)
	}

	kept := s.contributions[:0:0]
	for _, c := range s.contributions {
		if c.fileID != fileID {
			kept = append(kept, c)
		}
	}
	s.contributions = kept

	history := s.rateHistory[:0:0]
	for _, r := range s.rateHistory {
		if r.fileID != fileID {
			history = append(history, r)
		}
	}
	s.rateHistory = history

	if s.rateSource == fileID {
		// fall back to the most recent rate table still backed by a file
		s.rows, s.estimatedTotal, s.rateSource, s.rateFileName = nil, 0, uuid.Nil, ""
		if n := len(s.rateHistory); n > 0 {
			s.applyRatesLocked(s.rateHistory[n-1])
		}
	}
}

// isCurrentLocked is the superseded-result guard: an upload may only apply
// results while its file is still in the slot under the same generation.
func (s *Session) isCurrentLocked(u *Upload) bool {
	st, ok := s.uploads[u.File.ID]
	return ok && st.upload.Generation == u.Generation && st.upload == u
}

// SetStage moves a current upload to stage. It reports false when the upload
// has been superseded.
func (s *Session) SetStage(u *Upload, stage domain.ProcessingStage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isCurrentLocked(u) {
		return false
	}
	st := s.uploads[u.File.ID]
	st.stage = stage
	st.updatedAt = time.Now().UTC()
	return true
}

// ApplyExtraction merges a document extraction result into the record. It
// reports false, and changes nothing, when the upload has been superseded.
func (s *Session) ApplyExtraction(u *Upload, result domain.ExtractionResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isCurrentLocked(u) {
		return false
	}
	if len(result) > 0 {
		s.contributions = append(s.contributions, contribution{
			fileID:     u.File.ID,
			generation: u.Generation,
			result:     result,
		})
	}
	s.touchLocked()
	return true
}

// ApplyRates replaces the rate table with a normalized extraction. The most
// recently completed rate extraction wins.
func (s *Session) ApplyRates(u *Upload, extracted *port.RateCardExtraction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isCurrentLocked(u) {
		return false
	}
	if extracted == nil || len(extracted.PreviewItems) == 0 {
		s.touchLocked()
		return true
	}

	table := ratetable.Normalize(extracted.PreviewItems)
	rc := rateContribution{
		fileID:         u.File.ID,
		generation:     u.Generation,
		fileName:       u.File.Name,
		rows:           table.Rows,
		estimatedTotal: max(extracted.EstimatedTotal, len(table.Rows)),
	}
	s.rateHistory = append(s.rateHistory, rc)
	s.applyRatesLocked(rc)
	s.touchLocked()
	return true
}

func (s *Session) applyRatesLocked(rc rateContribution) {
	s.rows = domain.CloneRows(rc.rows)
	s.estimatedTotal = rc.estimatedTotal
	s.rateSource = rc.fileID
	s.rateFileName = rc.fileName
}

// Fail moves a current upload to the error stage and retains err. Resolved
// fields and rates are untouched.
func (s *Session) Fail(u *Upload, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isCurrentLocked(u) {
		return false
	}
	st := s.uploads[u.File.ID]
	st.stage = domain.StageError
	st.err = err
	st.updatedAt = time.Now().UTC()
	s.touchLocked()
	return true
}

// SetField stores an operator override for a record field. Overrides take
// precedence over every extraction; an empty value clears the field.
func (s *Session) SetField(name, value string) error {
	f, ok := mapper.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownField, name)
	}
	var scratch domain.NormalizedRecord
	if err := f.Set(&scratch, value); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[f.Name] = value
	s.touchLocked()
	return nil
}

// SetFields applies several overrides atomically: either all are valid and
// stored, or none is.
func (s *Session) SetFields(values map[string]string) error {
	resolved := make(map[string]string, len(values))
	for name, value := range values {
		f, ok := mapper.Lookup(name)
		if !ok {
			return fmt.Errorf("%w: %q", domain.ErrUnknownField, name)
		}
		var scratch domain.NormalizedRecord
		if err := f.Set(&scratch, value); err != nil {
			return err
		}
		resolved[f.Name] = value
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for name, value := range resolved {
		s.overrides[name] = value
	}
	s.touchLocked()
	return nil
}

// EditRateCell sets one cell of the rate table from operator input.
func (s *Session) EditRateCell(rowIndex int, columnKey, rawInput string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := ratetable.EditCell(s.rows, rowIndex, columnKey, rawInput)
	if err != nil {
		return err
	}
	s.rows = rows
	s.touchLocked()
	return nil
}

// AddRateRow appends an empty row with the table's current columns.
func (s *Session) AddRateRow() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = ratetable.AddRow(s.rows, ratetable.Describe(s.rows).Keys())
	if s.estimatedTotal < len(s.rows) {
		s.estimatedTotal = len(s.rows)
	}
	s.touchLocked()
	return len(s.rows) - 1
}

// RemoveRateRow removes one row of the rate table.
func (s *Session) RemoveRateRow(rowIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := ratetable.RemoveRow(s.rows, rowIndex)
	if err != nil {
		return err
	}
	s.rows = rows
	if s.estimatedTotal > 0 {
		s.estimatedTotal--
	}
	s.touchLocked()
	return nil
}

// recordLocked derives the visible record: the base, then every current
// extraction in arrival order, then operator overrides.
func (s *Session) recordLocked() domain.NormalizedRecord {
	results := make([]domain.ExtractionResult, len(s.contributions))
	for i, c := range s.contributions {
		results[i] = c.result
	}
	rec := mapper.MergeAll(s.base, results...)
	for name, value := range s.overrides {
		if f, ok := mapper.Lookup(name); ok {
			// validated on the way in
			_ = f.Set(&rec, value)
		}
	}
	return rec
}

// Record returns the visible record.
func (s *Session) Record() domain.NormalizedRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordLocked()
}

// Rows returns a copy of the current rate rows and the estimated total.
func (s *Session) Rows() ([]domain.RateRow, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneRows(s.rows), s.estimatedTotal
}

func (s *Session) readinessLocked(rec *domain.NormalizedRecord) *domain.NotReadyError {
	var missing []string
	for _, name := range s.policy.RequiredFields {
		f, ok := mapper.Lookup(name)
		if ok && f.IsEmpty(rec) {
			missing = append(missing, f.Name)
		}
	}
	missingRates := s.policy.RequiresRates(rec.ProviderCategory) && len(s.rows) == 0
	if len(missing) == 0 && !missingRates {
		return nil
	}
	return &domain.NotReadyError{MissingFields: missing, MissingRates: missingRates}
}

// Confirm validates readiness and hands an immutable snapshot to gw. While a
// confirmation is outstanding further calls fail with ErrConfirmInProgress.
// A failed submission leaves the session unchanged and is retained for
// display; Confirm may then be retried.
func (s *Session) Confirm(ctx context.Context, gw port.ConfirmationGateway) (*domain.ConfirmationResult, error) {
	s.mu.Lock()
	if s.confirmed != nil {
		res := *s.confirmed
		s.mu.Unlock()
		return &res, nil
	}
	if s.confirming {
		s.mu.Unlock()
		return nil, domain.ErrConfirmInProgress
	}
	rec := s.recordLocked()
	if nr := s.readinessLocked(&rec); nr != nil {
		s.mu.Unlock()
		return nil, nr
	}
	sub := s.submissionLocked(rec)
	s.confirming = true
	s.mu.Unlock()

	res, err := gw.Submit(ctx, sub)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirming = false
	if err != nil {
		s.lastFailure = err
		return nil, fmt.Errorf("confirming session %s: %w", s.id, err)
	}
	s.lastFailure = nil
	s.confirmed = res
	out := *res
	return &out, nil
}

func (s *Session) submissionLocked(rec domain.NormalizedRecord) port.Submission {
	docs := s.documentsLocked()

	fileName := s.rateFileName
	if fileName == "" {
		if files, err := s.registry.Files(domain.CategoryRateCard); err == nil && len(files) > 0 {
			fileName = files[0].Name
		}
	}

	return port.Submission{
		SessionID:        s.id,
		ProviderID:       s.providerID,
		CustomerID:       s.customerID,
		Record:           rec,
		Rates:            domain.CloneRows(s.rows),
		EstimatedTotal:   max(s.estimatedTotal, len(s.rows)),
		RateCardFileName: fileName,
		Documents:        docs,
	}
}

// Reset clears files, extractions, overrides, rates, and failures. In-flight
// uploads are cancelled and their late results discarded.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.uploads {
		st.upload.cancel()
	}
	s.uploads = make(map[uuid.UUID]*uploadState)
	s.registry.Reset()
	s.contributions = nil
	s.overrides = make(map[string]string)
	s.rows = nil
	s.estimatedTotal = 0
	s.rateSource = uuid.Nil
	s.rateFileName = ""
	s.rateHistory = nil
	s.lastFailure = nil
	s.touchLocked()
}

// Close cancels every in-flight upload.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.uploads {
		st.upload.cancel()
	}
}

func (s *Session) touchLocked() {
	s.updatedAt = time.Now().UTC()
}
