package session

import (
	"time"

	"github.com/google/uuid"

	"rateintake/internal/domain"
	"rateintake/internal/ratetable"
)

// FileView is a slot file together with its upload's progress.
type FileView struct {
	domain.FileRef
	Stage domain.ProcessingStage `json:"stage"`
	Error string                 `json:"error,omitempty"`
}

// SlotView is a slot as rendered to the operator.
type SlotView struct {
	Category     domain.DocumentCategory `json:"category"`
	Multiplicity domain.Multiplicity     `json:"multiplicity"`
	Files        []FileView              `json:"files"`
}

// Snapshot is a consistent, self-contained copy of a session.
type Snapshot struct {
	ID             uuid.UUID                  `json:"id"`
	ProviderID     string                     `json:"provider_id"`
	CustomerID     string                     `json:"customer_id"`
	Record         domain.NormalizedRecord    `json:"record"`
	Rates          ratetable.Table            `json:"rates"`
	EstimatedTotal int                        `json:"estimated_total"`
	Slots          []SlotView                 `json:"slots"`
	Processing     bool                       `json:"processing"`
	Ready          bool                       `json:"ready"`
	MissingFields  []string                   `json:"missing_fields,omitempty"`
	MissingRates   bool                       `json:"missing_rates"`
	Confirming     bool                       `json:"confirming"`
	LastFailure    string                     `json:"last_failure,omitempty"`
	Confirmed      *domain.ConfirmationResult `json:"confirmed,omitempty"`
	CreatedAt      time.Time                  `json:"created_at"`
	UpdatedAt      time.Time                  `json:"updated_at"`
}

// Snapshot returns a copy of the session's state for rendering.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.recordLocked()
	snap := Snapshot{
		ID:             s.id,
		ProviderID:     s.providerID,
		CustomerID:     s.customerID,
		Record:         rec,
		Rates:          ratetable.Describe(s.rows),
		EstimatedTotal: max(s.estimatedTotal, len(s.rows)),
		Confirming:     s.confirming,
		CreatedAt:      s.createdAt,
		UpdatedAt:      s.updatedAt,
	}

	for _, sl := range s.registry.Slots() {
		view := SlotView{Category: sl.Category, Multiplicity: sl.Multiplicity, Files: make([]FileView, 0, len(sl.Files))}
		for _, f := range sl.Files {
			fv := FileView{FileRef: f, Stage: domain.StageIdle}
			if st, ok := s.uploads[f.ID]; ok {
				fv.Stage = st.stage
				if st.err != nil {
					fv.Error = st.err.Error()
				}
				if !st.stage.IsTerminal() {
					snap.Processing = true
				}
			}
			view.Files = append(view.Files, fv)
		}
		snap.Slots = append(snap.Slots, view)
	}

	if nr := s.readinessLocked(&rec); nr != nil {
		snap.MissingFields = nr.MissingFields
		snap.MissingRates = nr.MissingRates
	} else {
		snap.Ready = true
	}
	if s.lastFailure != nil {
		snap.LastFailure = s.lastFailure.Error()
	}
	if s.confirmed != nil {
		res := *s.confirmed
		snap.Confirmed = &res
	}
	return snap
}

// UploadStatus is the progress of one upload.
type UploadStatus struct {
	Stage domain.ProcessingStage
	Err   error
}

// Status returns the progress of the upload for fileID.
func (s *Session) Status(fileID uuid.UUID) (UploadStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.uploads[fileID]
	if !ok {
		return UploadStatus{Stage: domain.StageIdle}, false
	}
	return UploadStatus{Stage: st.stage, Err: st.err}, true
}

// LastFailure returns the retained error of the last failed confirmation.
func (s *Session) LastFailure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFailure
}

// UpdatedAt returns the time of the last mutation.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}
