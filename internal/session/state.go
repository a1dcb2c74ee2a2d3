package session

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/google/uuid"

	"rateintake/internal/domain"
)

// errInterrupted marks uploads that were still extracting when their state
// was saved. They have to be retried.
var errInterrupted = errors.New("extraction interrupted before completion; retry the upload")

// State is the durable form of a session: everything needed to rebuild it,
// including which file contributed which values.
type State struct {
	Base           domain.NormalizedRecord `json:"base"`
	Files          []FileState             `json:"files,omitempty"`
	Contributions  []ContributionState     `json:"contributions,omitempty"`
	Overrides      map[string]string       `json:"overrides,omitempty"`
	Rows           []domain.RateRow        `json:"rows,omitempty"`
	EstimatedTotal int                     `json:"estimated_total"`
	RateSource     uuid.UUID               `json:"rate_source"`
	RateFileName   string                  `json:"rate_file_name,omitempty"`
	RateHistory    []RateState             `json:"rate_history,omitempty"`
}

// FileState is a slot file and the last known state of its upload.
type FileState struct {
	Category   domain.DocumentCategory `json:"category"`
	File       domain.FileRef          `json:"file"`
	Generation uint64                  `json:"generation"`
	Stage      domain.ProcessingStage  `json:"stage"`
	Error      string                  `json:"error,omitempty"`
}

// ContributionState is one applied document extraction.
type ContributionState struct {
	FileID     uuid.UUID               `json:"file_id"`
	Generation uint64                  `json:"generation"`
	Result     domain.ExtractionResult `json:"result"`
}

// RateState is one applied rate card extraction.
type RateState struct {
	FileID         uuid.UUID        `json:"file_id"`
	Generation     uint64           `json:"generation"`
	FileName       string           `json:"file_name"`
	Rows           []domain.RateRow `json:"rows"`
	EstimatedTotal int              `json:"estimated_total"`
}

// State captures the session for later Restore. File content is not kept.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Base:           s.base.Clone(),
		Overrides:      maps.Clone(s.overrides),
		Rows:           domain.CloneRows(s.rows),
		EstimatedTotal: s.estimatedTotal,
		RateSource:     s.rateSource,
		RateFileName:   s.rateFileName,
	}
	for _, d := range s.documentsLocked() {
		fs := FileState{Category: d.Category, File: d.File, Stage: domain.StageIdle}
		if u, ok := s.uploads[d.File.ID]; ok {
			fs.Generation = u.upload.Generation
			fs.Stage = u.stage
			if u.err != nil {
				fs.Error = u.err.Error()
			}
		}
		st.Files = append(st.Files, fs)
	}
	for _, c := range s.contributions {
		st.Contributions = append(st.Contributions, ContributionState{
			FileID:     c.fileID,
			Generation: c.generation,
			Result:     c.result,
		})
	}
	for _, r := range s.rateHistory {
		st.RateHistory = append(st.RateHistory, RateState{
			FileID:         r.fileID,
			Generation:     r.generation,
			FileName:       r.fileName,
			Rows:           domain.CloneRows(r.rows),
			EstimatedTotal: r.estimatedTotal,
		})
	}
	return st
}

// Restore replaces the session's files, extractions, overrides, and rates
// with st. Files are not extracted again; uploads that were still running
// when st was taken come back in the error stage.
func (s *Session) Restore(st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.uploads {
		u.upload.cancel()
	}
	s.registry.Reset()
	s.uploads = make(map[uuid.UUID]*uploadState)
	s.generations = make(map[domain.DocumentCategory]uint64)

	for _, f := range st.Files {
		if _, _, err := s.registry.AddFile(f.Category, f.File); err != nil {
			return fmt.Errorf("restoring %s file %s: %w", f.Category, f.File.Name, err)
		}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		state := &uploadState{
			upload: &Upload{
				Category:   f.Category,
				File:       f.File,
				Generation: f.Generation,
				ctx:        ctx,
				cancel:     cancel,
			},
			stage:     f.Stage,
			updatedAt: s.updatedAt,
		}
		switch {
		case f.Error != "":
			state.err = errors.New(f.Error)
		case !f.Stage.IsTerminal():
			state.stage = domain.StageError
			state.err = errInterrupted
		}
		s.uploads[f.File.ID] = state
		if f.Generation > s.generations[f.Category] {
			s.generations[f.Category] = f.Generation
		}
	}

	s.base = st.Base.Clone()
	s.contributions = nil
	for _, c := range st.Contributions {
		s.contributions = append(s.contributions, contribution{
			fileID:     c.FileID,
			generation: c.Generation,
			result:     c.Result,
		})
	}
	s.overrides = make(map[string]string, len(st.Overrides))
	maps.Copy(s.overrides, st.Overrides)

	s.rateHistory = nil
	for _, r := range st.RateHistory {
		s.rateHistory = append(s.rateHistory, rateContribution{
			fileID:         r.FileID,
			generation:     r.Generation,
			fileName:       r.FileName,
			rows:           domain.CloneRows(r.Rows),
			estimatedTotal: r.EstimatedTotal,
		})
	}
	s.rows = domain.CloneRows(st.Rows)
	s.estimatedTotal = max(st.EstimatedTotal, len(st.Rows))
	s.rateSource = st.RateSource
	s.rateFileName = st.RateFileName
	s.lastFailure = nil
	s.touchLocked()
	return nil
}
