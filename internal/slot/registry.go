// Package slot tracks, per document category, how many files the category
// accepts and which files it currently holds.
package slot

import (
	"fmt"

	"rateintake/internal/domain"
)

// DocumentSlot is one category's file holder.
type DocumentSlot struct {
	Category     domain.DocumentCategory `json:"category"`
	Multiplicity domain.Multiplicity     `json:"multiplicity"`
	Files        []domain.FileRef        `json:"files"`
}

// Registry holds the slots of one session. It is not safe for concurrent use;
// the owning session serializes access.
type Registry struct {
	slots map[domain.DocumentCategory]*DocumentSlot
	order []domain.DocumentCategory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{slots: make(map[domain.DocumentCategory]*DocumentSlot)}
}

// Register declares a category's multiplicity. Registering the same category
// again with the same multiplicity is a no-op.
func (r *Registry) Register(category domain.DocumentCategory, multiplicity domain.Multiplicity) error {
	if multiplicity != domain.MultiplicitySingle && multiplicity != domain.MultiplicityMultiple {
		return fmt.Errorf("%w: unknown multiplicity %q for %s", domain.ErrConfiguration, multiplicity, category)
	}
	if existing, ok := r.slots[category]; ok {
		if existing.Multiplicity != multiplicity {
			return fmt.Errorf("%w: %s already registered as %s", domain.ErrConfiguration, category, existing.Multiplicity)
		}
		return nil
	}
	r.slots[category] = &DocumentSlot{Category: category, Multiplicity: multiplicity}
	r.order = append(r.order, category)
	return nil
}

// AddFile stores file in the category's slot. A single slot replaces its
// current file, which is returned as replaced; a multiple slot appends.
func (r *Registry) AddFile(category domain.DocumentCategory, file domain.FileRef) (files []domain.FileRef, replaced *domain.FileRef, err error) {
	s, ok := r.slots[category]
	if !ok {
		return nil, nil, fmt.Errorf("%w: category %s is not registered", domain.ErrConfiguration, category)
	}

	if s.Multiplicity == domain.MultiplicitySingle {
		if len(s.Files) > 0 {
			prev := s.Files[0]
			replaced = &prev
		}
		s.Files = []domain.FileRef{file}
	} else {
		s.Files = append(s.Files, file)
	}
	return copyFiles(s.Files), replaced, nil
}

// RemoveFile removes the file at index, preserving the order of the rest.
func (r *Registry) RemoveFile(category domain.DocumentCategory, index int) (domain.FileRef, error) {
	s, ok := r.slots[category]
	if !ok {
		return domain.FileRef{}, fmt.Errorf("%w: category %s is not registered", domain.ErrConfiguration, category)
	}
	if index < 0 || index >= len(s.Files) {
		return domain.FileRef{}, fmt.Errorf("%w: %s has no file at index %d", domain.ErrNotFound, category, index)
	}

	removed := s.Files[index]
	next := make([]domain.FileRef, 0, len(s.Files)-1)
	next = append(next, s.Files[:index]...)
	next = append(next, s.Files[index+1:]...)
	s.Files = next
	return removed, nil
}

// ReplaceFile swaps the file at index for file, keeping its position.
func (r *Registry) ReplaceFile(category domain.DocumentCategory, index int, file domain.FileRef) (domain.FileRef, error) {
	s, ok := r.slots[category]
	if !ok {
		return domain.FileRef{}, fmt.Errorf("%w: category %s is not registered", domain.ErrConfiguration, category)
	}
	if index < 0 || index >= len(s.Files) {
		return domain.FileRef{}, fmt.Errorf("%w: %s has no file at index %d", domain.ErrNotFound, category, index)
	}

	old := s.Files[index]
	next := copyFiles(s.Files)
	next[index] = file
	s.Files = next
	return old, nil
}

// Files returns a copy of the category's current files.
func (r *Registry) Files(category domain.DocumentCategory) ([]domain.FileRef, error) {
	s, ok := r.slots[category]
	if !ok {
		return nil, fmt.Errorf("%w: category %s is not registered", domain.ErrConfiguration, category)
	}
	return copyFiles(s.Files), nil
}

// Slots returns copies of all slots in registration order.
func (r *Registry) Slots() []DocumentSlot {
	out := make([]DocumentSlot, 0, len(r.order))
	for _, c := range r.order {
		s := r.slots[c]
		out = append(out, DocumentSlot{
			Category:     s.Category,
			Multiplicity: s.Multiplicity,
			Files:        copyFiles(s.Files),
		})
	}
	return out
}

// Reset clears every slot's files. Registrations are kept.
func (r *Registry) Reset() {
	for _, s := range r.slots {
		s.Files = nil
	}
}

func copyFiles(files []domain.FileRef) []domain.FileRef {
	out := make([]domain.FileRef, len(files))
	copy(out, files)
	return out
}
