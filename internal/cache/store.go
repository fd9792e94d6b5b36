package cache

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bassista/template_preload/internal/repository"
)

var ErrTemplateNotFound = errors.New("template not found")

// Store keeps templates in memory, keyed by templateId, in insertion order.
type Store struct {
	mu        sync.RWMutex
	templates map[string]repository.TemplateRequest
	order     []string
}

var _ TemplateStore = (*Store)(nil)

// NewStore creates an empty template store.
func NewStore() *Store {
	return &Store{templates: map[string]repository.TemplateRequest{}}
}

// All returns a copy of every stored template.
func (s *Store) All() ([]repository.TemplateRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]repository.TemplateRequest, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, cloneTemplate(s.templates[id]))
	}
	return out, nil
}

func (s *Store) Get(templateID string) (repository.TemplateRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.templates[templateID]
	if !ok {
		return repository.TemplateRequest{}, fmt.Errorf("%w for given id: %s", ErrTemplateNotFound, templateID)
	}
	return cloneTemplate(t), nil
}

// Add upserts a template by templateId. Replacing keeps the original position.
func (s *Store) Add(template repository.TemplateRequest) (repository.TemplateRequest, error) {
	if template.TemplateID == "" {
		return repository.TemplateRequest{}, errors.New("template id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cloned := cloneTemplate(template)
	if _, exists := s.templates[cloned.TemplateID]; !exists {
		s.order = append(s.order, cloned.TemplateID)
	}
	s.templates[cloned.TemplateID] = cloned
	return cloneTemplate(cloned), nil
}

func (s *Store) Remove(templateID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.templates[templateID]; !ok {
		return fmt.Errorf("%w for given id: %s", ErrTemplateNotFound, templateID)
	}
	delete(s.templates, templateID)
	for i, id := range s.order {
		if id == templateID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// cloneTemplate copies the pointer field so callers never share state with the store.
func cloneTemplate(t repository.TemplateRequest) repository.TemplateRequest {
	if t.IncludeDescendants != nil {
		v := *t.IncludeDescendants
		t.IncludeDescendants = &v
	}
	return t
}
