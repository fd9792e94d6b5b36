package cache

import "github.com/bassista/template_preload/internal/repository"

// TemplateStore is the cache API needed by the template handlers.
type TemplateStore interface {
	All() ([]repository.TemplateRequest, error)
	Get(templateID string) (repository.TemplateRequest, error)
	Add(template repository.TemplateRequest) (repository.TemplateRequest, error)
	Remove(templateID string) error
}
