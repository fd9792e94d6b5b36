package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"

	"github.com/bassista/template_preload/internal/logger"
)

var (
	// ErrNotArray is returned when the batch file is valid JSON but not a top-level array.
	ErrNotArray = errors.New("template file must contain a JSON array")
	// ErrInvalidTemplate is returned in strict mode when a record is not a valid TemplateRequest.
	ErrInvalidTemplate = errors.New("invalid template record")
)

const watchDebounce = 200 * time.Millisecond

// JSONRepository reads the batch file from disk and watches it for changes.
type JSONRepository struct {
	path      string
	dir       string
	base      string
	strict    bool
	validator *validator.Validate
	mu        sync.Mutex
}

// Option configures a JSONRepository.
type Option func(*JSONRepository)

// WithStrict makes Load validate every record as a TemplateRequest.
func WithStrict(strict bool) Option {
	return func(r *JSONRepository) { r.strict = strict }
}

// NewJSONRepository creates a repository for the given JSON file path.
// It returns the repository interface to avoid leaking implementation details.
func NewJSONRepository(path string, opts ...Option) (Repository, error) {
	if path == "" {
		return nil, errors.New("template file path is required")
	}

	r := &JSONRepository{
		path:      path,
		dir:       filepath.Dir(path),
		base:      filepath.Base(path),
		validator: validator.New(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *JSONRepository) Path() string {
	return r.path
}

// Load reads and parses the whole file. Nothing is sent anywhere until Load succeeds,
// so a missing or malformed file never results in a partial batch.
func (r *JSONRepository) Load(ctx context.Context) (*TemplateBatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("read template file: %w", err)
	}

	records, err := decodeRecords(data)
	if err != nil {
		return nil, fmt.Errorf("decode template file %s: %w", r.path, err)
	}

	if r.strict {
		for i, rec := range records {
			if err := r.validateRecord(rec); err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
		}
	}

	logger.WithComponent("repository").Debugf("loaded %d template(s) from %s", len(records), r.path)
	return NewTemplateBatch(r.path, records), nil
}

func decodeRecords(data []byte) ([]TemplateRecord, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, fmt.Errorf("%w, found %s", ErrNotArray, typeErr.Value)
		}
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("%w, found null", ErrNotArray)
	}

	records := make([]TemplateRecord, 0, len(raw))
	for _, msg := range raw {
		var buf bytes.Buffer
		if err := json.Compact(&buf, msg); err != nil {
			return nil, err
		}
		records = append(records, TemplateRecord(buf.Bytes()))
	}
	return records, nil
}

func (r *JSONRepository) validateRecord(rec TemplateRecord) error {
	if rec.Kind() != KindObject {
		return fmt.Errorf("%w: expected object, got %s", ErrInvalidTemplate, rec.Kind())
	}
	var req TemplateRequest
	if err := json.Unmarshal(rec, &req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	if err := r.validator.Struct(&req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	return nil
}

// StartWatcher calls onChange (debounced) whenever the batch file is written or replaced.
// It watches the parent directory (not the file) so atomic replace sequences (temp+rename)
// are still observed. The caller owns ctx: cancel it to stop the goroutine and close the watcher.
func (r *JSONRepository) StartWatcher(ctx context.Context, onChange func()) error {
	if onChange == nil {
		return errors.New("onChange callback is required")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	if err := watcher.Add(r.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch dir: %w", err)
	}

	log := logger.WithComponent("repository")
	go func() {
		defer watcher.Close()

		var debounce *time.Timer
		schedule := func() {
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, onChange)
		}
		defer func() {
			if debounce != nil {
				debounce.Stop()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != r.base {
					continue
				}
				// Remove/Rename is followed by a Create on atomic replace; the debounce folds them.
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
					log.Tracef("file event %s on %s", event.Op, event.Name)
					schedule()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warnf("watcher error: %v", err)
			}
		}
	}()

	return nil
}
