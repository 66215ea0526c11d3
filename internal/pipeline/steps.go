package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/schemacrawl/internal/annotation"
	"github.com/nao1215/schemacrawl/internal/database"
	"github.com/nao1215/schemacrawl/internal/model"
)

// Step names.
const (
	StepExtract  = "extract"
	StepValidate = "validate"
	StepStore    = "store"
	StepRecord   = "record"
)

// ExtractStep finds or generates the annotations of a page.
type ExtractStep struct {
	extractor annotation.Extractor
	logger    *slog.Logger
}

// NewExtractStep creates an ExtractStep.
func NewExtractStep(extractor annotation.Extractor, logger *slog.Logger) *ExtractStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractStep{extractor: extractor, logger: logger}
}

// Name returns the step name.
func (s *ExtractStep) Name() string {
	return StepExtract
}

// Do extracts annotations from HTML pages. Other content types are skipped.
func (s *ExtractStep) Do(ctx context.Context, result *model.PageResult) error {
	page := result.Page
	if !page.IsHTML() {
		s.logger.Debug("skipping non-HTML page", "url", page.URL, "content_type", page.ContentType)
		return nil
	}

	found, err := s.extractor.Extract(ctx, page.URL, page.Content, page.Title)
	if err != nil {
		return err
	}

	for _, a := range found {
		result.Annotations = append(result.Annotations, &model.StoredAnnotation{
			Type: a.TypeLabel(),
			Data: a,
		})
	}
	s.logger.Debug("extracted annotations", "url", page.URL, "count", len(found))
	return nil
}

// ValidateStep checks each annotation of a page.
type ValidateStep struct {
	validator annotation.Validator
}

// NewValidateStep creates a ValidateStep.
func NewValidateStep(validator annotation.Validator) *ValidateStep {
	return &ValidateStep{validator: validator}
}

// Name returns the step name.
func (s *ValidateStep) Name() string {
	return StepValidate
}

// Do records the validation errors of every annotation.
func (s *ValidateStep) Do(_ context.Context, result *model.PageResult) error {
	for _, a := range result.Annotations {
		a.Errors = s.validator.Validate(a.Data)
	}
	return nil
}

// batchStore is implemented by stores that keep several annotations of one
// page apart, such as annotation.FileStore.
type batchStore interface {
	SaveAll(pageURL string, annotations []model.Annotation) ([]string, error)
}

// StoreStep writes the annotations of a page.
type StoreStep struct {
	store     annotation.Store
	validOnly bool
}

// StoreStepOption configures a StoreStep.
type StoreStepOption func(*StoreStep)

// WithValidOnly skips annotations that failed validation.
func WithValidOnly(validOnly bool) StoreStepOption {
	return func(s *StoreStep) {
		s.validOnly = validOnly
	}
}

// NewStoreStep creates a StoreStep.
func NewStoreStep(store annotation.Store, opts ...StoreStepOption) *StoreStep {
	s := &StoreStep{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *StoreStep) Name() string {
	return StepStore
}

// Do stores the annotations and records their locations.
func (s *StoreStep) Do(_ context.Context, result *model.PageResult) error {
	selected := make([]*model.StoredAnnotation, 0, len(result.Annotations))
	for _, a := range result.Annotations {
		if s.validOnly && !a.Valid() {
			continue
		}
		selected = append(selected, a)
	}
	if len(selected) == 0 {
		return nil
	}

	pageURL := result.Page.URL

	if bs, ok := s.store.(batchStore); ok {
		data := make([]model.Annotation, len(selected))
		for i, a := range selected {
			data[i] = a.Data
		}
		locations, err := bs.SaveAll(pageURL, data)
		for i, loc := range locations {
			selected[i].Location = loc
		}
		return err
	}

	var errs []error
	for _, a := range selected {
		loc, err := s.store.Save(pageURL, a.Data)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		a.Location = loc
	}
	return errors.Join(errs...)
}

// RecordStep writes the page and its annotations to the history database.
// Pages without a run ID are skipped.
type RecordStep struct {
	db *database.CrawlDB
}

// NewRecordStep creates a RecordStep.
func NewRecordStep(db *database.CrawlDB) *RecordStep {
	return &RecordStep{db: db}
}

// Name returns the step name.
func (s *RecordStep) Name() string {
	return StepRecord
}

// Do records the page.
func (s *RecordStep) Do(ctx context.Context, result *model.PageResult) error {
	if s.db == nil || result.RunID == "" {
		return nil
	}

	// A cancelled crawl still records the pages it already fetched.
	ctx = context.WithoutCancel(ctx)

	pageID, err := s.db.InsertPage(ctx, result.RunID, result.Page)
	if err != nil {
		return err
	}
	for _, a := range result.Annotations {
		if err := s.db.InsertAnnotation(ctx, pageID, a); err != nil {
			return err
		}
	}
	return nil
}

// Components are the collaborators of the default pipeline.
// Validator, Store and DB are optional.
type Components struct {
	Extractor annotation.Extractor
	Validator annotation.Validator
	Store     annotation.Store
	DB        *database.CrawlDB

	// ValidOnly stores only annotations that pass validation.
	ValidOnly bool
}

// DefaultPipeline creates the extract, validate, store and record pipeline.
// Steps whose collaborator is missing are left out.
func DefaultPipeline(c Components, opts ...Option) *Pipeline {
	p := New(append([]Option{WithContinueOnError(true)}, opts...)...)

	p.AddStep(NewExtractStep(c.Extractor, p.logger))
	if c.Validator != nil {
		p.AddStep(NewValidateStep(c.Validator))
	}
	if c.Store != nil {
		p.AddStep(NewStoreStep(c.Store, WithValidOnly(c.ValidOnly && c.Validator != nil)))
	}
	if c.DB != nil {
		p.AddStep(NewRecordStep(c.DB))
	}
	return p
}
