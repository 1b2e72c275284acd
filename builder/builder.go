package builder

import (
	"fmt"
	"maps"

	"github.com/sicko7947/usecasekit"
)

// UseCaseBuilder provides a fluent API for building use case content
type UseCaseBuilder struct {
	content usecasekit.UseCaseContent
}

// NewUseCase creates a new use case builder
func NewUseCase(title string) *UseCaseBuilder {
	return &UseCaseBuilder{
		content: usecasekit.UseCaseContent{
			Title:         title,
			InputExamples: []usecasekit.InputExample{},
		},
	}
}

// FromContent starts a builder from existing content, e.g. to edit a use case
func FromContent(content usecasekit.UseCaseContent) *UseCaseBuilder {
	b := NewUseCase(content.Title).
		WithDescription(content.Description).
		WithPromptTemplate(content.PromptTemplate).
		WithFixedModel(content.FixedModelID).
		WithFileUpload(content.FileUpload)
	for _, ex := range content.InputExamples {
		b.WithExample(ex.Title, ex.Examples)
	}
	return b
}

// WithDescription sets the description
func (b *UseCaseBuilder) WithDescription(description string) *UseCaseBuilder {
	b.content.Description = description
	return b
}

// WithPromptTemplate sets the prompt template
func (b *UseCaseBuilder) WithPromptTemplate(template string) *UseCaseBuilder {
	b.content.PromptTemplate = template
	return b
}

// WithFixedModel pins the use case to a model id. An empty id lets the user choose.
func (b *UseCaseBuilder) WithFixedModel(modelID string) *UseCaseBuilder {
	b.content.FixedModelID = modelID
	return b
}

// WithFileUpload enables file attachments
func (b *UseCaseBuilder) WithFileUpload(enabled bool) *UseCaseBuilder {
	b.content.FileUpload = enabled
	return b
}

// WithExample appends an input example. values maps placeholder labels to sample text.
func (b *UseCaseBuilder) WithExample(title string, values map[string]string) *UseCaseBuilder {
	b.content.InputExamples = append(b.content.InputExamples, usecasekit.InputExample{
		Title:    title,
		Examples: maps.Clone(values),
	})
	return b
}

// Build finalizes and validates the content
func (b *UseCaseBuilder) Build() (usecasekit.UseCaseContent, error) {
	if err := b.content.Validate(); err != nil {
		return usecasekit.UseCaseContent{}, err
	}

	if err := ValidateExamples(b.content); err != nil {
		return usecasekit.UseCaseContent{}, fmt.Errorf("invalid input examples: %w", err)
	}

	return b.content, nil
}

// MustBuild finalizes and validates the content, panics on error
func (b *UseCaseBuilder) MustBuild() usecasekit.UseCaseContent {
	content, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build use case: %v", err))
	}
	return content
}
