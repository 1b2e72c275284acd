package usecasekit

// RelationKind identifies what a sort key belongs to: a use case body or one of
// the per-user association sets.
type RelationKind string

const (
	RelationUseCase      RelationKind = "useCase"
	RelationFavorite     RelationKind = "favorite"
	RelationRecentlyUsed RelationKind = "recentlyUsed"
)

// String returns the string representation
func (k RelationKind) String() string {
	return string(k)
}

// IsAssociation returns true for the per-user pointer kinds
func (k RelationKind) IsAssociation() bool {
	return k == RelationFavorite || k == RelationRecentlyUsed
}

// InputExample is a named set of sample placeholder values for a prompt template
type InputExample struct {
	Title    string            `json:"title" dynamodbav:"title" yaml:"title"`
	Examples map[string]string `json:"examples" dynamodbav:"examples" yaml:"examples"`
}

// UseCaseContent is the caller-editable part of a use case
type UseCaseContent struct {
	Title          string         `json:"title" dynamodbav:"title" validate:"required"`
	Description    string         `json:"description,omitempty" dynamodbav:"description"`
	PromptTemplate string         `json:"promptTemplate" dynamodbav:"promptTemplate" validate:"required"`
	InputExamples  []InputExample `json:"inputExamples,omitempty" dynamodbav:"inputExamples"`
	FixedModelID   string         `json:"fixedModelId,omitempty" dynamodbav:"fixedModelId"`
	FileUpload     bool           `json:"fileUpload,omitempty" dynamodbav:"fileUpload"`
}

// Normalized returns a copy with absent optional fields set to their stored defaults.
// Updates write every mutable field, so an omitted field clears the old value.
func (c UseCaseContent) Normalized() UseCaseContent {
	if c.InputExamples == nil {
		c.InputExamples = []InputExample{}
	}
	return c
}

// UseCaseRecord is the body item of a use case as it is stored
type UseCaseRecord struct {
	// Physical key, private to the store
	OwnerKey string `json:"-" dynamodbav:"id"`
	SortKey  string `json:"-" dynamodbav:"dataType"`

	UseCaseID string `json:"useCaseId" dynamodbav:"useCaseId"`
	UseCaseContent
	IsShared bool `json:"isShared" dynamodbav:"isShared"`
}

// OwnerID recovers the owning user id from the partition key
func (r *UseCaseRecord) OwnerID() string {
	return UserIDFromOwnerKey(r.OwnerKey)
}

// IsOwnedBy reports whether userID owns the record
func (r *UseCaseRecord) IsOwnedBy(userID string) bool {
	return r.OwnerID() == userID
}

// VisibleTo reports whether userID may read the record
func (r *UseCaseRecord) VisibleTo(userID string) bool {
	return r.IsShared || r.IsOwnedBy(userID)
}

// Key returns the physical key of the record
func (r *UseCaseRecord) Key() ItemKey {
	return ItemKey{OwnerKey: r.OwnerKey, SortKey: r.SortKey}
}

// AssociationRecord is a lightweight per-user pointer to a use case
type AssociationRecord struct {
	OwnerKey  string `json:"-" dynamodbav:"id"`
	SortKey   string `json:"-" dynamodbav:"dataType"`
	UseCaseID string `json:"useCaseId" dynamodbav:"useCaseId"`
}

// Key returns the physical key of the record
func (r *AssociationRecord) Key() ItemKey {
	return ItemKey{OwnerKey: r.OwnerKey, SortKey: r.SortKey}
}

// ItemKey is the composite physical key shared by every item in the table
type ItemKey struct {
	OwnerKey string `json:"id" dynamodbav:"id"`
	SortKey  string `json:"dataType" dynamodbav:"dataType"`
}

// UseCase is a record annotated for a specific caller
type UseCase struct {
	UseCaseID string `json:"useCaseId"`
	UseCaseContent
	IsShared    bool `json:"isShared"`
	IsFavorite  bool `json:"isFavorite"`
	IsMyUseCase bool `json:"isMyUseCase"`
}

// NewUseCase annotates a stored record for the calling user
func NewUseCase(rec *UseCaseRecord, userID string, isFavorite bool) *UseCase {
	return &UseCase{
		UseCaseID:      rec.UseCaseID,
		UseCaseContent: rec.UseCaseContent,
		IsShared:       rec.IsShared,
		IsFavorite:     isFavorite,
		IsMyUseCase:    rec.IsOwnedBy(userID),
	}
}

// Page is one page of a list operation. NextToken is empty when the list is exhausted.
type Page struct {
	Data      []*UseCase `json:"data"`
	NextToken string     `json:"lastEvaluatedKey,omitempty"`
}

// FavoriteResult is returned by ToggleFavorite
type FavoriteResult struct {
	IsFavorite bool `json:"isFavorite"`
}

// SharedResult is returned by ToggleShared
type SharedResult struct {
	IsShared bool `json:"isShared"`
}
