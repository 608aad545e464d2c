package index

import "github.com/justlep/nedb/internal/model"

// Like is the common contract shared by the ordered Index and the
// PrimaryIndex, used by the collection orchestration layer so it can walk
// "all indexes" uniformly for atomic multi-index operations.
type Like interface {
	FieldName() string
	Reset(docs []model.Doc) error
	Insert(docOrDocs any) error
	Remove(docOrDocs any)
	Update(old, newDoc model.Doc) error
	UpdateBatch(pairs []UpdatePair) error
	RevertUpdate(old, newDoc model.Doc) error
	RevertUpdateBatch(pairs []UpdatePair) error
	GetMatching(v any) []model.Doc
	GetBetweenBounds(b Bounds) []model.Doc
	GetAll() []model.Doc
	Len() int
}

var (
	_ Like = (*Index)(nil)
	_ Like = (*Primary)(nil)
)
