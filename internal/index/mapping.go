package index

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/jbruggem/personal-git-history/internal/domain"
)

// Stored copies of the commit dates as written. Bleve datetime fields keep only
// the UTC instant, so the original offset is read back from these.
const (
	fieldAuthorDateLocal    = "author_date_local"
	fieldCommitterDateLocal = "committer_date_local"
)

// CommitMapping creates the Bleve index mapping for commit documents.
// The mapped fields are exactly the fields of domain.Commit.
func CommitMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()
	docMapping.Dynamic = false

	// Exact-match identifiers
	for _, field := range []string{
		domain.CommitFieldHash,
		domain.CommitFieldAuthorEmail,
		domain.CommitFieldCommitterEmail,
		domain.CommitFieldRepository,
	} {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		fm.Store = true
		docMapping.AddFieldMappingsAt(field, fm)
	}

	// Dates are indexed for range queries and sorting and stored verbatim under a second name
	for field, local := range map[string]string{
		domain.CommitFieldAuthorDate:    fieldAuthorDateLocal,
		domain.CommitFieldCommitterDate: fieldCommitterDateLocal,
	} {
		dm := bleve.NewDateTimeFieldMapping()
		dm.Store = false

		lm := bleve.NewKeywordFieldMapping()
		lm.Name = local
		lm.Store = true
		lm.Index = false
		lm.IncludeInAll = false

		docMapping.AddFieldMappingsAt(field, dm, lm)
	}

	// Full text
	for _, field := range []string{
		domain.CommitFieldAuthorName,
		domain.CommitFieldCommitterName,
		domain.CommitFieldMessage,
	} {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = standard.Name
		fm.Store = true
		fm.IncludeTermVectors = true
		docMapping.AddFieldMappingsAt(field, fm)
	}

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = standard.Name

	return indexMapping
}
