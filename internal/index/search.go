package index

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/jbruggem/personal-git-history/internal/domain"
)

// DefaultSearchSize is the number of hits returned when SearchRequest.Size is zero.
const DefaultSearchSize = 20

// SearchRequest filters commits in the index. Empty fields do not filter.
type SearchRequest struct {
	// Query is matched against the message and the author and committer names.
	Query       string
	AuthorEmail string
	Repository  string
	Since       time.Time
	Until       time.Time
	Size        int
	From        int
}

// Hit is a matching commit with its relevance score.
type Hit struct {
	Commit domain.Commit `json:"commit"`
	Score  float64       `json:"score"`
}

// SearchResult holds one page of hits, newest first.
type SearchResult struct {
	Total uint64 `json:"total"`
	Hits  []Hit  `json:"hits"`
}

// Search runs req against the index.
func (g *Gateway) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.index == nil {
		return nil, errors.New("index is closed")
	}

	size := req.Size
	if size <= 0 {
		size = DefaultSearchSize
	}

	searchReq := bleve.NewSearchRequestOptions(buildQuery(req), size, req.From, false)
	searchReq.Fields = []string{"*"}
	searchReq.SortBy([]string{"-" + domain.CommitFieldAuthorDate, "-_score"})

	res, err := g.index.SearchInContext(ctx, searchReq)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	result := &SearchResult{Total: res.Total, Hits: make([]Hit, 0, len(res.Hits))}
	for _, hit := range res.Hits {
		result.Hits = append(result.Hits, Hit{Commit: commitFromHit(hit), Score: hit.Score})
	}
	return result, nil
}

// Get returns the stored commit with the given hash.
func (g *Gateway) Get(ctx context.Context, hash string) (*domain.Commit, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return nil, ErrNotFound
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.index == nil {
		return nil, errors.New("index is closed")
	}

	searchReq := bleve.NewSearchRequest(bleve.NewDocIDQuery([]string{hash}))
	searchReq.Fields = []string{"*"}
	searchReq.Size = 1

	res, err := g.index.SearchInContext(ctx, searchReq)
	if err != nil {
		return nil, fmt.Errorf("lookup failed: %w", err)
	}
	if len(res.Hits) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, hash)
	}

	commit := commitFromHit(res.Hits[0])
	return &commit, nil
}

// buildQuery combines the full-text query with the filters of req.
func buildQuery(req SearchRequest) query.Query {
	var must []query.Query

	if text := strings.TrimSpace(req.Query); text != "" {
		var should []query.Query
		for _, field := range []string{
			domain.CommitFieldMessage,
			domain.CommitFieldAuthorName,
			domain.CommitFieldCommitterName,
		} {
			q := bleve.NewMatchQuery(text)
			q.SetField(field)
			if field == domain.CommitFieldMessage {
				q.SetBoost(2.0)
			}
			should = append(should, q)
		}
		must = append(must, bleve.NewDisjunctionQuery(should...))
	}

	if req.AuthorEmail != "" {
		q := bleve.NewTermQuery(req.AuthorEmail)
		q.SetField(domain.CommitFieldAuthorEmail)
		must = append(must, q)
	}

	if req.Repository != "" {
		q := bleve.NewTermQuery(req.Repository)
		q.SetField(domain.CommitFieldRepository)
		must = append(must, q)
	}

	if !req.Since.IsZero() || !req.Until.IsZero() {
		q := bleve.NewDateRangeQuery(req.Since, req.Until)
		q.SetField(domain.CommitFieldAuthorDate)
		must = append(must, q)
	}

	switch len(must) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return must[0]
	default:
		return bleve.NewConjunctionQuery(must...)
	}
}

// commitFromHit rebuilds a commit from stored fields.
func commitFromHit(hit *search.DocumentMatch) domain.Commit {
	str := func(field string) string {
		if val, ok := hit.Fields[field].(string); ok {
			return val
		}
		return ""
	}

	return domain.Commit{
		Hash:           hit.ID,
		AuthorName:     str(domain.CommitFieldAuthorName),
		AuthorEmail:    str(domain.CommitFieldAuthorEmail),
		AuthorDate:     str(fieldAuthorDateLocal),
		CommitterName:  str(domain.CommitFieldCommitterName),
		CommitterEmail: str(domain.CommitFieldCommitterEmail),
		CommitterDate:  str(fieldCommitterDateLocal),
		Message:        str(domain.CommitFieldMessage),
		RepositoryRoot: str(domain.CommitFieldRepository),
	}
}

// ParseDate parses a search bound given as YYYY-MM-DD (midnight UTC) or RFC 3339.
// An empty string yields the zero time, meaning unbounded.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD or RFC 3339", s)
	}
	return t, nil
}
