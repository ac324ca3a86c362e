package domain

import "path/filepath"

// RepositoryRef identifies a repository found on disk.
type RepositoryRef struct {
	// MetadataDir is the control-metadata directory that was discovered.
	// Example: "/home/jane/src/project/.git"
	MetadataDir string `json:"metadata_dir"`

	// Root is the directory holding the commit history (the parent of MetadataDir).
	// Example: "/home/jane/src/project"
	Root string `json:"root"`
}

// NewRepositoryRef builds a RepositoryRef from a metadata directory path.
func NewRepositoryRef(metadataDir string) RepositoryRef {
	clean := filepath.Clean(metadataDir)
	return RepositoryRef{
		MetadataDir: clean,
		Root:        filepath.Dir(clean),
	}
}

// Commit is a normalized commit record.
// It is the document stored in the Bleve index, keyed by Hash.
type Commit struct {
	// Hash is the full commit SHA and the document ID in the index.
	Hash string `json:"hash"`

	AuthorName  string `json:"author_name"`
	AuthorEmail string `json:"author_email"`
	// AuthorDate is ISO-8601 with a colon in the offset.
	// Example: "2020-01-02T03:04:05+05:00"
	AuthorDate string `json:"author_date"`

	CommitterName  string `json:"committer_name"`
	CommitterEmail string `json:"committer_email"`
	CommitterDate  string `json:"committer_date"`

	// Message is the subject line only.
	Message string `json:"message"`

	// RepositoryRoot is the repository the commit was read from.
	RepositoryRoot string `json:"repository_root"`
}

// Bleve field name constants for consistent field references in queries and mappings.
const (
	CommitFieldHash           = "hash"
	CommitFieldAuthorName     = "author_name"
	CommitFieldAuthorEmail    = "author_email"
	CommitFieldAuthorDate     = "author_date"
	CommitFieldCommitterName  = "committer_name"
	CommitFieldCommitterEmail = "committer_email"
	CommitFieldCommitterDate  = "committer_date"
	CommitFieldMessage        = "message"
	CommitFieldRepository     = "repository_root"
)

// CommitFields lists every indexed field, in declaration order.
var CommitFields = []string{
	CommitFieldHash,
	CommitFieldAuthorName,
	CommitFieldAuthorEmail,
	CommitFieldAuthorDate,
	CommitFieldCommitterName,
	CommitFieldCommitterEmail,
	CommitFieldCommitterDate,
	CommitFieldMessage,
	CommitFieldRepository,
}

// ParseError describes one log line that could not be turned into a Commit.
type ParseError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// IngestionBatch holds the commits parsed from one repository in one run.
type IngestionBatch struct {
	RepositoryRoot string `json:"repository_root"`
	// Commits keeps the extractor's output order.
	Commits     []Commit     `json:"commits"`
	ParseErrors int          `json:"parse_errors"`
	Errors      []ParseError `json:"errors,omitempty"`
}
