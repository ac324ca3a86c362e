package gitlog

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jbruggem/personal-git-history/internal/domain"
)

const (
	// isoInputLayout is what git prints for --date=iso.
	isoInputLayout = "2006-01-02 15:04:05 -0700"

	// isoOutputLayout always renders the offset as +HH:MM, never Z.
	isoOutputLayout = "2006-01-02T15:04:05-07:00"
)

var (
	// ErrFieldCount indicates a line did not split into enough fields
	ErrFieldCount = errors.New("unexpected field count")

	// ErrEmptyHash indicates a line with an empty commit hash
	ErrEmptyHash = errors.New("empty commit hash")

	// ErrMalformedDate indicates a date that is not "YYYY-MM-DD HH:MM:SS +HHMM"
	ErrMalformedDate = errors.New("malformed date")
)

// NormalizeDate converts "2020-01-02 03:04:05 +0500" into "2020-01-02T03:04:05+05:00".
func NormalizeDate(s string) (string, error) {
	tokens := strings.Fields(s)
	if len(tokens) != 3 {
		return "", fmt.Errorf("%w: %q", ErrMalformedDate, s)
	}

	t, err := time.Parse(isoInputLayout, strings.Join(tokens, " "))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrMalformedDate, s)
	}

	return t.Format(isoOutputLayout), nil
}

// ParseLine turns one formatted log line into a Commit.
// RepositoryRoot is left empty; Parse fills it in.
func ParseLine(line string) (domain.Commit, error) {
	return parseLine(domain.CommitLineFormat, line)
}

func parseLine(format domain.LineFormat, line string) (domain.Commit, error) {
	want := format.FieldCount()

	// The subject is last, so a separator inside it stays part of the subject.
	fields := strings.SplitN(line, format.Separator, want)
	if len(fields) < want {
		return domain.Commit{}, fmt.Errorf("%w: got %d, want %d", ErrFieldCount, len(fields), want)
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	get := func(name string) string {
		return fields[format.Index(name)]
	}

	commit := domain.Commit{
		Hash:           get(domain.CommitFieldHash),
		AuthorName:     get(domain.CommitFieldAuthorName),
		AuthorEmail:    get(domain.CommitFieldAuthorEmail),
		CommitterName:  get(domain.CommitFieldCommitterName),
		CommitterEmail: get(domain.CommitFieldCommitterEmail),
		Message:        get(domain.CommitFieldMessage),
	}
	if commit.Hash == "" {
		return domain.Commit{}, ErrEmptyHash
	}

	var err error
	if commit.AuthorDate, err = NormalizeDate(get(domain.CommitFieldAuthorDate)); err != nil {
		return domain.Commit{}, fmt.Errorf("author date: %w", err)
	}
	if commit.CommitterDate, err = NormalizeDate(get(domain.CommitFieldCommitterDate)); err != nil {
		return domain.Commit{}, fmt.Errorf("committer date: %w", err)
	}

	return commit, nil
}

// Parse converts the raw log lines of one repository into an ingestion batch.
// Malformed lines are counted and skipped; parsing never fails as a whole.
func Parse(repoRoot string, lines []string) domain.IngestionBatch {
	batch := domain.IngestionBatch{
		RepositoryRoot: repoRoot,
		Commits:        make([]domain.Commit, 0, len(lines)),
	}

	for i, line := range lines {
		commit, err := ParseLine(line)
		if err != nil {
			batch.ParseErrors++
			batch.Errors = append(batch.Errors, domain.ParseError{Line: i + 1, Reason: err.Error()})
			continue
		}
		commit.RepositoryRoot = repoRoot
		batch.Commits = append(batch.Commits, commit)
	}

	return batch
}
