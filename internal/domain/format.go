package domain

import "strings"

// LogSeparator splits the fields of one formatted log line.
// Chosen so that it practically never appears in names, emails or subjects.
const LogSeparator = " ;! "

// LogField binds a Commit field to the git pretty-format placeholder producing it.
type LogField struct {
	Name        string
	Placeholder string
}

// LineFormat is the typed contract between the extractor and the parser:
// the extractor renders it into a --pretty format, the parser splits by it.
type LineFormat struct {
	Separator string
	Fields    []LogField
}

// CommitLineFormat is the one-line-per-commit format used for history extraction.
var CommitLineFormat = LineFormat{
	Separator: LogSeparator,
	Fields: []LogField{
		{Name: CommitFieldHash, Placeholder: "%H"},
		{Name: CommitFieldAuthorName, Placeholder: "%an"},
		{Name: CommitFieldAuthorEmail, Placeholder: "%ae"},
		{Name: CommitFieldAuthorDate, Placeholder: "%ad"},
		{Name: CommitFieldCommitterName, Placeholder: "%cn"},
		{Name: CommitFieldCommitterEmail, Placeholder: "%ce"},
		{Name: CommitFieldCommitterDate, Placeholder: "%cd"},
		{Name: CommitFieldMessage, Placeholder: "%s"},
	},
}

// PrettyFormat returns the value for git's --pretty=format: option.
func (f LineFormat) PrettyFormat() string {
	placeholders := make([]string, len(f.Fields))
	for i, field := range f.Fields {
		placeholders[i] = field.Placeholder
	}
	return strings.Join(placeholders, f.Separator)
}

// FieldCount returns the number of fields a well-formed line splits into.
func (f LineFormat) FieldCount() int {
	return len(f.Fields)
}

// Index returns the position of the named field, or -1.
func (f LineFormat) Index(name string) int {
	for i, field := range f.Fields {
		if field.Name == name {
			return i
		}
	}
	return -1
}
