package app

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/jbruggem/personal-git-history/internal/pipeline"
)

var (
	titleColor   = color.New(color.FgHiCyan, color.Bold)
	successColor = color.New(color.FgHiGreen)
	warnColor    = color.New(color.FgHiYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
	dimColor     = color.New(color.FgHiBlack)
)

// PrintSummary writes the run summary. In verbose mode every failed
// repository is listed with its error.
func PrintSummary(w io.Writer, s pipeline.Summary, verbose bool) {
	_, _ = titleColor.Fprintln(w, "Git history indexing summary")
	_, _ = fmt.Fprintf(w, "  Repositories scanned: %d\n", s.RepositoriesScanned)

	failed := successColor
	if s.RepositoriesFailed > 0 {
		failed = errorColor
	}
	_, _ = failed.Fprintf(w, "  Repositories failed:  %d\n", s.RepositoriesFailed)
	_, _ = successColor.Fprintf(w, "  Commits indexed:      %d\n", s.CommitsIndexed)

	if s.ParseErrorsTotal > 0 {
		_, _ = warnColor.Fprintf(w, "  Parse errors:         %d\n", s.ParseErrorsTotal)
	}
	if s.DocumentsFailed > 0 {
		_, _ = warnColor.Fprintf(w, "  Documents rejected:   %d\n", s.DocumentsFailed)
	}

	if len(s.Failures) == 0 {
		return
	}
	if !verbose {
		_, _ = dimColor.Fprintln(w, "  (run with --verbose to list failed repositories)")
		return
	}

	_, _ = fmt.Fprintln(w)
	_, _ = errorColor.Fprintln(w, "Failed repositories:")
	for _, f := range s.Failures {
		_, _ = fmt.Fprintf(w, "  %s [%s]\n", f.Repository, f.Stage)
		_, _ = dimColor.Fprintf(w, "    %s\n", f.Error)
	}
}
