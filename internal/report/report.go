// Package report renders a check.Report as colored text, JSON, or GitHub
// Actions workflow commands.
package report

import (
	"fmt"
	"io"

	"bucket-check/internal/check"
	"bucket-check/internal/config"
)

// Options select the output format.
type Options struct {
	Format string // config.FormatText, FormatJSON or FormatGitHub
	Color  bool   // text format only
}

// Summary is the aggregate line printed after the results.
type Summary struct {
	Passed   int  `json:"passed"`
	Warnings int  `json:"warnings"`
	Errors   int  `json:"errors"`
	OK       bool `json:"ok"`
}

// Summarize computes the Summary of rep.
func Summarize(rep *check.Report) Summary {
	return Summary{
		Passed:   rep.Passed(),
		Warnings: rep.Warnings(),
		Errors:   rep.Errors(),
		OK:       rep.OK(),
	}
}

func (s Summary) String() string {
	return fmt.Sprintf("%d passed, %d %s, %d %s",
		s.Passed, s.Warnings, plural(s.Warnings, "warning"), s.Errors, plural(s.Errors, "error"))
}

// Write renders rep to w.
func Write(w io.Writer, rep *check.Report, opt Options) error {
	switch opt.Format {
	case config.FormatJSON:
		return writeJSON(w, rep)
	case config.FormatGitHub:
		return writeGitHub(w, rep)
	case config.FormatText, "":
		return writeText(w, rep, opt.Color)
	default:
		return fmt.Errorf("unknown report format %q", opt.Format)
	}
}

// groups returns pass names in execution order, limited to passes with
// results.
func groups(rep *check.Report) []string {
	var out []string
	for _, p := range config.Passes {
		if len(rep.Pass(p)) > 0 {
			out = append(out, p)
		}
	}
	return out
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
