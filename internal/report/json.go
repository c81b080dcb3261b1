package report

import (
	"encoding/json"
	"io"

	"bucket-check/internal/check"
)

type jsonReport struct {
	*check.Report
	Summary Summary `json:"summary"`
}

func writeJSON(w io.Writer, rep *check.Report) error {
	out := jsonReport{Report: rep, Summary: Summarize(rep)}
	if out.Results == nil {
		out.Report = &check.Report{Root: rep.Root, Strict: rep.Strict, Results: []check.Result{}}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
