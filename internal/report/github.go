package report

import (
	"bufio"
	"io"
	"strings"

	"bucket-check/internal/check"
)

// writeGitHub emits workflow commands so failures show up as annotations.
// Passing results stay in a collapsed group per pass.
func writeGitHub(w io.Writer, rep *check.Report) error {
	bw := bufio.NewWriter(w)
	for _, g := range groups(rep) {
		bw.WriteString("::group::" + g + "\n")
		for _, res := range rep.Pass(g) {
			switch res.Status {
			case check.StatusPass:
				bw.WriteString("PASS  " + res.Message + "\n")
			default:
				bw.WriteString(annotation(res, rep.Strict) + "\n")
			}
		}
		bw.WriteString("::endgroup::\n")
	}
	bw.WriteString(Summarize(rep).String() + "\n")
	return bw.Flush()
}

func annotation(res check.Result, strict bool) string {
	cmd := "error"
	if res.Status == check.StatusWarn && !strict {
		cmd = "warning"
	}
	var props []string
	if res.Path != "" {
		props = append(props, "file="+escapeProperty(res.Path))
	}
	props = append(props, "title="+escapeProperty(res.Pass+"/"+res.Name))
	msg := res.Message
	if res.Detail != "" {
		msg += "\n" + res.Detail
	}
	return "::" + cmd + " " + strings.Join(props, ",") + "::" + escapeData(msg)
}

func escapeData(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	s = strings.ReplaceAll(s, "\r", "%0D")
	return strings.ReplaceAll(s, "\n", "%0A")
}

func escapeProperty(s string) string {
	s = escapeData(s)
	s = strings.ReplaceAll(s, ":", "%3A")
	return strings.ReplaceAll(s, ",", "%2C")
}
