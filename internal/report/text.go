package report

import (
	"bufio"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"bucket-check/internal/check"
)

type palette struct {
	pass, warn, fail, header, dim lipgloss.Style
}

func newPalette(w io.Writer, color bool) palette {
	r := lipgloss.NewRenderer(w)
	if color {
		r.SetColorProfile(termenv.ANSI)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}
	return palette{
		pass:   r.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		warn:   r.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		fail:   r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		header: r.NewStyle().Bold(true),
		dim:    r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

func (p palette) status(s check.Status) string {
	switch s {
	case check.StatusFail:
		return p.fail.Render("FAIL")
	case check.StatusWarn:
		return p.warn.Render("WARN")
	default:
		return p.pass.Render("PASS")
	}
}

func writeText(w io.Writer, rep *check.Report, color bool) error {
	bw := bufio.NewWriter(w)
	p := newPalette(w, color)

	for _, g := range groups(rep) {
		bw.WriteString(p.header.Render("== "+g) + "\n")
		for _, res := range rep.Pass(g) {
			bw.WriteString("  " + p.status(res.Status) + "  " + res.Message + "\n")
			if res.Detail != "" {
				for _, ln := range strings.Split(strings.TrimRight(res.Detail, "\n"), "\n") {
					bw.WriteString("        " + p.dim.Render(ln) + "\n")
				}
			}
		}
	}

	sum := Summarize(rep)
	verdict := p.pass.Render("OK")
	if !sum.OK {
		verdict = p.fail.Render("FAILED")
	}
	bw.WriteString("\n" + verdict + ": " + sum.String() + "\n")
	return bw.Flush()
}
