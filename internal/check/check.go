// Package check runs the bucket validation passes and collects their
// results into a Report.
//
// Passes run sequentially in a fixed order (structure, main-project,
// package-managers, manifest). Each pass appends pass/warn/fail results;
// nothing is shared between passes except the lazily walked tree.
package check

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"bucket-check/internal/config"
	"bucket-check/internal/walkwalk"
)

// ErrRoot is returned when the repository root cannot be used.
var ErrRoot = errors.New("invalid repository root")

// Status of a single result.
type Status int

const (
	StatusPass Status = iota
	StatusWarn
	StatusFail
)

func (s Status) String() string {
	switch s {
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "pass"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result is one check outcome.
type Result struct {
	Pass    string `json:"pass"`
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message"`
	// Path is the root-relative file the result is about, if any.
	Path string `json:"path,omitempty"`
	// Detail carries multi-line context such as a unified diff.
	Detail string `json:"detail,omitempty"`
}

// Report aggregates the results of a run.
type Report struct {
	Root    string   `json:"root"`
	Strict  bool     `json:"strict"`
	Results []Result `json:"results"`
}

// Errors counts failures; in strict mode warnings count too.
func (r *Report) Errors() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == StatusFail || (r.Strict && res.Status == StatusWarn) {
			n++
		}
	}
	return n
}

// Warnings counts warnings.
func (r *Report) Warnings() int {
	return r.count(StatusWarn)
}

// Passed counts passing results.
func (r *Report) Passed() int {
	return r.count(StatusPass)
}

// OK reports whether the run should exit successfully.
func (r *Report) OK() bool {
	return r.Errors() == 0
}

// Pass returns the results of one pass, in emission order.
func (r *Report) Pass(name string) []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Pass == name {
			out = append(out, res)
		}
	}
	return out
}

func (r *Report) count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

// runner holds per-run state.
type runner struct {
	cfg    *config.Config
	log    *zap.Logger
	root   string
	report *Report

	walked  bool
	entries []walkwalk.Entry
	walkErr error
}

type passFunc func(ctx context.Context, r *runner) error

// Run executes the enabled passes against cfg.Root. It returns the report
// even when the context is cancelled part way, together with ctx.Err().
func Run(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Report, error) {
	if log == nil {
		log = zap.NewNop()
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRoot, err)
	}
	st, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRoot, err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrRoot, root)
	}

	r := &runner{
		cfg:    cfg,
		log:    log,
		root:   root,
		report: &Report{Root: root, Strict: cfg.Strict},
	}
	passes := []struct {
		name string
		fn   passFunc
	}{
		{config.PassStructure, checkStructure},
		{config.PassMainProject, checkMainProject},
		{config.PassPackageManagers, checkPackageManagers},
		{config.PassManifest, checkManifests},
	}
	for _, p := range passes {
		if err := ctx.Err(); err != nil {
			return r.report, err
		}
		if !cfg.PassEnabled(p.name) {
			log.Debug("pass skipped", zap.String("pass", p.name))
			continue
		}
		before := len(r.report.Results)
		if err := p.fn(ctx, r); err != nil {
			return r.report, fmt.Errorf("%s: %w", p.name, err)
		}
		log.Debug("pass done",
			zap.String("pass", p.name),
			zap.Int("results", len(r.report.Results)-before))
	}
	return r.report, nil
}

// tree walks the root once and caches the entries.
func (r *runner) tree() ([]walkwalk.Entry, error) {
	if !r.walked {
		r.walked = true
		r.entries, r.walkErr = walkwalk.Walk(r.root, walkwalk.Options{
			Exclude:      r.cfg.Exclude,
			UseGitignore: r.cfg.UseGitignore,
		})
		r.log.Debug("tree walked", zap.Int("entries", len(r.entries)), zap.Error(r.walkErr))
	}
	return r.entries, r.walkErr
}

func (r *runner) add(res Result) {
	r.report.Results = append(r.report.Results, res)
}

func (r *runner) pass(pass, name, path, format string, args ...any) {
	r.add(Result{Pass: pass, Name: name, Status: StatusPass, Path: path, Message: fmt.Sprintf(format, args...)})
}

func (r *runner) warn(pass, name, path, format string, args ...any) {
	r.add(Result{Pass: pass, Name: name, Status: StatusWarn, Path: path, Message: fmt.Sprintf(format, args...)})
}

func (r *runner) fail(pass, name, path, format string, args ...any) {
	r.add(Result{Pass: pass, Name: name, Status: StatusFail, Path: path, Message: fmt.Sprintf(format, args...)})
}
