// Package analysis runs the dependency usage pipeline for one variant:
// index artifacts, scan the variant's classes, classify declarations, walk the
// inferred graph and write the reports.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"depusage/internal/archive"
	"depusage/internal/classfinder"
	"depusage/internal/depgraph"
	apperrors "depusage/internal/errors"
	"depusage/internal/report"
	"depusage/internal/usage"
	"depusage/internal/variant"
)

// Inputs are the file-based inputs for one variant.
type Inputs struct {
	Variant      string
	ClassRoots   []string
	Artifacts    []classfinder.Artifact
	Dependencies []variant.Descriptor
	API          []variant.Descriptor
}

// Validate checks the inputs for structural problems.
func (in Inputs) Validate() error {
	if in.Variant == "" {
		return apperrors.Newf(apperrors.InputInvalid, "variant name is required")
	}
	for i, a := range in.Artifacts {
		if a.File == "" || a.ID == "" {
			return apperrors.Newf(apperrors.InputInvalid,
				"variant %s: artifact %d needs both file and id", in.Variant, i)
		}
	}
	return nil
}

// FingerprintItems describes the inputs as stable strings: file paths with
// size and modification time, and the declared dependencies.
func (in Inputs) FingerprintItems() []string {
	items := []string{"variant=" + in.Variant}
	for _, root := range in.ClassRoots {
		items = append(items, "classes="+describeTree(root))
	}
	for _, a := range in.Artifacts {
		items = append(items, "artifact="+a.ID+"@"+describeTree(a.File))
	}
	var deps []string
	for _, d := range in.Dependencies {
		deps = append(deps, "dep="+d.ID())
	}
	for _, d := range in.API {
		deps = append(deps, "api="+d.ID())
	}
	sort.Strings(deps)
	return append(items, deps...)
}

func describeTree(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return path + ":missing"
	}
	if !info.IsDir() {
		return fmt.Sprintf("%s:%d:%d", path, info.Size(), info.ModTime().UnixNano())
	}
	var size, latest int64
	var count int
	_ = filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		count++
		size += fi.Size()
		if mt := fi.ModTime().UnixNano(); mt > latest {
			latest = mt
		}
		return nil
	})
	return fmt.Sprintf("%s:%d:%d:%d", path, count, size, latest)
}

// Options control where reports go and how archives are opened.
type Options struct {
	OutputDir             string
	UnusedFileName        string
	MisconfiguredFileName string
	MaxOpenArchives       int
}

// DefaultOptions returns the standard report layout under outputDir.
func DefaultOptions(outputDir string) Options {
	return Options{
		OutputDir:             outputDir,
		UnusedFileName:        report.UnusedFileName,
		MisconfiguredFileName: report.MisconfiguredFileName,
		MaxOpenArchives:       archive.DefaultMaxOpenArchives,
	}
}

// Result holds every derived component of one variant's analysis.
type Result struct {
	Variant       string
	Classes       *variant.Classes
	Dependencies  *variant.Dependencies
	Finder        *classfinder.ClassFinder
	Usage         *usage.Finder
	Graph         *depgraph.Analyzer
	Unused        report.UnusedDependencies
	Misconfigured []string

	// Report paths, set by Run.
	UnusedFile        string
	MisconfiguredFile string

	Duration time.Duration
}

// HasFindings reports whether any report lists a dependency.
func (r *Result) HasFindings() bool {
	return !r.Unused.IsEmpty() || len(r.Misconfigured) > 0
}

// Pipeline analyzes variants. Each call owns its own archive readers and
// indices; nothing is shared between calls.
type Pipeline struct {
	opts   Options
	logger *slog.Logger
}

// NewPipeline creates a Pipeline.
func NewPipeline(opts Options, logger *slog.Logger) *Pipeline {
	if opts.UnusedFileName == "" {
		opts.UnusedFileName = report.UnusedFileName
	}
	if opts.MisconfiguredFileName == "" {
		opts.MisconfiguredFileName = report.MisconfiguredFileName
	}
	return &Pipeline{opts: opts, logger: logger}
}

// Analyze computes every result without writing anything.
func (p *Pipeline) Analyze(ctx context.Context, in Inputs) (*Result, error) {
	start := time.Now()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	opener, err := archive.NewOpener(p.opts.MaxOpenArchives)
	if err != nil {
		return nil, apperrors.New(apperrors.InternalError, "cannot create archive cache", err)
	}
	defer func() { _ = opener.Close() }()

	finder, err := classfinder.Build(opener, in.Artifacts)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("Indexed dependency artifacts",
		"variant", in.Variant,
		"artifacts", len(in.Artifacts),
		"classes", finder.NumClasses(),
	)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	classes, err := variant.BuildClasses(opener, in.ClassRoots)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("Scanned variant classes",
		"variant", in.Variant,
		"defined", len(classes.Defined()),
		"used", len(classes.Used()),
		"private", len(classes.Private()),
	)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	deps := variant.NewDependencies(in.Dependencies, in.API)
	if dropped := len(in.Dependencies) + len(in.API) - countAnalyzable(in.Dependencies, in.API); dropped > 0 {
		p.logger.Debug("Ignoring declarations without a group",
			"variant", in.Variant,
			"count", dropped,
		)
	}

	for _, m := range inexactDeclarations(deps.All(), in.Artifacts) {
		p.logger.Warn("Declared dependency does not match an artifact id exactly",
			"variant", in.Variant,
			"declared", m.declared,
			"artifact", m.artifact,
		)
	}

	u := usage.NewFinder(finder, classes, deps)
	g, err := depgraph.New(ctx, opener, in.Variant, finder, u, p.logger)
	if err != nil {
		return nil, err
	}

	reporter := report.NewReporter(classes, deps, finder, u, g)
	return &Result{
		Variant:       in.Variant,
		Classes:       classes,
		Dependencies:  deps,
		Finder:        finder,
		Usage:         u,
		Graph:         g,
		Unused:        reporter.UnusedDependencies(),
		Misconfigured: reporter.MisconfiguredDependencies(),
		Duration:      time.Since(start),
	}, nil
}

// Run analyzes the variant and writes both reports under
// <OutputDir>/<variant>/. Any failure aborts before or during writing.
func (p *Pipeline) Run(ctx context.Context, in Inputs) (*Result, error) {
	res, err := p.Analyze(ctx, in)
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(p.opts.OutputDir, in.Variant)
	reporter := report.NewReporter(res.Classes, res.Dependencies, res.Finder, res.Usage, res.Graph)

	res.UnusedFile = filepath.Join(dir, p.opts.UnusedFileName)
	if err := reporter.WriteUnusedDependencies(res.UnusedFile); err != nil {
		return nil, err
	}
	res.MisconfiguredFile = filepath.Join(dir, p.opts.MisconfiguredFileName)
	if err := reporter.WriteMisconfiguredDependencies(res.MisconfiguredFile); err != nil {
		return nil, err
	}

	p.logger.Info("Analyzed variant",
		"variant", in.Variant,
		"remove", len(res.Unused.Remove),
		"add", len(res.Unused.Add),
		"misconfigured", len(res.Misconfigured),
		"duration", res.Duration.Round(time.Millisecond),
	)
	return res, nil
}

type inexactMatch struct {
	declared string
	artifact string
}

// inexactDeclarations finds declared ids that equal no artifact id but share
// group:name with one. Ids are joined exactly, so each such declaration is
// reported as unused while its artifact can be reported as missing.
func inexactDeclarations(declared []string, artifacts []classfinder.Artifact) []inexactMatch {
	ids := make(map[string]struct{}, len(artifacts))
	byModule := make(map[string]string, len(artifacts))
	for _, a := range artifacts {
		ids[a.ID] = struct{}{}
		if _, ok := byModule[moduleKey(a.ID)]; !ok {
			byModule[moduleKey(a.ID)] = a.ID
		}
	}

	var out []inexactMatch
	for _, id := range declared {
		if _, ok := ids[id]; ok {
			continue
		}
		if artifact, ok := byModule[moduleKey(id)]; ok {
			out = append(out, inexactMatch{declared: id, artifact: artifact})
		}
	}
	return out
}

func moduleKey(id string) string {
	parts := strings.SplitN(id, ":", 3)
	if len(parts) < 2 {
		return id
	}
	return parts[0] + ":" + parts[1]
}

func countAnalyzable(lists ...[]variant.Descriptor) int {
	n := 0
	for _, list := range lists {
		for _, d := range list {
			if d.Analyzable() {
				n++
			}
		}
	}
	return n
}
