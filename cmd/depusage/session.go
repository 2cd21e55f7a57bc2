package main

import (
	"context"

	"depusage/internal/analysis"
	apperrors "depusage/internal/errors"
	"depusage/internal/manifest"
	"depusage/internal/paths"
)

// loadManifest reads the manifest named by the flag, or by the config
// relative to the project root.
func loadManifest(flagPath string) (*manifest.Manifest, error) {
	if flagPath != "" {
		path, err := resolveFlagPath(flagPath)
		if err != nil {
			return nil, err
		}
		return manifest.Load(path)
	}
	name := cfgResult.Config.Manifest
	if name == "" {
		name = manifest.DefaultFile
	}
	return manifest.Load(paths.Resolve(projectRoot, name))
}

// outputDir picks the --output-dir flag over the configured directory.
func outputDir(flagDir string) (string, error) {
	if flagDir != "" {
		return resolveFlagPath(flagDir)
	}
	return paths.Resolve(projectRoot, cfgResult.Config.OutputDir), nil
}

func newPipeline(dir string) *analysis.Pipeline {
	cfg := cfgResult.Config
	return analysis.NewPipeline(analysis.Options{
		OutputDir:             dir,
		UnusedFileName:        cfg.Reports.UnusedFileName,
		MisconfiguredFileName: cfg.Reports.MisconfiguredFileName,
		MaxOpenArchives:       cfg.Analysis.MaxOpenArchives,
	}, logger)
}

// analyzeVariant runs the in-memory analysis of a single variant for the
// inspection commands; no report is written.
func analyzeVariant(ctx context.Context, manifestPath, name string) (*analysis.Result, error) {
	if name == "" {
		return nil, apperrors.Newf(apperrors.InputInvalid, "--variant is required")
	}
	m, err := loadManifest(manifestPath)
	if err != nil {
		return nil, err
	}
	inputs, err := m.Inputs([]string{name})
	if err != nil {
		return nil, err
	}
	return newPipeline("").Analyze(ctx, inputs[0])
}
