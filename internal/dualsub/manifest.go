package dualsub

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"dualsubs/internal/subtitles"
)

// Manifest is a YAML list of merge jobs sharing optional defaults:
//
//	output_dir: out
//	defaults:
//	  strategy: nearest
//	  tolerance_ms: 400
//	jobs:
//	  - primary: ep1.en.srt
//	    secondary: ep1.hu.srt
//	  - name: ep2
//	    primary: ep2.en.srt
//	    secondary: ep2.hu.srt
//	    leftovers: drop
//
// Relative paths resolve against the manifest's directory.
type Manifest struct {
	OutputDir string          `yaml:"output_dir"`
	Defaults  ManifestOptions `yaml:"defaults"`
	Jobs      []ManifestJob   `yaml:"jobs"`
}

// ManifestOptions overrides merge settings. Unset fields inherit.
type ManifestOptions struct {
	ToleranceMs     *int64  `yaml:"tolerance_ms"`
	Strategy        *string `yaml:"strategy"`
	Leftovers       *string `yaml:"leftovers"`
	ZeroWidthPrefix *bool   `yaml:"zero_width_prefix"`
	Format          *string `yaml:"format"`
}

// ManifestJob is one merge in a manifest.
type ManifestJob struct {
	Name              string `yaml:"name"`
	Primary           string `yaml:"primary"`
	Secondary         string `yaml:"secondary"`
	Output            string `yaml:"output"`
	PrimaryLanguage   string `yaml:"primary_language"`
	SecondaryLanguage string `yaml:"secondary_language"`

	ManifestOptions `yaml:",inline"`
}

// LoadManifest reads and validates a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	manifest, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	manifest.resolvePaths(filepath.Dir(path))
	return manifest, nil
}

// ParseManifest decodes manifest YAML. Unknown keys are rejected.
func ParseManifest(data []byte) (*Manifest, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	var manifest Manifest
	if err := decoder.Decode(&manifest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("manifest is empty")
		}
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if len(manifest.Jobs) == 0 {
		return nil, errors.New("manifest has no jobs")
	}
	for i := range manifest.Jobs {
		job := &manifest.Jobs[i]
		job.Primary = strings.TrimSpace(job.Primary)
		job.Secondary = strings.TrimSpace(job.Secondary)
		if job.Primary == "" || job.Secondary == "" {
			return nil, fmt.Errorf("job %d: primary and secondary are required", i+1)
		}
		if strings.TrimSpace(job.Name) == "" {
			base := filepath.Base(job.Primary)
			job.Name = strings.TrimSuffix(base, filepath.Ext(base))
		}
	}
	return &manifest, nil
}

func (m *Manifest) resolvePaths(dir string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	m.OutputDir = resolve(m.OutputDir)
	for i := range m.Jobs {
		m.Jobs[i].Primary = resolve(m.Jobs[i].Primary)
		m.Jobs[i].Secondary = resolve(m.Jobs[i].Secondary)
		m.Jobs[i].Output = resolve(m.Jobs[i].Output)
	}
}

// Apply overlays the set fields onto base.
func (o ManifestOptions) Apply(base subtitles.Options) (subtitles.Options, error) {
	if o.ToleranceMs != nil {
		base.ToleranceMs = *o.ToleranceMs
	}
	if o.Strategy != nil {
		strategy, err := subtitles.ParseStrategy(*o.Strategy)
		if err != nil {
			return base, err
		}
		base.Strategy = strategy
	}
	if o.Leftovers != nil {
		leftovers, err := subtitles.ParseLeftoverMode(*o.Leftovers)
		if err != nil {
			return base, err
		}
		base.Leftovers = leftovers
	}
	if o.ZeroWidthPrefix != nil {
		base.ZeroWidthPrefix = *o.ZeroWidthPrefix
	}
	if o.Format != nil {
		format, err := subtitles.ParseFormat(*o.Format)
		if err != nil {
			return base, err
		}
		base.Format = format
	}
	return base, nil
}

// JobOptions resolves the options for job: base, then manifest defaults,
// then the job's own overrides.
func (m *Manifest) JobOptions(base subtitles.Options, job ManifestJob) (subtitles.Options, error) {
	opts, err := m.Defaults.Apply(base)
	if err != nil {
		return opts, fmt.Errorf("defaults: %w", err)
	}
	opts, err = job.ManifestOptions.Apply(opts)
	if err != nil {
		return opts, fmt.Errorf("job %s: %w", job.Name, err)
	}
	return opts, nil
}
