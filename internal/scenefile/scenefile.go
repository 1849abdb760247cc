// Package scenefile reads scene descriptions from YAML, JSON and HCL files
// and turns them into scene factories for the builder.
package scenefile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"gopkg.in/yaml.v3"

	"github.com/me/imagebuilder/internal/scene"
	"github.com/me/imagebuilder/pkg/model"
)

// Format is a scene file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatHCL  Format = "hcl"
)

// FormatFromPath picks a format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".hcl":
		return FormatHCL, nil
	}
	return "", fmt.Errorf("unsupported scene file extension %q", filepath.Ext(path))
}

// document is the YAML/JSON layout of a scene file.
type document struct {
	Scenes []model.SceneSpec `json:"scenes" yaml:"scenes"`
}

// hclDocument is the HCL layout: one labelled scene block per scene.
type hclDocument struct {
	Scenes []model.SceneSpec `hcl:"scene,block"`
}

// Load reads and validates every scene in a file.
func Load(path string) ([]model.SceneSpec, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene file: %w", err)
	}
	return Parse(data, format, path)
}

// Parse decodes and validates scenes. filename is used in diagnostics.
func Parse(data []byte, format Format, filename string) ([]model.SceneSpec, error) {
	var specs []model.SceneSpec
	switch format {
	case FormatYAML:
		var doc document
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filename, err)
		}
		specs = doc.Scenes
	case FormatJSON:
		var doc document
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filename, err)
		}
		specs = doc.Scenes
	case FormatHCL:
		file, diags := hclparse.NewParser().ParseHCL(data, filename)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parse %s: %w", filename, diags)
		}
		var doc hclDocument
		if diags := gohcl.DecodeBody(file.Body, nil, &doc); diags.HasErrors() {
			return nil, fmt.Errorf("decode %s: %w", filename, diags)
		}
		specs = doc.Scenes
	default:
		return nil, fmt.Errorf("unsupported scene format %q", format)
	}

	for i := range specs {
		if err := Validate(&specs[i]); err != nil {
			return nil, fmt.Errorf("%s: scene %d: %w", filename, i, err)
		}
	}
	return specs, nil
}

// Validate checks a scene description and fills in its defaults.
func Validate(spec *model.SceneSpec) error {
	if spec.Repeat < 0 {
		return fmt.Errorf("repeat must not be negative, got %d", spec.Repeat)
	}
	if _, err := scene.ParseDirection(spec.Direction); err != nil {
		return err
	}
	if spec.Empty && (spec.Script != "" || spec.Grow != nil) {
		return fmt.Errorf("an empty scene cannot have a script or grow block")
	}
	if spec.Script != "" {
		if _, err := compile(spec.Name, spec.Script); err != nil {
			return fmt.Errorf("script: %w", err)
		}
	}
	if g := spec.Grow; g != nil {
		if g.Count < 0 {
			return fmt.Errorf("grow count must not be negative, got %d", g.Count)
		}
		if g.PerStep < 0 {
			return fmt.Errorf("grow per_step must not be negative, got %d", g.PerStep)
		}
		if g.PerStep == 0 {
			g.PerStep = 1
		}
		if _, err := scene.ParseDirection(g.Direction); err != nil {
			return fmt.Errorf("grow: %w", err)
		}
	}
	return nil
}

// Chains returns n chain scenes of increasing length, each ending in a
// labelled block.
func Chains(n int, label string) []model.SceneSpec {
	specs := make([]model.SceneSpec, n)
	for i := range specs {
		specs[i] = model.SceneSpec{
			Name:   fmt.Sprintf("chain-%03d", i),
			Label:  label,
			Repeat: i,
		}
	}
	return specs
}
