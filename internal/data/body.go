package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RootConnector marks an organ that has no upstream organ.
const RootConnector = "_ROOT"

// TissueDef is one entry of the tissue catalog.
type TissueDef struct {
	ID         string  `yaml:"id"`
	Name       string  `yaml:"name"`
	Pain       float64 `yaml:"pain"`
	BloodFlow  float64 `yaml:"blood_flow"`
	Resistance float64 `yaml:"resistance"`
	Impairment float64 `yaml:"impairment"`
}

// TissueRef links an organ to a catalog tissue. Name and CustomID override
// the tissue's own name and id for this organ only (e.g. BONE named "Femur").
type TissueRef struct {
	Tissue   string  `yaml:"tissue"`
	HitProb  float64 `yaml:"hit_prob"` // relative weight, not normalised
	Name     string  `yaml:"name,omitempty"`
	CustomID string  `yaml:"custom_id,omitempty"`
}

// OrganTissues is the tissue block of an organ. A symmetrical block is
// mirrored around its last entry when the organ is built.
type OrganTissues struct {
	Symmetrical bool        `yaml:"symmetrical"`
	Tissues     []TissueRef `yaml:"tissues"`
}

// OrganDef is a leaf of the body definition.
type OrganDef struct {
	ID        string       `yaml:"id"`
	Name      string       `yaml:"name"`
	Surface   float64      `yaml:"surface"`
	Connector string       `yaml:"connector"` // organ id, or RootConnector
	Tissue    OrganTissues `yaml:"organ_tissue"`
}

// PartDef is a body part node. It holds either sub-parts or organs, never both.
type PartDef struct {
	ID      string     `yaml:"id"`
	Name    string     `yaml:"name"`
	Surface float64    `yaml:"surface"`
	Parts   []PartDef  `yaml:"body_parts,omitempty"`
	Organs  []OrganDef `yaml:"organs,omitempty"`
}

// BodyDefinition is a whole body-definition file: the tissue catalog plus
// the root body part.
type BodyDefinition struct {
	Name    string      `yaml:"name"`
	Tissues []TissueDef `yaml:"tissues"`
	Body    PartDef     `yaml:"body"`
}

// IsRootMarker reports whether s is one of the root connector markers. Part
// ids may not take these values.
func IsRootMarker(s string) bool {
	return s == RootConnector || s == "ROOT"
}

// IsRoot reports whether the organ is declared without an upstream organ.
func (o *OrganDef) IsRoot() bool {
	return IsRootMarker(o.Connector)
}

// CountParts returns the number of body parts and organs declared.
func (d *BodyDefinition) CountParts() (parts, organs int) {
	var walk func(p *PartDef)
	walk = func(p *PartDef) {
		parts++
		organs += len(p.Organs)
		for i := range p.Parts {
			walk(&p.Parts[i])
		}
	}
	walk(&d.Body)
	return parts, organs
}

// ParseBodyDefinition decodes a body definition from YAML.
func ParseBodyDefinition(raw []byte) (*BodyDefinition, error) {
	var d BodyDefinition
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("parse body definition: %w", err)
	}
	return &d, nil
}

// LoadBodyDefinition loads a body-definition YAML file.
func LoadBodyDefinition(path string) (*BodyDefinition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("body: read %s: %w", path, err)
	}
	d, err := ParseBodyDefinition(raw)
	if err != nil {
		return nil, fmt.Errorf("body: %s: %w", path, err)
	}
	return d, nil
}
