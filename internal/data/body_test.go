package data

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const smallBody = `
name: small
tissues:
  - { id: BONE, name: Bone, pain: 0.5, blood_flow: 0.1, resistance: 0.9, impairment: 0.7 }
body:
  id: TORSO
  name: Torso
  surface: 1
  organs:
    - id: LEFT_ARM
      name: Left arm
      surface: 0.5
      connector: _ROOT
      organ_tissue:
        symmetrical: true
        tissues:
          - { tissue: BONE, hit_prob: 1.0, name: Humerus, custom_id: HUMERUS }
    - id: LEFT_HAND
      name: Left hand
      surface: 0.5
      connector: LEFT_ARM
      organ_tissue:
        tissues:
          - { tissue: BONE, hit_prob: 1.0 }
`

func TestParseBodyDefinition(t *testing.T) {
	d, err := ParseBodyDefinition([]byte(smallBody))
	if err != nil {
		t.Fatal(err)
	}
	want := &BodyDefinition{
		Name: "small",
		Tissues: []TissueDef{
			{ID: "BONE", Name: "Bone", Pain: 0.5, BloodFlow: 0.1, Resistance: 0.9, Impairment: 0.7},
		},
		Body: PartDef{
			ID: "TORSO", Name: "Torso", Surface: 1,
			Organs: []OrganDef{
				{
					ID: "LEFT_ARM", Name: "Left arm", Surface: 0.5, Connector: RootConnector,
					Tissue: OrganTissues{Symmetrical: true, Tissues: []TissueRef{
						{Tissue: "BONE", HitProb: 1, Name: "Humerus", CustomID: "HUMERUS"},
					}},
				},
				{
					ID: "LEFT_HAND", Name: "Left hand", Surface: 0.5, Connector: "LEFT_ARM",
					Tissue: OrganTissues{Tissues: []TissueRef{{Tissue: "BONE", HitProb: 1}}},
				},
			},
		},
	}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Errorf("ParseBodyDefinition (-want +got):\n%s", diff)
	}
	if !d.Body.Organs[0].IsRoot() || d.Body.Organs[1].IsRoot() {
		t.Errorf("IsRoot wrong")
	}
}

func TestParseBodyDefinitionError(t *testing.T) {
	if _, err := ParseBodyDefinition([]byte("tissues: {oops")); err == nil {
		t.Errorf("expected parse error")
	}
}

func TestLoadBodyDefinition(t *testing.T) {
	d, err := LoadBodyDefinition(filepath.Join("..", "..", "data", "yaml", "humanoid.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	parts, organs := d.CountParts()
	if parts != 9 || organs != 12 || len(d.Tissues) != 7 {
		t.Errorf("humanoid has %d parts, %d organs, %d tissues; want 9, 12, 7", parts, organs, len(d.Tissues))
	}

	_, err = LoadBodyDefinition(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "missing.yaml") {
		t.Errorf("missing file error = %v", err)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("body: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadBodyDefinition(bad); err == nil {
		t.Errorf("expected parse error for %s", bad)
	}
}
