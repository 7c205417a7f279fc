package body

import (
	"testing"

	"github.com/rmdgo/anatomy/internal/data"
)

func bone(w float64) data.TissueRef { return data.TissueRef{Tissue: "BONE", HitProb: w} }

func organ(id, connector string, refs ...data.TissueRef) data.OrganDef {
	if len(refs) == 0 {
		refs = []data.TissueRef{bone(1)}
	}
	return data.OrganDef{
		ID:        id,
		Name:      id,
		Surface:   0.5,
		Connector: connector,
		Tissue:    data.OrganTissues{Tissues: refs},
	}
}

func tissues() []data.TissueDef {
	return []data.TissueDef{
		{ID: "BONE", Name: "Bone", Pain: 0.5, BloodFlow: 0.1, Resistance: 0.9, Impairment: 0.7},
		{ID: "MUSCLE", Name: "Muscle", Pain: 0.3, BloodFlow: 0.4, Resistance: 0.3, Impairment: 0.5},
		{ID: "SKIN", Name: "Skin", Pain: 0.6, BloodFlow: 0.2, Resistance: 0.1, Impairment: 0.1},
	}
}

// humanoid declares:
//
//	BODY
//	  TORSO: CHEST(root) ABDOMEN->CHEST
//	  HEAD: NECK->CHEST SKULL->NECK
//	  LEFT_ARM
//	    LEFT_UPPER: L_UPPER_ARM->CHEST
//	    LEFT_HAND: L_PALM->L_UPPER_ARM L_FINGER->L_PALM
//	  RIGHT_LEG: R_THIGH(root) R_FOOT->R_THIGH
func humanoid() *data.BodyDefinition {
	return &data.BodyDefinition{
		Name:    "humanoid",
		Tissues: tissues(),
		Body: data.PartDef{
			ID: "BODY", Name: "Body", Surface: 1,
			Parts: []data.PartDef{
				{ID: "TORSO", Name: "Torso", Surface: 0.4, Organs: []data.OrganDef{
					organ("CHEST", data.RootConnector),
					organ("ABDOMEN", "CHEST"),
				}},
				{ID: "HEAD", Name: "Head", Surface: 0.1, Organs: []data.OrganDef{
					organ("NECK", "CHEST"),
					organ("SKULL", "NECK"),
				}},
				{ID: "LEFT_ARM", Name: "Left Arm", Surface: 0.2, Parts: []data.PartDef{
					{ID: "LEFT_UPPER", Name: "Left Upper Arm", Surface: 0.6, Organs: []data.OrganDef{
						organ("L_UPPER_ARM", "CHEST"),
					}},
					{ID: "LEFT_HAND", Name: "Left Hand", Surface: 0.4, Organs: []data.OrganDef{
						organ("L_PALM", "L_UPPER_ARM"),
						organ("L_FINGER", "L_PALM"),
					}},
				}},
				{ID: "RIGHT_LEG", Name: "Right Leg", Surface: 0.3, Organs: []data.OrganDef{
					organ("R_THIGH", "ROOT"),
					organ("R_FOOT", "R_THIGH"),
				}},
			},
		},
	}
}

func mustBuild(t *testing.T, def *data.BodyDefinition) *Body {
	t.Helper()
	b, err := Build(def, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return b
}

func mustGet(t *testing.T, b *Body, logical string) *Part {
	t.Helper()
	p := b.GetByLogicalID(logical)
	if p == nil {
		t.Fatalf("part %s not found", logical)
	}
	return p
}

func mustValidate(t *testing.T, b *Body) {
	t.Helper()
	if err := b.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func liveLogicalIDs(b *Body) map[string]bool {
	out := map[string]bool{}
	b.Each(func(p *Part, _ int) { out[p.LogicalID] = true })
	return out
}
