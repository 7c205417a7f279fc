package body

import (
	"fmt"

	"github.com/rmdgo/anatomy/internal/data"
)

// CompositionEntry is one tissue inside one organ. Weight is the relative
// hit weight of the tissue within the organ; weights need not sum to 1.
type CompositionEntry struct {
	Tissue      *Tissue
	Weight      float64
	DisplayName string // empty = tissue name
	DisplayID   string // empty = tissue id
}

// Name returns the name shown for this entry.
func (e CompositionEntry) Name() string {
	if e.DisplayName != "" {
		return e.DisplayName
	}
	return e.Tissue.Name
}

// ID returns the id code refers to this entry by.
func (e CompositionEntry) ID() string {
	if e.DisplayID != "" {
		return e.DisplayID
	}
	return e.Tissue.ID
}

// Mirror expands a declared composition into the palindrome
// [t0 .. t(n-2), t(n-1), t(n-2) .. t0]. The last declared entry is the
// unpaired central one.
func Mirror(entries []CompositionEntry) []CompositionEntry {
	n := len(entries)
	if n == 0 {
		return nil
	}
	out := make([]CompositionEntry, 0, 2*n-1)
	out = append(out, entries...)
	for j := n - 2; j >= 0; j-- {
		out = append(out, entries[j])
	}
	return out
}

// resolveComposition turns an organ tissue block into composition entries,
// applying symmetry expansion.
func resolveComposition(c *Catalog, block data.OrganTissues) ([]CompositionEntry, error) {
	if len(block.Tissues) == 0 {
		return nil, fmt.Errorf("empty organ tissue block: %w", ErrMalformedDefinition)
	}
	entries := make([]CompositionEntry, 0, len(block.Tissues))
	for _, ref := range block.Tissues {
		if !(ref.HitProb >= 0) {
			return nil, fmt.Errorf("tissue %s: negative hit weight: %w", ref.Tissue, ErrMalformedDefinition)
		}
		t, err := c.Resolve(ref.Tissue)
		if err != nil {
			return nil, err
		}
		entries = append(entries, CompositionEntry{
			Tissue:      t,
			Weight:      ref.HitProb,
			DisplayName: ref.Name,
			DisplayID:   ref.CustomID,
		})
	}
	if block.Symmetrical {
		return Mirror(entries), nil
	}
	return entries, nil
}
