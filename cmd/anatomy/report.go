package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/rodaine/table"

	"github.com/rmdgo/anatomy/internal/body"
	"github.com/rmdgo/anatomy/internal/component"
	"github.com/rmdgo/anatomy/internal/core/ecs"
	"github.com/rmdgo/anatomy/internal/system"
)

// writeReport prints a summary table of the creatures, then each surviving
// body's display list followed by a detail table of the inspected parts.
func writeReport(w io.Writer, deps *system.Deps, inspect []string) error {
	summary := table.New("Creature", "Parts", "Removals", "Severity").WithWriter(w)
	ecs.Each2(deps.Creatures, deps.Bodies, func(_ ecs.EntityID, c *component.Creature, g *body.Guarded) {
		summary.AddRow(c.Key, len(g.DisplayList()), c.Removals, fmt.Sprintf("%.1f", c.Severity))
	})
	summary.Print()

	var err error
	ecs.Each2(deps.Creatures, deps.Bodies, func(_ ecs.EntityID, c *component.Creature, g *body.Guarded) {
		if err != nil {
			return
		}
		fmt.Fprintf(w, "\n%s\n", c.Key)
		for _, e := range g.DisplayList() {
			if _, err = fmt.Fprintln(w, e.Text); err != nil {
				return
			}
		}
		if len(inspect) == 0 {
			return
		}
		fmt.Fprintln(w)
		g.With(func(b *body.Body) { writeDetails(w, b, inspect) })
	})
	return err
}

func writeDetails(w io.Writer, b *body.Body, inspect []string) {
	tbl := table.New("Part", "Kind", "Surface", "Absolute", "Container", "Connector", "Connectees", "Tissues").WithWriter(w)
	for _, id := range inspect {
		p := b.GetByLogicalID(id)
		if p == nil {
			tbl.AddRow(id, "severed", "", "", "", "", "", "")
			continue
		}
		d, _ := b.Inspect(p.ID)
		name := d.Name
		if d.Stump {
			name += " (stump)"
		}
		tissues := make([]string, 0, len(d.Tissues))
		for _, t := range d.Tissues {
			tissues = append(tissues, fmt.Sprintf("%s %.2f", t.Name, t.Weight))
		}
		tbl.AddRow(
			name,
			d.Kind,
			fmt.Sprintf("%.2f", d.Surface),
			fmt.Sprintf("%.3f", d.Absolute),
			d.ContainerName,
			d.ConnectorName,
			strings.Join(d.Connectees, ", "),
			strings.Join(tissues, ", "),
		)
	}
	tbl.Print()
}
