// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"github.com/helpfulengineering/matching-engine/pkg/types"
)

// Requirements derives the requirement set from a normalized OKH manifest:
// every manufacturing process and BOM material is a hard requirement; tools
// become optional equipment requirements. Duplicate keys are collapsed,
// first occurrence wins.
func Requirements(m *types.OKHManifest) []types.Requirement {
	var reqs []types.Requirement
	seen := make(map[types.ResourceKey]bool)

	add := func(r types.Requirement) {
		if seen[r.Key()] {
			return
		}
		seen[r.Key()] = true
		reqs = append(reqs, r)
	}

	for _, proc := range m.Processes {
		r := types.Requirement{
			Name:       proc,
			Type:       types.ResourceProcess,
			IsRequired: true,
		}
		// The part envelope constrains every forming process.
		if len(m.Parameters) > 0 {
			r.Parameters = make(map[string]string, len(m.Parameters))
			for k, v := range m.Parameters {
				r.Parameters[k] = v
			}
		}
		add(r)
	}

	for _, entry := range m.BOM {
		if entry.MaterialID == "" {
			continue
		}
		add(types.Requirement{
			Name:       entry.MaterialID,
			Type:       types.ResourceMaterial,
			IsRequired: true,
		})
	}

	for _, tool := range m.Tools {
		add(types.Requirement{
			Name:       tool,
			Type:       types.ResourceEquipment,
			IsRequired: false,
		})
	}

	return reqs
}

// Capabilities derives the capability set from a normalized OKW facility
// record. Each piece of equipment yields a process capability carrying the
// equipment's parameters and limitations, plus an equipment capability under
// the equipment's own name so tool requirements can match. Bare process and
// material lists yield capabilities without parameters.
func Capabilities(f *types.OKWFacility) []types.Capability {
	var caps []types.Capability
	seen := make(map[types.ResourceKey]bool)

	add := func(c types.Capability) {
		c.FacilityID = f.ID
		if seen[c.Key()] {
			return
		}
		seen[c.Key()] = true
		caps = append(caps, c)
	}

	for _, eq := range f.Equipment {
		if eq.Process != "" {
			add(types.Capability{
				Name:        eq.Process,
				Type:        types.ResourceProcess,
				Parameters:  copyMap(eq.Parameters),
				Limitations: copyMap(eq.Limitations),
			})
		}
		if name := NormalizeName(eq.Name); name != "" {
			add(types.Capability{
				Name:        name,
				Type:        types.ResourceEquipment,
				Parameters:  copyMap(eq.Parameters),
				Limitations: copyMap(eq.Limitations),
			})
		}
	}

	for _, proc := range f.Processes {
		add(types.Capability{Name: proc, Type: types.ResourceProcess})
	}

	for _, mat := range f.Materials {
		add(types.Capability{Name: mat, Type: types.ResourceMaterial})
	}

	return caps
}

func copyMap(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
