// Package merge deterministically combines normalized results from
// different ingestion paths. Merge order for overlapping plans is fixed by
// the caller (log pipeline first, archive members in path order); for
// disjoint plans the outcome is order independent.
package merge

import (
	"github.com/mnecas/forklift-log-inspector-sub000/internal/domain"
)

// Results merges two normalized results. Either side may be nil; both nil
// yields an empty result.
func Results(a, b *domain.Result) *domain.Result {
	switch {
	case a == nil && b == nil:
		return domain.EmptyResult()
	case a == nil:
		return b
	case b == nil:
		return a
	}

	out := &domain.Result{}

	seen := make(map[string]*domain.Plan)
	for _, p := range a.Plans {
		seen[p.Key()] = p
		out.Plans = append(out.Plans, p)
	}
	for _, p := range b.Plans {
		if existing, ok := seen[p.Key()]; ok {
			mergePlans(existing, p)
			continue
		}
		seen[p.Key()] = p
		out.Plans = append(out.Plans, p)
	}

	out.Events = append(out.Events, a.Events...)
	out.Events = append(out.Events, b.Events...)
	out.SortEvents()

	out.Stats = a.Stats
	out.Stats.Add(b.Stats)

	out.NetworkMaps = mergeMaps(a.NetworkMaps, b.NetworkMaps)
	out.StorageMaps = mergeMaps(a.StorageMaps, b.StorageMaps)

	// Summary is recomputed, never summed: overlapping plans must not be
	// counted twice.
	out.Recount()
	return out
}

// mergePlans merges o into p in place, then ensures p is the base side:
// the base is whichever plan holds at least one VM not sourced from the
// YAML path. Enrichment fills absent fields only.
func mergePlans(p, o *domain.Plan) {
	base, other := p, o
	if !hasLogVM(p) && hasLogVM(o) {
		base, other = o, p
	}

	enrichPlan(base, other)

	if base != p {
		// Caller keeps p's identity in its plan list; copy the merged
		// content over.
		*p = *base
	}
}

func hasLogVM(p *domain.Plan) bool {
	for _, vm := range p.VMs {
		if vm.Source != domain.SourceYAML {
			return true
		}
	}
	return false
}

// enrichPlan fills fields absent on the base from the other side. Archived
// is OR'd; status is upgraded only from an inconclusive state.
func enrichPlan(base, other *domain.Plan) {
	if base.Spec == nil {
		base.Spec = other.Spec
	}
	if base.MigrationID == "" {
		base.MigrationID = other.MigrationID
	}
	if base.FirstSeen == "" || (other.FirstSeen != "" && other.FirstSeen < base.FirstSeen) {
		base.FirstSeen = other.FirstSeen
	}
	if other.LastSeen > base.LastSeen {
		base.LastSeen = other.LastSeen
	}

	base.Archived = base.Archived || other.Archived

	if base.Status.Inconclusive() && !other.Status.Inconclusive() {
		base.Status = other.Status
	}

	for _, cond := range other.Conditions {
		if !base.HasCondition(cond.Type) {
			base.Conditions = append(base.Conditions, cond)
		}
	}

	if base.VMs == nil {
		base.VMs = make(map[string]*domain.VM)
	}
	for id, vm := range other.VMs {
		if existing, ok := base.VMs[id]; ok {
			enrichVM(existing, vm)
			continue
		}
		base.VMs[id] = vm
	}

	if len(base.Errors) == 0 {
		base.Errors = other.Errors
	}
	if len(base.Panics) == 0 {
		base.Panics = other.Panics
	}
}

// enrichVM fills optional metadata only. Phase history and phase logs are
// never merged across sources: the base side's observed timeline wins
// wholesale.
func enrichVM(base, other *domain.VM) {
	if base.Name == "" {
		base.Name = other.Name
	}
	if base.MigrationType == domain.MigrationTypeUnknown {
		base.MigrationType = other.MigrationType
	}
	if base.CurrentPhase == "" {
		base.CurrentPhase = other.CurrentPhase
	}
	if base.Warm == nil {
		base.Warm = other.Warm
	}
	if base.Started == "" {
		base.Started = other.Started
	}
	if base.Completed == "" {
		base.Completed = other.Completed
	}
}

// mergeMaps concatenates map-resource lists, deduplicated by
// (namespace, name), first occurrence wins.
func mergeMaps(a, b []domain.MapResource) []domain.MapResource {
	out := append([]domain.MapResource{}, a...)
	for _, m := range b {
		dup := false
		for _, existing := range out {
			if existing.Namespace == m.Namespace && existing.Name == m.Name {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, m)
		}
	}
	return out
}
