// Package index builds lookup maps from CIM association instances.
//
// Association classes name both ends of a relationship by role (Antecedent,
// Dependent, GroupComponent, ...). The functions here pick a source and a
// target role and fold the records into per-source collections.
package index

import (
	"smiscope/internal/domain"
)

// Associations extracts source/target pairs from raw association records.
// Records missing either reference are skipped.
func Associations(records []domain.RawEntityRecord, sourceRole, targetRole string, kind domain.AssociationKind) []domain.AssociationRecord {
	out := make([]domain.AssociationRecord, 0, len(records))
	for _, rec := range records {
		src := rec.Ref(sourceRole)
		dst := rec.Ref(targetRole)
		if src.IsZero() || dst.IsZero() {
			continue
		}
		out = append(out, domain.AssociationRecord{
			Kind:       kind,
			Source:     src,
			Target:     dst,
			Attributes: rec.Attributes,
		})
	}
	return out
}

// Many is a one-to-many index. Sources lists each source once, in the
// order it first appeared.
type Many struct {
	Sources []domain.Reference
	Targets map[domain.Reference][]domain.Reference
}

// Len returns the number of sources
func (m Many) Len() int {
	return len(m.Sources)
}

// OneToMany accumulates every target under its source
func OneToMany(records []domain.RawEntityRecord, sourceRole, targetRole string) Many {
	return GroupMany(Associations(records, sourceRole, targetRole, domain.AssociationOneToMany))
}

// OneToOne keeps only the last target seen for each source.
// Sources that really have several targets lose all but the last one.
func OneToOne(records []domain.RawEntityRecord, sourceRole, targetRole string) map[domain.Reference]domain.Reference {
	return GroupOne(Associations(records, sourceRole, targetRole, domain.AssociationOneToOne))
}

// Unique drops repeated source/target pairs, keeping the first record of each
func Unique(assocs []domain.AssociationRecord) []domain.AssociationRecord {
	out := make([]domain.AssociationRecord, 0, len(assocs))
	seen := make(map[[2]domain.Reference]struct{}, len(assocs))
	for _, a := range assocs {
		if a.Source.IsZero() || a.Target.IsZero() {
			continue
		}
		pair := [2]domain.Reference{a.Source, a.Target}
		if _, dup := seen[pair]; dup {
			continue
		}
		seen[pair] = struct{}{}
		out = append(out, a)
	}
	return out
}

// GroupMany folds associations into source -> targets, preserving record order
// and ignoring repeated pairs.
func GroupMany(assocs []domain.AssociationRecord) Many {
	m := Many{Targets: make(map[domain.Reference][]domain.Reference)}
	for _, a := range Unique(assocs) {
		if _, ok := m.Targets[a.Source]; !ok {
			m.Sources = append(m.Sources, a.Source)
		}
		m.Targets[a.Source] = append(m.Targets[a.Source], a.Target)
	}
	return m
}

// GroupOne folds associations into source -> target with last-write-wins
func GroupOne(assocs []domain.AssociationRecord) map[domain.Reference]domain.Reference {
	out := make(map[domain.Reference]domain.Reference)
	for _, a := range assocs {
		if a.Source.IsZero() || a.Target.IsZero() {
			continue
		}
		out[a.Source] = a.Target
	}
	return out
}

// Chain joins two association sets that share a source, yielding
// left.Target -> right.Target for every left whose source has a right.
// AuthorizedSubject (privilege -> hardware id) chained with AuthorizedTarget
// (privilege -> controller) gives hardware id -> controller.
func Chain(left, right []domain.AssociationRecord, kind domain.AssociationKind) []domain.AssociationRecord {
	byShared := GroupMany(right)
	var out []domain.AssociationRecord
	for _, l := range left {
		for _, target := range byShared.Targets[l.Source] {
			out = append(out, domain.AssociationRecord{
				Kind:   kind,
				Source: l.Target,
				Target: target,
			})
		}
	}
	return out
}
