// Package taxonomy names the configurable reference-value sets used to
// classify defects, plus the process-wide seed defaults. Tenant overrides
// shadow these wholesale; they are never merged.
package taxonomy

// Type identifies one reference-value set.
type Type string

const (
	Status          Type = "status"
	Severity        Type = "severity"
	Priority        Type = "priority"
	Reproducibility Type = "reproducibility"
	Resolution      Type = "resolution"
)

// All lists every taxonomy type, in seed order.
var All = []Type{Status, Severity, Priority, Reproducibility, Resolution}

// Valid reports whether t names a known taxonomy.
func Valid(t Type) bool {
	switch t {
	case Status, Severity, Priority, Reproducibility, Resolution:
		return true
	}
	return false
}

// Status sentinels. DefaultStatusID is stamped on creation when the caller
// supplies none; ArchivedStatusID is the terminal soft-delete state.
const (
	DefaultStatusID  = "new"
	ArchivedStatusID = "archived"
)

// SeedValue is one global default. The id doubles as the document id when a
// tenant is initialized, which keeps initialization idempotent under races.
type SeedValue struct {
	ID    string
	Label string
	Order int
}

// Defaults returns the global seed set for a taxonomy. Callers get a fresh
// slice and may not rely on mutation being visible elsewhere.
func Defaults(t Type) []SeedValue {
	switch t {
	case Status:
		return []SeedValue{
			{ID: "new", Label: "New", Order: 1},
			{ID: "open", Label: "Open", Order: 2},
			{ID: "in-progress", Label: "In Progress", Order: 3},
			{ID: "fixed", Label: "Fixed", Order: 4},
			{ID: "closed", Label: "Closed", Order: 5},
			{ID: "archived", Label: "Archived", Order: 6},
		}
	case Severity:
		return []SeedValue{
			{ID: "critical", Label: "Critical", Order: 1},
			{ID: "high", Label: "High", Order: 2},
			{ID: "medium", Label: "Medium", Order: 3},
			{ID: "low", Label: "Low", Order: 4},
		}
	case Priority:
		return []SeedValue{
			{ID: "p1", Label: "P1", Order: 1},
			{ID: "p2", Label: "P2", Order: 2},
			{ID: "p3", Label: "P3", Order: 3},
			{ID: "p4", Label: "P4", Order: 4},
		}
	case Reproducibility:
		return []SeedValue{
			{ID: "always", Label: "Always", Order: 1},
			{ID: "sometimes", Label: "Sometimes", Order: 2},
			{ID: "rarely", Label: "Rarely", Order: 3},
			{ID: "unable", Label: "Unable to Reproduce", Order: 4},
		}
	case Resolution:
		return []SeedValue{
			{ID: "fixed", Label: "Fixed", Order: 1},
			{ID: "duplicate", Label: "Duplicate", Order: 2},
			{ID: "wont-fix", Label: "Won't Fix", Order: 3},
			{ID: "not-a-bug", Label: "Not a Bug", Order: 4},
		}
	}
	return nil
}
