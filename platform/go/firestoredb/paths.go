// Package firestoredb holds the shared Firestore plumbing for the defect data
// layer: collection path construction, opaque pagination cursors, and store
// error classification. Domain repositories build queries on top of it.
package firestoredb

import "fmt"

// Collection names. The same names are used by the backend authority functions,
// so they must not change without a coordinated migration.
const (
	OrganizationsCollection = "organizations"
	ProjectsCollection      = "projects"
	DefectsCollection       = "defects"
	CommentsCollection      = "comments"
	HistoryCollection       = "history"
	RefValuesCollection     = "ref_values"
	ValuesCollection        = "values"
)

// TenantField is the organization id stamped on every defect document.
// Collection-group queries rely on it for tenant scoping; there is no other
// proof of isolation on the aggregate path.
const TenantField = "organizationId"

// DefectsPath returns the defects collection path for one project.
func DefectsPath(organizationID, projectID string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s",
		OrganizationsCollection, organizationID, ProjectsCollection, projectID, DefectsCollection)
}

// DefectPath returns the document path of a single defect.
func DefectPath(organizationID, projectID, defectID string) string {
	return DefectsPath(organizationID, projectID) + "/" + defectID
}

// CommentsPath returns the comments sub-collection path of a defect.
func CommentsPath(organizationID, projectID, defectID string) string {
	return DefectPath(organizationID, projectID, defectID) + "/" + CommentsCollection
}

// HistoryPath returns the history sub-collection path of a defect.
func HistoryPath(organizationID, projectID, defectID string) string {
	return DefectPath(organizationID, projectID, defectID) + "/" + HistoryCollection
}

// TenantRefValuesPath returns the organization-scoped values collection for a taxonomy.
func TenantRefValuesPath(organizationID, taxonomy string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s",
		OrganizationsCollection, organizationID, RefValuesCollection, taxonomy, ValuesCollection)
}

// GlobalRefValuesPath returns the process-wide seed values collection for a taxonomy.
func GlobalRefValuesPath(taxonomy string) string {
	return fmt.Sprintf("%s/%s/%s", RefValuesCollection, taxonomy, ValuesCollection)
}
