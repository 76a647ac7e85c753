package firestoredb

import "time"

// DefectDoc is the Firestore representation of a defect. The organizationId
// field is stamped on every write; the tenant-wide collection-group listing
// has no other way to prove scoping.
type DefectDoc struct {
	Key              string     `firestore:"key"`
	Title            string     `firestore:"title"`
	Description      string     `firestore:"description"`
	Severity         string     `firestore:"severity"`
	Priority         string     `firestore:"priority"`
	Status           string     `firestore:"status"`
	OrganizationID   string     `firestore:"organizationId"`
	ProjectID        string     `firestore:"projectId"`
	FolderID         *string    `firestore:"folderId"`
	AssignedTo       string     `firestore:"assignedTo,omitempty"`
	RaisedBy         string     `firestore:"raisedBy,omitempty"`
	Environment      string     `firestore:"environment,omitempty"`
	Browser          string     `firestore:"browser,omitempty"`
	OperatingSystem  string     `firestore:"operatingSystem,omitempty"`
	StepsToReproduce string     `firestore:"stepsToReproduce,omitempty"`
	ExpectedBehavior string     `firestore:"expectedBehavior,omitempty"`
	ActualBehavior   string     `firestore:"actualBehavior,omitempty"`
	CreatedAt        time.Time  `firestore:"createdAt"`
	UpdatedAt        time.Time  `firestore:"updatedAt"`
	UpdatedBy        string     `firestore:"updatedBy,omitempty"`
	ArchivedAt       *time.Time `firestore:"archivedAt"`
}

// CommentDoc is a defect comment. Mutations go through the backend authority
// so notification fan-out stays consistent; this layer only reads them.
type CommentDoc struct {
	Body      string     `firestore:"body"`
	AuthorID  string     `firestore:"authorId"`
	CreatedAt time.Time  `firestore:"createdAt"`
	UpdatedAt *time.Time `firestore:"updatedAt"`
}

// HistoryDoc is one append-only audit entry for a defect state transition.
// Entries are written by the backend authority, never by client code.
type HistoryDoc struct {
	Field      string    `firestore:"field"`
	OldValue   string    `firestore:"oldValue"`
	NewValue   string    `firestore:"newValue"`
	ActorID    string    `firestore:"actorId"`
	OccurredAt time.Time `firestore:"occurredAt"`
}

// RefValueDoc is a single taxonomy value. Seeded tenant defaults reuse the
// global document ids, which is what makes initialization idempotent under
// racing first page loads.
type RefValueDoc struct {
	Label string `firestore:"label"`
	Order int    `firestore:"order"`
}
