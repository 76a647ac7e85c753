package authority

import (
	"time"

	"github.com/veritest-io/veritest-saas/platform/go/firestoredb"
)

// defectWire mirrors firestoredb.DefectDoc with JSON tags for the callable
// protocol. The Firestore struct carries firestore tags only, so the wire
// shape is kept separate.
type defectWire struct {
	Key              string     `json:"key"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Severity         string     `json:"severity"`
	Priority         string     `json:"priority"`
	Status           string     `json:"status"`
	OrganizationID   string     `json:"organizationId"`
	ProjectID        string     `json:"projectId"`
	FolderID         *string    `json:"folderId"`
	AssignedTo       string     `json:"assignedTo,omitempty"`
	RaisedBy         string     `json:"raisedBy,omitempty"`
	Environment      string     `json:"environment,omitempty"`
	Browser          string     `json:"browser,omitempty"`
	OperatingSystem  string     `json:"operatingSystem,omitempty"`
	StepsToReproduce string     `json:"stepsToReproduce,omitempty"`
	ExpectedBehavior string     `json:"expectedBehavior,omitempty"`
	ActualBehavior   string     `json:"actualBehavior,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	UpdatedBy        string     `json:"updatedBy,omitempty"`
	ArchivedAt       *time.Time `json:"archivedAt"`
}

func (w defectWire) toDoc() firestoredb.DefectDoc {
	return firestoredb.DefectDoc{
		Key:              w.Key,
		Title:            w.Title,
		Description:      w.Description,
		Severity:         w.Severity,
		Priority:         w.Priority,
		Status:           w.Status,
		OrganizationID:   w.OrganizationID,
		ProjectID:        w.ProjectID,
		FolderID:         w.FolderID,
		AssignedTo:       w.AssignedTo,
		RaisedBy:         w.RaisedBy,
		Environment:      w.Environment,
		Browser:          w.Browser,
		OperatingSystem:  w.OperatingSystem,
		StepsToReproduce: w.StepsToReproduce,
		ExpectedBehavior: w.ExpectedBehavior,
		ActualBehavior:   w.ActualBehavior,
		CreatedAt:        w.CreatedAt,
		UpdatedAt:        w.UpdatedAt,
		UpdatedBy:        w.UpdatedBy,
		ArchivedAt:       w.ArchivedAt,
	}
}

type commentWire struct {
	Body      string     `json:"body"`
	AuthorID  string     `json:"authorId"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt"`
}

func (w commentWire) toDoc() firestoredb.CommentDoc {
	return firestoredb.CommentDoc{
		Body:      w.Body,
		AuthorID:  w.AuthorID,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}
