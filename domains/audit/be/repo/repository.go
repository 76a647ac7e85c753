package repo

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/veritest-io/veritest-saas/platform/go/firestoredb"
)

// Comment is a stored defect comment.
type Comment struct {
	ID        string
	Body      string
	AuthorID  string
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// HistoryEntry is one append-only audit record of a defect transition.
type HistoryEntry struct {
	ID         string
	Field      string
	OldValue   string
	NewValue   string
	ActorID    string
	OccurredAt time.Time
}

// Repository reads a defect's audit trail. Both sub-collections are written
// only by the backend authority.
type Repository interface {
	ListComments(ctx context.Context, organizationID, projectID, defectID string) ([]Comment, error)
	ListHistory(ctx context.Context, organizationID, projectID, defectID string) ([]HistoryEntry, error)
}

type firestoreRepository struct {
	fs *firestore.Client
}

// NewFirestoreRepository constructs the Firestore-backed audit trail repository.
func NewFirestoreRepository(fs *firestore.Client) Repository {
	if fs == nil {
		panic("firestore client is required")
	}

	return &firestoreRepository{fs: fs}
}

func (r *firestoreRepository) ListComments(ctx context.Context, organizationID, projectID, defectID string) ([]Comment, error) {
	path := firestoredb.CommentsPath(organizationID, projectID, defectID)
	iter := r.fs.Collection(path).OrderBy("createdAt", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var comments []Comment
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, firestoredb.WrapStoreError("list comments", err)
		}

		var doc firestoredb.CommentDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, firestoredb.WrapStoreError("decode comment", err)
		}
		comments = append(comments, Comment{
			ID:        snap.Ref.ID,
			Body:      doc.Body,
			AuthorID:  doc.AuthorID,
			CreatedAt: doc.CreatedAt,
			UpdatedAt: doc.UpdatedAt,
		})
	}

	return comments, nil
}

func (r *firestoreRepository) ListHistory(ctx context.Context, organizationID, projectID, defectID string) ([]HistoryEntry, error) {
	path := firestoredb.HistoryPath(organizationID, projectID, defectID)
	iter := r.fs.Collection(path).OrderBy("occurredAt", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	var entries []HistoryEntry
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, firestoredb.WrapStoreError("list history", err)
		}

		var doc firestoredb.HistoryDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, firestoredb.WrapStoreError("decode history entry", err)
		}
		entries = append(entries, HistoryEntry{
			ID:         snap.Ref.ID,
			Field:      doc.Field,
			OldValue:   doc.OldValue,
			NewValue:   doc.NewValue,
			ActorID:    doc.ActorID,
			OccurredAt: doc.OccurredAt,
		})
	}

	return entries, nil
}
