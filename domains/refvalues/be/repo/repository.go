package repo

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/veritest-io/veritest-saas/platform/go/firestoredb"
	"github.com/veritest-io/veritest-saas/platform/go/taxonomy"
)

// Value is one reference value as stored, ordered by its seed order.
type Value struct {
	ID    string
	Label string
	Order int
}

// Repository exposes the two lookups the resolver is a pure function over.
type Repository interface {
	TenantValues(ctx context.Context, organizationID string, t taxonomy.Type) ([]Value, error)
	GlobalValues(ctx context.Context, t taxonomy.Type) ([]Value, error)
}

type firestoreRepository struct {
	fs *firestore.Client
}

// NewFirestoreRepository constructs the Firestore-backed reference value repository.
func NewFirestoreRepository(fs *firestore.Client) Repository {
	if fs == nil {
		panic("firestore client is required")
	}

	return &firestoreRepository{fs: fs}
}

func (r *firestoreRepository) TenantValues(ctx context.Context, organizationID string, t taxonomy.Type) ([]Value, error) {
	return r.values(ctx, firestoredb.TenantRefValuesPath(organizationID, string(t)))
}

func (r *firestoreRepository) GlobalValues(ctx context.Context, t taxonomy.Type) ([]Value, error) {
	return r.values(ctx, firestoredb.GlobalRefValuesPath(string(t)))
}

func (r *firestoreRepository) values(ctx context.Context, path string) ([]Value, error) {
	iter := r.fs.Collection(path).OrderBy("order", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var values []Value
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, firestoredb.WrapStoreError("list reference values", err)
		}

		var doc firestoredb.RefValueDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, firestoredb.WrapStoreError("decode reference value", err)
		}
		values = append(values, Value{ID: snap.Ref.ID, Label: doc.Label, Order: doc.Order})
	}

	return values, nil
}
