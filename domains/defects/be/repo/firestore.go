package repo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/veritest-io/veritest-saas/platform/go/firestoredb"
)

type firestoreRepository struct {
	fs *firestore.Client
}

// NewFirestoreRepository constructs the Firestore-backed defect repository.
func NewFirestoreRepository(fs *firestore.Client) Repository {
	if fs == nil {
		panic("firestore client is required")
	}

	return &firestoreRepository{fs: fs}
}

func (r *firestoreRepository) ListByProject(ctx context.Context, organizationID, projectID string, params ListParams) (ListResult, error) {
	q := r.fs.Collection(firestoredb.DefectsPath(organizationID, projectID)).Query
	return r.list(ctx, q, params)
}

// ListByOrganization spans all projects via a collection-group query. Scoping
// rests entirely on the stamped organizationId field; the write path must
// never skip it.
func (r *firestoreRepository) ListByOrganization(ctx context.Context, organizationID string, params ListParams) (ListResult, error) {
	q := r.fs.CollectionGroup(firestoredb.DefectsCollection).
		Where(firestoredb.TenantField, "==", organizationID)
	return r.list(ctx, q, params)
}

func (r *firestoreRepository) list(ctx context.Context, q firestore.Query, params ListParams) (ListResult, error) {
	q = applyFilter(q, params.Filter)

	dir := firestore.Asc
	if params.Descending {
		dir = firestore.Desc
	}
	// Document id as the secondary order makes ties stable without promising
	// callers anything about the order within a tie.
	q = q.OrderBy(params.OrderField, dir).OrderBy(firestore.DocumentID, firestore.Asc)

	if params.Cursor != "" {
		cursor, err := firestoredb.DecodeCursor(params.Cursor, params.OrderField)
		if err != nil {
			return ListResult{}, err
		}
		// The DocumentID tie-break position must be a DocumentRef; a raw
		// string would be resolved relative to the query path.
		docRef, err := cursorDocRef(r.fs, cursor.DocPath)
		if err != nil {
			return ListResult{}, err
		}
		q = q.StartAfter(cursor.SortValue, docRef)
	}

	q = q.Limit(params.PageSize)

	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return ListResult{}, firestoredb.WrapStoreError("list defects", err)
	}

	records := make([]Record, 0, len(snaps))
	for _, snap := range snaps {
		var doc firestoredb.DefectDoc
		if err := snap.DataTo(&doc); err != nil {
			return ListResult{}, firestoredb.WrapStoreError("decode defect", err)
		}
		records = append(records, Record{ID: snap.Ref.ID, Doc: doc})
	}

	result := ListResult{Records: records}
	if len(snaps) == params.PageSize {
		last := snaps[len(snaps)-1]
		sortValue, err := orderFieldValue(last, params.OrderField)
		if err != nil {
			return ListResult{}, err
		}
		result.NextCursor = firestoredb.Cursor{
			OrderField: params.OrderField,
			SortValue:  sortValue,
			DocPath:    last.Ref.Path,
		}.Encode()
	}

	return result, nil
}

// cursorDocRef rebuilds the continuation document from the full resource
// path stored in the token. A token whose path cannot be parsed is a client
// error, not a store error.
func cursorDocRef(fs *firestore.Client, path string) (*firestore.DocumentRef, error) {
	ref := fs.DocFromFullPath(path)
	if ref == nil {
		return nil, firestoredb.ErrInvalidCursor
	}
	return ref, nil
}

func orderFieldValue(snap *firestore.DocumentSnapshot, field string) (time.Time, error) {
	v, err := snap.DataAt(field)
	if err != nil {
		return time.Time{}, firestoredb.WrapStoreError("read cursor field", err)
	}
	at, ok := v.(time.Time)
	if !ok {
		return time.Time{}, firestoredb.WrapStoreError("read cursor field",
			fmt.Errorf("field %s is not a timestamp", field))
	}
	return at, nil
}

func applyFilter(q firestore.Query, f Filter) firestore.Query {
	if f.FolderID != "" {
		q = q.Where("folderId", "==", f.FolderID)
	}
	if f.Status != "" {
		q = q.Where("status", "==", f.Status)
	}
	if f.Severity != "" {
		q = q.Where("severity", "==", f.Severity)
	}
	if f.Priority != "" {
		q = q.Where("priority", "==", f.Priority)
	}
	if f.AssignedTo != "" {
		q = q.Where("assignedTo", "==", f.AssignedTo)
	}
	return q
}

func (r *firestoreRepository) Get(ctx context.Context, organizationID, projectID, defectID string) (Record, error) {
	snap, err := r.fs.Doc(firestoredb.DefectPath(organizationID, projectID, defectID)).Get(ctx)
	if err != nil {
		if firestoredb.IsNotFound(err) {
			return Record{}, ErrNotFound
		}
		return Record{}, firestoredb.WrapStoreError("get defect", err)
	}

	var doc firestoredb.DefectDoc
	if err := snap.DataTo(&doc); err != nil {
		return Record{}, firestoredb.WrapStoreError("decode defect", err)
	}

	return Record{ID: snap.Ref.ID, Doc: doc}, nil
}

func (r *firestoreRepository) Patch(ctx context.Context, organizationID, projectID, defectID string, fields map[string]interface{}) (Record, error) {
	if len(fields) == 0 {
		return r.Get(ctx, organizationID, projectID, defectID)
	}

	updates := make([]firestore.Update, 0, len(fields))
	paths := make([]string, 0, len(fields))
	for path := range fields {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		updates = append(updates, firestore.Update{Path: path, Value: fields[path]})
	}

	ref := r.fs.Doc(firestoredb.DefectPath(organizationID, projectID, defectID))
	if _, err := ref.Update(ctx, updates); err != nil {
		if firestoredb.IsNotFound(err) {
			return Record{}, ErrNotFound
		}
		return Record{}, firestoredb.WrapStoreError("patch defect", err)
	}

	return r.Get(ctx, organizationID, projectID, defectID)
}
