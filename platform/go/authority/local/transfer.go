package local

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/veritest-io/veritest-saas/platform/go/authority"
	"github.com/veritest-io/veritest-saas/platform/go/firestoredb"
	"github.com/veritest-io/veritest-saas/platform/go/taxonomy"
)

func (a *Authority) ExportDefects(ctx context.Context, req authority.ExportRequest) (authority.ExportResult, error) {
	if req.Format != "json" && req.Format != "csv" {
		return authority.ExportResult{}, &authority.AuthorityError{
			Function: authority.FnExportDefects,
			Status:   "INVALID_ARGUMENT",
			Message:  fmt.Sprintf("unsupported export format %q", req.Format),
		}
	}

	var q firestore.Query
	if req.ProjectID != nil {
		q = a.fs.Collection(firestoredb.DefectsPath(req.OrganizationID, *req.ProjectID)).Query
	} else {
		q = a.fs.CollectionGroup(firestoredb.DefectsCollection).
			Where(firestoredb.TenantField, "==", req.OrganizationID)
	}
	q = applyFilter(q, req.Filter)

	var docs []firestoredb.DefectDoc
	iter := q.Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return authority.ExportResult{}, &authority.AuthorityError{Function: authority.FnExportDefects, Err: err}
		}

		var doc firestoredb.DefectDoc
		if err := snap.DataTo(&doc); err != nil {
			return authority.ExportResult{}, &authority.AuthorityError{Function: authority.FnExportDefects, Err: err}
		}
		docs = append(docs, doc)
	}

	content, contentType, err := renderExport(docs, req.Format)
	if err != nil {
		return authority.ExportResult{}, &authority.AuthorityError{Function: authority.FnExportDefects, Err: err}
	}

	return authority.ExportResult{
		FileName:    fmt.Sprintf("defects-%s.%s", time.Now().UTC().Format("20060102-150405"), req.Format),
		ContentType: contentType,
		Content:     content,
		RecordCount: len(docs),
	}, nil
}

func applyFilter(q firestore.Query, f authority.Filter) firestore.Query {
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

func renderExport(docs []firestoredb.DefectDoc, format string) ([]byte, string, error) {
	switch format {
	case "json":
		content, err := json.MarshalIndent(docs, "", "  ")
		if err != nil {
			return nil, "", fmt.Errorf("encode export: %w", err)
		}
		return content, "application/json", nil
	case "csv":
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		header := []string{"key", "title", "severity", "priority", "status", "projectId", "assignedTo", "createdAt", "updatedAt", "archived"}
		if err := w.Write(header); err != nil {
			return nil, "", fmt.Errorf("write csv header: %w", err)
		}
		for _, d := range docs {
			row := []string{
				d.Key, d.Title, d.Severity, d.Priority, d.Status, d.ProjectID, d.AssignedTo,
				d.CreatedAt.Format(time.RFC3339),
				d.UpdatedAt.Format(time.RFC3339),
				strconv.FormatBool(d.ArchivedAt != nil),
			}
			if err := w.Write(row); err != nil {
				return nil, "", fmt.Errorf("write csv row: %w", err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, "", fmt.Errorf("flush csv: %w", err)
		}
		return buf.Bytes(), "text/csv", nil
	}
	return nil, "", fmt.Errorf("unsupported format %q", format)
}

func (a *Authority) ImportDefects(ctx context.Context, organizationID, projectID string, records []authority.DefectPayload, dryRun bool) (authority.ImportReport, error) {
	severities, err := a.refValueSet(ctx, organizationID, taxonomy.Severity)
	if err != nil {
		return authority.ImportReport{}, &authority.AuthorityError{Function: authority.FnImportDefects, Err: err}
	}
	priorities, err := a.refValueSet(ctx, organizationID, taxonomy.Priority)
	if err != nil {
		return authority.ImportReport{}, &authority.AuthorityError{Function: authority.FnImportDefects, Err: err}
	}
	statuses, err := a.refValueSet(ctx, organizationID, taxonomy.Status)
	if err != nil {
		return authority.ImportReport{}, &authority.AuthorityError{Function: authority.FnImportDefects, Err: err}
	}

	report := authority.ImportReport{DryRun: dryRun}
	for i, record := range records {
		reasons := a.validateRecord(record)
		if record.Severity != "" && len(severities) > 0 && !severities[record.Severity] {
			reasons = append(reasons, fmt.Sprintf("severity %q is not a known reference value", record.Severity))
		}
		if record.Priority != "" && len(priorities) > 0 && !priorities[record.Priority] {
			reasons = append(reasons, fmt.Sprintf("priority %q is not a known reference value", record.Priority))
		}
		if record.Status != "" && len(statuses) > 0 && !statuses[record.Status] {
			reasons = append(reasons, fmt.Sprintf("status %q is not a known reference value", record.Status))
		}

		if len(reasons) > 0 {
			report.Rejected = append(report.Rejected, authority.RejectedRecord{Index: i, Reasons: reasons})
			continue
		}

		accepted := authority.AcceptedRecord{Index: i}
		if !dryRun {
			created, createErr := a.createDefect(ctx, organizationID, projectID, record)
			if createErr != nil {
				return authority.ImportReport{}, &authority.AuthorityError{Function: authority.FnImportDefects, Err: createErr}
			}
			accepted.Key = created.Doc.Key
		}
		report.Accepted = append(report.Accepted, accepted)
	}

	return report, nil
}
