package local

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/veritest-io/veritest-saas/platform/go/authority"
	"github.com/veritest-io/veritest-saas/platform/go/firestoredb"
)

func testAuthority(t *testing.T) *Authority {
	t.Helper()

	schema, err := compileRecordSchema()
	require.NoError(t, err)
	return &Authority{schema: schema}
}

func TestValidateRecordAcceptsCompletePayload(t *testing.T) {
	t.Parallel()

	a := testAuthority(t)
	reasons := a.validateRecord(authority.DefectPayload{
		Title:       "Login fails",
		Description: "<p>click login, nothing happens</p>",
		Severity:    "high",
		Priority:    "p1",
	})
	require.Empty(t, reasons)
}

func TestValidateRecordRejectsMissingRequiredFields(t *testing.T) {
	t.Parallel()

	a := testAuthority(t)
	reasons := a.validateRecord(authority.DefectPayload{
		Title:    "",
		Severity: "high",
	})
	require.NotEmpty(t, reasons)
}

func TestValidateRecordRejectsEmptyDescription(t *testing.T) {
	t.Parallel()

	a := testAuthority(t)
	reasons := a.validateRecord(authority.DefectPayload{
		Title:       "Login fails",
		Description: "",
		Severity:    "high",
		Priority:    "p1",
	})
	require.NotEmpty(t, reasons)
}

func TestRenderExportJSON(t *testing.T) {
	t.Parallel()

	content, contentType, err := renderExport([]firestoredb.DefectDoc{{
		Key:       "PROJ1-1",
		Title:     "Login fails",
		Severity:  "high",
		Priority:  "p1",
		Status:    "new",
		ProjectID: "proj-1",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}}, "json")
	require.NoError(t, err)
	require.Equal(t, "application/json", contentType)
	require.Contains(t, string(content), "PROJ1-1")
}

func TestRenderExportCSV(t *testing.T) {
	t.Parallel()

	archivedAt := time.Now().UTC()
	content, contentType, err := renderExport([]firestoredb.DefectDoc{{
		Key:        "PROJ1-2",
		Title:      "Broken chart",
		Severity:   "low",
		Priority:   "p3",
		Status:     "archived",
		ProjectID:  "proj-1",
		CreatedAt:  archivedAt,
		UpdatedAt:  archivedAt,
		ArchivedAt: &archivedAt,
	}}, "csv")
	require.NoError(t, err)
	require.Equal(t, "text/csv", contentType)
	require.Contains(t, string(content), "PROJ1-2")
	require.Contains(t, string(content), "true")
}
