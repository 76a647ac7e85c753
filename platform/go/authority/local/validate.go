package local

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"google.golang.org/api/iterator"

	"github.com/veritest-io/veritest-saas/platform/go/authority"
	"github.com/veritest-io/veritest-saas/platform/go/firestoredb"
	"github.com/veritest-io/veritest-saas/platform/go/taxonomy"
)

// defectRecordSchema enforces the required-field contract on records entering
// through create and import. Reference-value membership is checked separately
// because it depends on per-tenant data.
const defectRecordSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["title", "description", "severity", "priority"],
  "properties": {
    "title":       {"type": "string", "minLength": 1},
    "description": {"type": "string", "minLength": 1},
    "severity":    {"type": "string", "minLength": 1},
    "priority":    {"type": "string", "minLength": 1}
  }
}`

func compileRecordSchema() (*jsonschema.Schema, error) {
	schema, err := jsonschema.CompileString("defect_record.json", defectRecordSchema)
	if err != nil {
		return nil, fmt.Errorf("compile defect record schema: %w", err)
	}
	return schema, nil
}

// validateRecord runs the schema over a payload and flattens violations into
// human-readable reasons for the import report.
func (a *Authority) validateRecord(payload authority.DefectPayload) []string {
	raw, err := json.Marshal(payload)
	if err != nil {
		return []string{fmt.Sprintf("encode record: %v", err)}
	}

	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return []string{fmt.Sprintf("decode record: %v", err)}
	}

	err = a.schema.Validate(doc)
	if err == nil {
		return nil
	}

	validationErr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{err.Error()}
	}

	var reasons []string
	for _, cause := range validationErr.BasicOutput().Errors {
		if cause.Error == "" || cause.KeywordLocation == "" {
			continue
		}
		reasons = append(reasons, fmt.Sprintf("%s: %s", cause.InstanceLocation, cause.Error))
	}
	if len(reasons) == 0 {
		reasons = []string{validationErr.Error()}
	}
	return reasons
}

// refValueSet loads the effective value ids for a taxonomy: tenant overrides
// when present, global defaults otherwise.
func (a *Authority) refValueSet(ctx context.Context, organizationID string, t taxonomy.Type) (map[string]bool, error) {
	ids, err := a.collectIDs(ctx, firestoredb.TenantRefValuesPath(organizationID, string(t)))
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		ids, err = a.collectIDs(ctx, firestoredb.GlobalRefValuesPath(string(t)))
		if err != nil {
			return nil, err
		}
	}
	return ids, nil
}

func (a *Authority) collectIDs(ctx context.Context, path string) (map[string]bool, error) {
	ids := make(map[string]bool)
	iter := a.fs.Collection(path).Documents(ctx)
	defer iter.Stop()
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read reference values %s: %w", path, err)
		}
		ids[doc.Ref.ID] = true
	}
	return ids, nil
}
