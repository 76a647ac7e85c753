package sqlassets

import _ "embed"

//go:embed schema/platform/defect_key_counters.sql
var DefectKeyCountersSQL string
