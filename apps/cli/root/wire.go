package root

import (
	defectscmd "github.com/veritest-io/veritest-saas/apps/cli/cmd/defects"
	refvaluescmd "github.com/veritest-io/veritest-saas/apps/cli/cmd/refvalues"
)

func init() {
	Root().AddCommand(refvaluescmd.Command())
	Root().AddCommand(defectscmd.Command())
}
