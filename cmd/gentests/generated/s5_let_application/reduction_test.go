package gentests

import _ "embed"
import "testing"
import "github.com/vic/mlc/cmd/gentests/helper"

//go:embed input.mlc
var input string

//go:embed output.mlc
var output string

func Test_s5_let_application_Reduction(t *testing.T) {
	gentests.CheckReduction(t, "s5_let_application", input, output)
}
