package gentests

import _ "embed"
import "testing"
import "github.com/vic/mlc/cmd/gentests/helper"

//go:embed input.mlc
var input string

//go:embed output.mlc
var output string

func Test_erase_unused_first_arg_Reduction(t *testing.T) {
	gentests.CheckReduction(t, "erase_unused_first_arg", input, output)
}
