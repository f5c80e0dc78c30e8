package gentests

import _ "embed"
import "testing"
import "github.com/vic/mlc/cmd/gentests/helper"

//go:embed input.mlc
var input string

//go:embed output.mlc
var output string

func Test_s7_church_two_applications_Reduction(t *testing.T) {
	gentests.CheckReduction(t, "s7_church_two_applications", input, output)
}
