// Package gentests holds the shared assertion helper the generated
// reduction_test.go fixtures call into. Grounded on the teacher's
// CheckLambdaReduction (formerly a pkg/deltanet/pkg/lambda round-trip
// through interaction nets), retargeted at pkg/scenario's
// resolve/flatten/reduce/unflatten pipeline and the printed textual
// syntax.
package gentests

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vic/mlc/pkg/scenario"
)

// CheckReduction runs the input/output pair through scenario.Run and
// requires the printed readback to match the printed expected output.
func CheckReduction(t *testing.T, name, inputSrc, outputSrc string) {
	t.Helper()
	got, want, err := scenario.Run(scenario.Case{Name: name, Input: inputSrc, Output: outputSrc})
	require.NoError(t, err, "%s", name)
	require.Equal(t, want, got, "%s: reducing %q", name, inputSrc)
}
