package det

import (
	"bytes"
	"testing"

	"github.com/kristofer/det/pkg/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_OkStatusReturnsHaltingValue(t *testing.T) {
	var out bytes.Buffer
	in := New(&out)

	status, value, err := in.Run("1 + 2;")
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)
	assert.Equal(t, object.IntVal(3), value)
}

func TestRun_CompileErrorDoesNotReturnRuntimeStatus(t *testing.T) {
	var out bytes.Buffer
	in := New(&out)

	status, _, err := in.Run("1 +;")
	require.Error(t, err)
	assert.Equal(t, StatusCompileError, status)
}

func TestRun_TypeErrorIsCompileError(t *testing.T) {
	var out bytes.Buffer
	in := New(&out)

	status, _, err := in.Run(`1 + "x";`)
	require.Error(t, err)
	assert.Equal(t, StatusCompileError, status)
}

func TestRun_RuntimeErrorIsRuntimeStatus(t *testing.T) {
	var out bytes.Buffer
	in := New(&out)

	status, _, err := in.Run("1 / 0;")
	require.Error(t, err)
	assert.Equal(t, StatusRuntimeError, status)
}

func TestRun_GlobalsPersistAcrossSeparateRunCalls(t *testing.T) {
	var out bytes.Buffer
	in := New(&out)

	status, _, err := in.Run("var x = 41;")
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)

	status, value, err := in.Run("x + 1;")
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)
	assert.Equal(t, object.IntVal(42), value)
}

func TestRun_FunctionsPersistAcrossSeparateRunCalls(t *testing.T) {
	var out bytes.Buffer
	in := New(&out)

	status, _, err := in.Run("func square(n):int { return n * n; }")
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)

	status, value, err := in.Run("square(6);")
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)
	assert.Equal(t, object.IntVal(36), value)
}

func TestRun_FailedRunDoesNotCorruptPersistentState(t *testing.T) {
	var out bytes.Buffer
	in := New(&out)

	_, _, err := in.Run("var x = 1;")
	require.NoError(t, err)

	// a bad second input must not touch x's binding.
	status, _, err := in.Run("undefined_name;")
	require.Error(t, err)
	assert.Equal(t, StatusCompileError, status)

	status, value, err := in.Run("x;")
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)
	assert.Equal(t, object.IntVal(1), value)
}

func TestRun_PrintWritesToConfiguredOutput(t *testing.T) {
	var out bytes.Buffer
	in := New(&out)

	_, _, err := in.Run(`print "hi";`)
	require.NoError(t, err)
	assert.Equal(t, "hi\n", out.String())
}

func TestWithGCStressTest_StillProducesCorrectResults(t *testing.T) {
	var out bytes.Buffer
	in := New(&out, WithGCStressTest())

	status, value, err := in.Run(`"a" + "b" + "c";`)
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)
	s, ok := value.Obj.(*object.ObjString)
	require.True(t, ok)
	assert.Equal(t, "abc", s.Value)
}
