package route

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	cmd := NewCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestRoute_SimplePrompt(t *testing.T) {
	out := execute(t, "What is 2+2?")
	assert.Contains(t, out, "Multi-model: false")
	assert.Contains(t, out, "Complexity:  simple")
	assert.Contains(t, out, "Model:")
}

func TestRoute_ExpertPrompt(t *testing.T) {
	out := execute(t, "Analyze the architecture and audit the security posture in depth")
	assert.Contains(t, out, "Multi-model: true")
	assert.Contains(t, out, "Plan:")
	assert.Contains(t, out, "reasoning -> synthesis")
}

func TestRoute_ToolsFlag(t *testing.T) {
	out := execute(t,
		"Explain the design and search for the latest benchmark results",
		"--tool", "search", "--tool", "fetch",
	)
	assert.Contains(t, out, "Multi-model: true")
	assert.Contains(t, out, "tool_execution")
}

func TestRoute_RequiresPrompt(t *testing.T) {
	cmd := NewCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(nil)
	assert.Error(t, cmd.Execute())
}
