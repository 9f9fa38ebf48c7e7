package commandloop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommandSplitsNameAndArgs(t *testing.T) {
	cmd, ok := parseCommand("/override T-1 CREATE internal/foo.go")
	require.True(t, ok)
	assert.Equal(t, "override", cmd.name)
	assert.Equal(t, []string{"T-1", "CREATE", "internal/foo.go"}, cmd.args)
}

func TestParseCommandRejectsPlainText(t *testing.T) {
	_, ok := parseCommand("not a command")
	assert.False(t, ok)
}

func TestParseCommandKeepsFreeTextForNewtask(t *testing.T) {
	cmd, ok := parseCommand("/newtask rework the login flow please")
	require.True(t, ok)
	assert.Equal(t, "newtask", cmd.name)
	assert.Equal(t, "rework the login flow please", cmd.rest)
}
