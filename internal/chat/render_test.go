package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderEmphasisAndCode(t *testing.T) {
	r := newRenderer()
	out := r.ToTelegramHTML("Task **T-1** finished running `go test`.")
	assert.Contains(t, out, "<b>T-1</b>")
	assert.Contains(t, out, "<code>go test</code>")
}

func TestRenderEscapesAngleBrackets(t *testing.T) {
	r := newRenderer()
	out := r.ToTelegramHTML("see <internal/store> for details")
	assert.Contains(t, out, "&lt;internal/store&gt;")
}

func TestRenderListItems(t *testing.T) {
	r := newRenderer()
	out := r.ToTelegramHTML("- wave 1 done\n- wave 2 running\n")
	assert.Contains(t, out, "• wave 1 done")
	assert.Contains(t, out, "• wave 2 running")
}
