package web

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRendererPages(t *testing.T) {
	t.Parallel()

	renderer, err := NewRenderer()
	require.NoError(t, err)

	var buf bytes.Buffer
	err = renderer.Render(&buf, "error.html", map[string]any{"Status": 400, "Message": "login attempt expired <again>"}, nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "login attempt expired &lt;again&gt;")

	buf.Reset()
	err = renderer.Render(&buf, "auth.html", map[string]any{"Title": "Evacu-Mate", "Auth": map[string]any{"Authenticated": false}}, nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `href="/login"`)
}

func TestRendererUnknownTemplate(t *testing.T) {
	t.Parallel()

	renderer, err := NewRenderer()
	require.NoError(t, err)
	assert.Error(t, renderer.Render(&bytes.Buffer{}, "missing.html", nil, nil))
}
