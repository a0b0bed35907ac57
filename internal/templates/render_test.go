package templates

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Embedded(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	out, err := r.Render("notice", "Error al cargar <datos>")
	require.NoError(t, err)
	assert.Contains(t, out, `role="alert"`)
	assert.Contains(t, out, "Error al cargar &lt;datos&gt;")

	out, err = r.Render("notice", "")
	require.NoError(t, err)
	assert.NotContains(t, out, "alert")
}

func TestRender_Status(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	out, err := r.Render("status", map[string]any{"Loaded": true, "Features": 12})
	require.NoError(t, err)
	assert.Contains(t, out, "12 features")
}

func TestRender_UnknownTemplate(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	_, err = r.Render("missing", nil)
	assert.Error(t, err)
}

func TestReload(t *testing.T) {
	fsys := fstest.MapFS{
		"a.html": {Data: []byte(`{{define "greet"}}hola {{.}}{{end}}`)},
	}
	r, err := NewFS(fsys)
	require.NoError(t, err)

	out, err := r.Render("greet", "mundo")
	require.NoError(t, err)
	assert.Equal(t, "hola mundo", out)

	fsys["a.html"] = &fstest.MapFile{Data: []byte(`{{define "greet"}}adiós {{.}}{{end}}`)}
	require.NoError(t, r.Reload(fsys))

	out, err = r.Render("greet", "mundo")
	require.NoError(t, err)
	assert.Equal(t, "adiós mundo", out)
}

func TestRender_Dict(t *testing.T) {
	fsys := fstest.MapFS{
		"a.html": {Data: []byte(`{{define "outer"}}{{template "inner" dict "K" .}}{{end}}{{define "inner"}}[{{.K}}]{{end}}`)},
	}
	r, err := NewFS(fsys)
	require.NoError(t, err)

	out, err := r.Render("outer", "v")
	require.NoError(t, err)
	assert.Equal(t, "[v]", out)
}
