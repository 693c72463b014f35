package templates

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-parks/internal/service"
	"github.com/joeblew999/plat-parks/internal/viewmodel"
	"github.com/joeblew999/plat-parks/web"
)

func TestNewFromFS(t *testing.T) {
	fsys := fstest.MapFS{
		"greet.html": {Data: []byte(`{{define "greet"}}Hello, {{.Name}}{{end}}`)},
		"pair.html":  {Data: []byte(`{{define "pair"}}{{.a}}={{.b}}{{end}}`)},
		"notes.txt":  {Data: []byte(`{{define "ignored"}}{{end}}`)},
	}
	r, err := NewFromFS(fsys)
	require.NoError(t, err)

	out, err := r.Render("greet", map[string]string{"Name": "<Crater Lake>"})
	require.NoError(t, err)
	assert.Equal(t, "Hello, &lt;Crater Lake&gt;", out)

	out = r.MustRender("pair", map[string]any{"a": 1, "b": "x"})
	assert.Equal(t, "1=x", out)

	assert.True(t, r.Has("greet"))
	assert.False(t, r.Has("ignored"))

	_, err = r.Render("missing", nil)
	assert.Error(t, err)
}

func TestNewFromFS_NoTemplates(t *testing.T) {
	_, err := NewFromFS(fstest.MapFS{})
	assert.Error(t, err)
}

func TestReload(t *testing.T) {
	dir := t.TempDir()
	r, err := NewFromFS(fstest.MapFS{"a.html": {Data: []byte(`{{define "a"}}old{{end}}`)}})
	require.NoError(t, err)

	require.Error(t, r.Reload(dir), "empty directory has no templates")
	assert.Equal(t, "old", r.MustRender("a", nil))
}

func TestParkFragments(t *testing.T) {
	r, err := NewFromFS(web.Fragments())
	require.NoError(t, err)

	for _, name := range []string{"page", "park-item", "park-info", "select-option", "empty-state"} {
		assert.True(t, r.Has(name), name)
	}

	crla := viewmodel.ParkView{
		ParkData: service.ParkData{
			ID:         "crla",
			Name:       "Crater Lake",
			ParkType:   "National Park",
			ImgURL:     "https://www.nps.gov/crla.jpg",
			ImgCaption: "Wizard Island",
			Address:    &service.Address{Street: "1 Sager Building", CityState: "Crater Lake, OR 97604"},
			Website:    "https://www.nps.gov/crla/index.htm",
		},
		IsFavorite: true,
		IsCurrent:  true,
	}

	out, err := r.Render("park-item", crla)
	require.NoError(t, err)
	assert.Contains(t, out, `id="park-crla"`)
	assert.Contains(t, out, "park current")
	assert.Contains(t, out, "/api/v1/ui/parks/crla/favorite")
	assert.Contains(t, out, "Wizard Island")
	assert.Contains(t, out, "Crater Lake, OR 97604")

	crla.IsCurrent = false
	out, err = r.Render("park-item", crla)
	require.NoError(t, err)
	assert.NotContains(t, out, "park-info")

	out, err = r.Render("empty-state", map[string]string{"Title": "No parks", "Message": "Nothing matches."})
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing matches.")

	out, err = r.Render("page", map[string]string{"Title": "Parks", "SessionID": "01J", "Signals": `{"sid":"01J"}`})
	require.NoError(t, err)
	assert.Contains(t, out, `data-session="01J"`)
	assert.Contains(t, out, "Loading parks")
	assert.Equal(t, 1, strings.Count(out, "<option"))
}
