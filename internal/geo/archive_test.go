package geo

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// zipShapefile packs the shapefile's sidecars under a nested directory.
func zipShapefile(t *testing.T, shpPath string) string {
	t.Helper()
	zipPath := filepath.Join(t.TempDir(), "mg.zip")
	out, err := os.Create(zipPath)
	require.NoError(t, err)

	zw := zip.NewWriter(out)
	base := shpPath[:len(shpPath)-len(".shp")]
	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		data, err := os.ReadFile(base + ext)
		require.NoError(t, err)
		w, err := zw.Create("conjunto_de_datos/municipios" + ext)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())
	return zipPath
}

func TestExtractShapefile(t *testing.T) {
	zipPath := zipShapefile(t, writeShapefile(t, jaliscoFixture()))
	dest := filepath.Join(t.TempDir(), "extract")

	shpPath, err := ExtractShapefile(zipPath, dest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "municipios.shp"), shpPath)

	layer, err := LoadShapefile(shpPath, "NOM_ENT", "NOM_MUN")
	require.NoError(t, err)
	assert.Len(t, layer.Features, 2)
}

func TestExtractShapefile_NoShp(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "empty.zip")
	out, err := os.Create(zipPath)
	require.NoError(t, err)
	zw := zip.NewWriter(out)
	w, err := zw.Create("README.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("no shapes"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())

	_, err = ExtractShapefile(zipPath, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no .shp file found")
}

func TestExtractShapefile_NotZip(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.zip")
	require.NoError(t, os.WriteFile(bad, []byte("not a zip"), 0o644))

	_, err := ExtractShapefile(bad, t.TempDir())
	require.Error(t, err)
}
