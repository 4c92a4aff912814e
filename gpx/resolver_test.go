package gpx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const namespacedRoute = `<?xml version="1.0" encoding="UTF-8"?>
<gpx xmlns="http://www.topografix.com/GPX/1/1" version="1.1" creator="Watch">
 <trk>
  <trkseg>
   <trkpt lat="44.9778" lon="-93.2650"><ele>253.1</ele></trkpt>
   <trkpt lat="44.9779" lon="-93.2651"><ele>253.4</ele></trkpt>
  </trkseg>
 </trk>
</gpx>`

const prefixedRoute = `<?xml version="1.0" encoding="UTF-8"?>
<gpx:gpx xmlns:gpx="http://www.topografix.com/GPX/1/1" version="1.1">
 <gpx:trk>
  <gpx:trkseg>
   <gpx:trkpt lat="51.5074" lon="-0.1278"/>
  </gpx:trkseg>
 </gpx:trk>
</gpx:gpx>`

const bareRoute = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1">
 <trk><trkseg><trkpt lat="40.7128" lon="-74.0060"/></trkseg></trk>
</gpx>`

const emptyRoute = `<?xml version="1.0" encoding="UTF-8"?>
<gpx xmlns="http://www.topografix.com/GPX/1/1"><trk><trkseg/></trk></gpx>`

func writeRoute(t *testing.T, baseDir, name, content string) {
	t.Helper()
	dir := filepath.Join(baseDir, "workout-routes")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestStartPointDefaultNamespace(t *testing.T) {
	base := t.TempDir()
	writeRoute(t, base, "route_1.gpx", namespacedRoute)

	lat, lon := NewResolver(base).StartPoint("/workout-routes/route_1.gpx")
	require.NotNil(t, lat)
	require.NotNil(t, lon)
	// First track point wins.
	assert.Equal(t, 44.9778, *lat)
	assert.Equal(t, -93.2650, *lon)
}

func TestStartPointPrefixedNamespace(t *testing.T) {
	base := t.TempDir()
	writeRoute(t, base, "route_2.gpx", prefixedRoute)

	lat, lon := NewResolver(base).StartPoint("/workout-routes/route_2.gpx")
	require.NotNil(t, lat)
	require.NotNil(t, lon)
	assert.Equal(t, 51.5074, *lat)
	assert.Equal(t, -0.1278, *lon)
}

func TestStartPointNoNamespace(t *testing.T) {
	base := t.TempDir()
	writeRoute(t, base, "route_3.gpx", bareRoute)

	lat, lon := NewResolver(base).StartPoint("/workout-routes/route_3.gpx")
	require.NotNil(t, lat)
	require.NotNil(t, lon)
	assert.Equal(t, 40.7128, *lat)
	assert.Equal(t, -74.0060, *lon)
}

func TestStartPointAbsent(t *testing.T) {
	base := t.TempDir()
	writeRoute(t, base, "empty.gpx", emptyRoute)
	writeRoute(t, base, "garbage.gpx", "not xml at all <<<")

	r := NewResolver(base)

	lat, lon := r.StartPoint("")
	assert.Nil(t, lat)
	assert.Nil(t, lon)

	lat, lon = r.StartPoint("/workout-routes/missing.gpx")
	assert.Nil(t, lat)
	assert.Nil(t, lon)

	lat, lon = r.StartPoint("/workout-routes/empty.gpx")
	assert.Nil(t, lat)
	assert.Nil(t, lon)

	lat, lon = r.StartPoint("/workout-routes/garbage.gpx")
	assert.Nil(t, lat)
	assert.Nil(t, lon)
}
