package geo

import (
	"os"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// Feature is one administrative boundary: a city polygon labelled with the
// state that contains it. Each shapefile ring is kept as its own polygon so
// holes are resolved with the even-odd rule.
type Feature struct {
	Region
	Geom   *geom.MultiPolygon
	bounds *geom.Bounds
}

// Contains reports whether the point lies inside the feature.
func (f *Feature) Contains(lon, lat float64) bool {
	if f.Geom == nil {
		return false
	}
	if f.bounds == nil {
		f.bounds = f.Geom.Bounds()
	}
	p := geom.Coord{lon, lat}
	if !f.bounds.OverlapsPoint(geom.XY, p) {
		return false
	}
	var hits int
	for i := 0; i < f.Geom.NumPolygons(); i++ {
		ring := f.Geom.Polygon(i).LinearRing(0)
		if xy.IsPointInRing(geom.XY, p, ring.FlatCoords()) {
			hits++
		}
	}
	return hits%2 == 1
}

// Layer is an in-memory boundary dataset. It implements Locator.
type Layer struct {
	Features []*Feature
}

// NewLayer builds a Layer from features, computing their bounding boxes.
func NewLayer(features []*Feature) *Layer {
	for _, f := range features {
		f.bounds = f.Geom.Bounds()
	}
	return &Layer{Features: features}
}

// LocatePoint returns the region of the first feature containing the point.
func (l *Layer) LocatePoint(lon, lat float64) (Region, bool) {
	for _, f := range l.Features {
		if f.Contains(lon, lat) {
			return f.Region, true
		}
	}
	return Region{}, false
}

// LoadShapefile reads polygon features from a shapefile, labelling each with
// the values of stateField and cityField. If a .cpg sidecar names a code
// page, attribute text is decoded from it.
func LoadShapefile(shpPath, stateField, cityField string) (*Layer, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	stateIdx, cityIdx := -1, -1
	for i, f := range reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		switch {
		case strings.EqualFold(name, stateField):
			stateIdx = i
		case strings.EqualFold(name, cityField):
			cityIdx = i
		}
	}
	if stateIdx < 0 || cityIdx < 0 {
		return nil, eris.Errorf("geo: shapefile %s lacks fields %s and %s", shpPath, stateField, cityField)
	}

	dec := codePageDecoder(shpPath)

	var features []*Feature
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		mp := polygonToMultiPolygon(poly)
		if mp == nil {
			skipped++
			continue
		}
		features = append(features, &Feature{
			Region: Region{
				State: attribute(reader, stateIdx, dec),
				City:  attribute(reader, cityIdx, dec),
			},
			Geom: mp,
		})
	}

	if skipped > 0 {
		zap.L().Debug("geo: skipped shapefile records",
			zap.String("path", shpPath),
			zap.Int("skipped", skipped),
		)
	}
	zap.L().Info("boundaries loaded",
		zap.String("component", "geo"),
		zap.String("path", shpPath),
		zap.Int("features", len(features)),
	)

	return NewLayer(features), nil
}

func attribute(reader *shp.Reader, idx int, dec *encoding.Decoder) string {
	val := strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
	if dec == nil {
		return val
	}
	if s, err := dec.String(val); err == nil {
		return s
	}
	return val
}

// codePageDecoder reads the .cpg sidecar of a shapefile. It returns nil when
// there is none or it names UTF-8.
func codePageDecoder(shpPath string) *encoding.Decoder {
	data, err := os.ReadFile(strings.TrimSuffix(shpPath, ".shp") + ".cpg")
	if err != nil {
		return nil
	}
	name := strings.TrimSpace(string(data))
	if name == "" || strings.EqualFold(name, "utf-8") || strings.EqualFold(name, "utf8") {
		return nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		zap.L().Warn("geo: unknown shapefile code page", zap.String("cpg", name))
		return nil
	}
	return enc.NewDecoder()
}

// nestRings regroups a one-ring-per-polygon MultiPolygon into polygons with
// holes. A ring enclosed by an odd number of other rings becomes a hole of
// the innermost shell around it, which matches the even-odd rule used by
// Contains.
func nestRings(mp *geom.MultiPolygon) (*geom.MultiPolygon, error) {
	rings := make([]*geom.LinearRing, mp.NumPolygons())
	for i := range rings {
		rings[i] = mp.Polygon(i).LinearRing(0)
	}

	encloses := func(outer, inner int) bool {
		return outer != inner && rings[inner].NumCoords() > 0 &&
			xy.IsPointInRing(geom.XY, rings[inner].Coord(0), rings[outer].FlatCoords())
	}

	depth := make([]int, len(rings))
	for i := range rings {
		for j := range rings {
			if encloses(j, i) {
				depth[i]++
			}
		}
	}

	shell := make([]int, len(rings))
	for i := range rings {
		shell[i] = -1
		if depth[i]%2 == 0 {
			continue
		}
		for j := range rings {
			if depth[j] == depth[i]-1 && encloses(j, i) {
				shell[i] = j
				break
			}
		}
	}

	out := geom.NewMultiPolygon(geom.XY).SetSRID(mp.SRID())
	for i, r := range rings {
		if shell[i] >= 0 {
			continue
		}
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(r); err != nil {
			return nil, eris.Wrap(err, "geo: push shell ring")
		}
		for h := range rings {
			if shell[h] != i {
				continue
			}
			if err := poly.Push(rings[h]); err != nil {
				return nil, eris.Wrap(err, "geo: push hole ring")
			}
		}
		if err := out.Push(poly); err != nil {
			return nil, eris.Wrap(err, "geo: push polygon")
		}
	}
	return out, nil
}

// polygonToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon
// with one single-ring polygon per part.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("geo: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}

		if err := mp.Push(poly); err != nil {
			zap.L().Debug("geo: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
