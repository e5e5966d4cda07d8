package geo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wanderlens/arsync/pkg/core"
	"github.com/wroge/wgs84"
)

// Points are stored as EPSG:3857 WKB so SQLite rows can be read back without
// spatial extensions.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// ValidateLatLon checks WGS84 latitude and longitude ranges.
func ValidateLatLon(lat, lon float64) error {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return fmt.Errorf("%w: lat=%v lon=%v", ErrInvalidCoordinates, lat, lon)
	}
	return nil
}

// ParseLatLon parses a "lat,lon" string as written in marker files.
func ParseLatLon(s string) (lat, lon float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, ErrInvalidCoordinates
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, ErrInvalidCoordinates
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, ErrInvalidCoordinates
	}
	if err := ValidateLatLon(lat, lon); err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}

// Coords3857From4326 creates a web mercator point from a longitude and latitude
func Coords3857From4326(
	longitude float64,
	latitude float64,
) (
	point geom.Point,
	err error,
) {
	if err := ValidateLatLon(latitude, longitude); err != nil {
		return geom.NewEmptyPoint(geom.DimXY), err
	}
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ := f(longitude, latitude, 0)
	point = geom.NewPoint(
		geom.Coordinates{
			XY: geom.XY{X: x, Y: y},
		},
	)
	return point, nil
}

// PointFromLocation converts a marker map location to a 3857 point.
func PointFromLocation(loc *core.MapLocation) (geom.Point, error) {
	if loc == nil {
		return geom.NewEmptyPoint(geom.DimXY), ErrInvalidCoordinates
	}
	return Coords3857From4326(loc.Lon, loc.Lat)
}

// Route joins the visited locations of a session, in order, into a 3857
// line string. Consecutive repeats are collapsed.
func Route(locs []core.MapLocation) (geom.LineString, error) {
	flat := make([]float64, 0, len(locs)*2)
	var last *core.MapLocation
	for i := range locs {
		loc := &locs[i]
		if last != nil && last.Lat == loc.Lat && last.Lon == loc.Lon {
			continue
		}
		p, err := PointFromLocation(loc)
		if err != nil {
			return geom.LineString{}, fmt.Errorf("route point %d: %w", i, err)
		}
		xy, _ := p.XY()
		flat = append(flat, xy.X, xy.Y)
		last = loc
	}
	if len(flat) < 4 {
		return geom.LineString{}, fmt.Errorf("route must have at least 2 distinct points, got %d", len(flat)/2)
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXY)), nil
}
