package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/wanderlens/arsync/pkg/core"
)

func TestValidateLatLon(t *testing.T) {
	tests := []struct {
		name    string
		lat     float64
		lon     float64
		wantErr bool
	}{
		{"origin", 0, 0, false},
		{"bounds", 90, -180, false},
		{"lat too high", 90.1, 0, true},
		{"lon too low", 0, -180.5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLatLon(tt.lat, tt.lon)
			if tt.wantErr && !errors.Is(err, ErrInvalidCoordinates) {
				t.Errorf("expected ErrInvalidCoordinates, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseLatLon(t *testing.T) {
	lat, lon, err := ParseLatLon("9.8505, 124.1435")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lat != 9.8505 || lon != 124.1435 {
		t.Errorf("got %v,%v", lat, lon)
	}

	for _, in := range []string{"", "1", "a,b", "1,2,3", "100,0"} {
		if _, _, err := ParseLatLon(in); !errors.Is(err, ErrInvalidCoordinates) {
			t.Errorf("%q: expected ErrInvalidCoordinates, got %v", in, err)
		}
	}
}

func TestCoords3857From4326_Origin(t *testing.T) {
	point, err := Coords3857From4326(0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	coords, ok := point.Coordinates()
	if !ok {
		t.Fatal("expected valid coordinates")
	}
	// At (0, 0) in 4326, the 3857 coordinates should also be (0, 0)
	if coords.X != 0 || coords.Y != 0 {
		t.Errorf("expected origin, got %f,%f", coords.X, coords.Y)
	}
}

func TestCoords3857From4326_Hemispheres(t *testing.T) {
	point, err := Coords3857From4326(-45, -30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	coords, _ := point.Coordinates()
	if coords.X >= 0 || coords.Y >= 0 {
		t.Errorf("expected negative X and Y, got %f,%f", coords.X, coords.Y)
	}
	// 180 degrees of longitude is half the mercator world width
	point, _ = Coords3857From4326(180, 0)
	coords, _ = point.Coordinates()
	if math.Abs(coords.X-20037508.34) > 1 {
		t.Errorf("expected X near 20037508.34, got %f", coords.X)
	}
}

func TestCoords3857From4326_Invalid(t *testing.T) {
	point, err := Coords3857From4326(0, 95)
	if !errors.Is(err, ErrInvalidCoordinates) {
		t.Fatalf("expected ErrInvalidCoordinates, got %v", err)
	}
	if !point.IsEmpty() {
		t.Error("expected empty point")
	}
}

func TestPointFromLocation(t *testing.T) {
	if _, err := PointFromLocation(nil); !errors.Is(err, ErrInvalidCoordinates) {
		t.Errorf("expected ErrInvalidCoordinates for nil, got %v", err)
	}
	p, err := PointFromLocation(&core.MapLocation{Lat: 10, Lon: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	coords, _ := p.Coordinates()
	if coords.X <= 0 || coords.Y <= 0 {
		t.Errorf("expected positive coordinates, got %f,%f", coords.X, coords.Y)
	}
}

func TestRoute(t *testing.T) {
	ls, err := Route([]core.MapLocation{
		{Lat: 1, Lon: 1},
		{Lat: 1, Lon: 1},
		{Lat: 2, Lon: 2},
		{Lat: 3, Lon: 3},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := ls.Coordinates().Length(); n != 3 {
		t.Errorf("expected 3 points, got %d", n)
	}

	if _, err := Route([]core.MapLocation{{Lat: 1, Lon: 1}, {Lat: 1, Lon: 1}}); err == nil {
		t.Error("expected error for a single distinct point")
	}
	if _, err := Route([]core.MapLocation{{Lat: 1, Lon: 1}, {Lat: 99, Lon: 1}}); !errors.Is(err, ErrInvalidCoordinates) {
		t.Errorf("expected ErrInvalidCoordinates, got %v", err)
	}
}
