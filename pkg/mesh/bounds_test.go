package mesh

import (
	"math"
	"testing"

	"github.com/papilink/relief/pkg/depth"
)

func buildTestSurface(t *testing.T) *Surface {
	t.Helper()
	f, err := depth.New(2, 2, []float64{0.0, 1.0, 1.0, 0.0})
	if err != nil {
		t.Fatalf("depth.New: %v", err)
	}
	s, err := BuildSurface(f, testTexture(), Parameters{DepthScale: 1})
	if err != nil {
		t.Fatalf("BuildSurface: %v", err)
	}
	return s
}

func TestBounds(t *testing.T) {
	s := buildTestSurface(t)
	b := s.Bounds()

	// Grid spans 2x2 world units around the origin; heights span 0..100.
	if b.Min != ([3]float64{-1, -1, 0}) {
		t.Errorf("min = %v, want (-1,-1,0)", b.Min)
	}
	if b.Max != ([3]float64{1, 1, 100}) {
		t.Errorf("max = %v, want (1,1,100)", b.Max)
	}
	if got := b.Size(); got != ([3]float64{2, 2, 100}) {
		t.Errorf("size = %v, want (2,2,100)", got)
	}
}

// Recentring twice yields the same bounding-box center, the origin,
// both times.
func TestRecenterIdempotent(t *testing.T) {
	s := buildTestSurface(t)

	for pass := 1; pass <= 2; pass++ {
		s.Recenter()
		center := s.Bounds().Center()
		for axis, c := range center {
			if math.Abs(c) > 1e-4 {
				t.Fatalf("pass %d: center axis %d = %v, want 0", pass, axis, c)
			}
		}
	}
}

func TestBoundingSphere(t *testing.T) {
	s := buildTestSurface(t)
	s.Recenter()

	sphere := s.BoundingSphere()
	if sphere.Radius <= 0 {
		t.Fatalf("radius = %v, want positive", sphere.Radius)
	}
	// Every vertex must be inside the sphere.
	for i := 0; i+2 < len(s.Vertices); i += 3 {
		dx := float64(s.Vertices[i]) - sphere.Center[0]
		dy := float64(s.Vertices[i+1]) - sphere.Center[1]
		dz := float64(s.Vertices[i+2]) - sphere.Center[2]
		if d := math.Sqrt(dx*dx + dy*dy + dz*dz); d > sphere.Radius+1e-4 {
			t.Errorf("vertex %d outside bounding sphere: %v > %v", i/3, d, sphere.Radius)
		}
	}
}

func TestBoundsEmptySurface(t *testing.T) {
	var s Surface
	if got := s.Bounds(); got != (Box{}) {
		t.Errorf("empty surface bounds = %v, want zero box", got)
	}
	if got := s.BoundingSphere(); got != (Sphere{}) {
		t.Errorf("empty surface sphere = %v, want zero sphere", got)
	}
}
