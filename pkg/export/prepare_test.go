package export

import (
	"context"
	"errors"
	"image"
	"strings"
	"testing"
	"time"

	"github.com/papilink/relief/pkg/depth"
	"github.com/papilink/relief/pkg/mesh"
	"github.com/papilink/relief/pkg/texture"
)

// fakeSerializer records the scene it was handed and returns canned output.
type fakeSerializer struct {
	data  []byte
	err   error
	scene *Scene
	opts  Options
	calls int
}

func (f *fakeSerializer) Serialize(ctx context.Context, scene *Scene, opts Options) ([]byte, error) {
	f.calls++
	f.scene = scene
	f.opts = opts
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.data, f.err
}

func testSurface(t *testing.T, sourceFile string) *mesh.Surface {
	t.Helper()
	f, err := depth.New(2, 2, []float64{0.0, 1.0, 1.0, 0.0})
	if err != nil {
		t.Fatalf("depth.New: %v", err)
	}
	tex := &texture.Texture{Image: image.NewRGBA(image.Rect(0, 0, 8, 6)), SourceFile: sourceFile}
	s, err := mesh.BuildSurface(f, tex, mesh.Parameters{DepthScale: 1})
	if err != nil {
		t.Fatalf("BuildSurface: %v", err)
	}
	return s
}

func TestPrepareValidationOrder(t *testing.T) {
	p := NewPreparer(&fakeSerializer{}, nil)

	// No geometry at all.
	var missingGeom *MissingGeometryError
	if _, err := p.Prepare(nil); !errors.As(err, &missingGeom) {
		t.Errorf("nil surface: error = %v, want MissingGeometryError", err)
	}
	released := testSurface(t, "a.png")
	released.Release()
	if _, err := p.Prepare(released); !errors.As(err, &missingGeom) {
		t.Errorf("released surface: error = %v, want MissingGeometryError", err)
	}

	// Geometry attached but zero vertices.
	var emptyMesh *EmptyMeshError
	empty := &mesh.Surface{Vertices: []float32{}, Indices: []uint32{}}
	if _, err := p.Prepare(empty); !errors.As(err, &emptyMesh) {
		t.Errorf("empty surface: error = %v, want EmptyMeshError", err)
	}

	// Geometry present, no texture: must be the texture error, not one of
	// the geometry errors.
	var missingTex *MissingTextureError
	untextured := testSurface(t, "a.png")
	untextured.Texture = nil
	_, err := p.Prepare(untextured)
	if !errors.As(err, &missingTex) {
		t.Errorf("untextured surface: error = %v, want MissingTextureError", err)
	}
	if errors.As(err, &missingGeom) || errors.As(err, &emptyMesh) {
		t.Error("untextured surface reported as a geometry failure")
	}
}

func TestPrepareMetadata(t *testing.T) {
	p := NewPreparer(&fakeSerializer{}, nil)
	fixed := time.Date(2026, 8, 26, 10, 30, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	s := testSurface(t, "portrait.jpg")
	pkg, err := p.Prepare(s)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	if pkg.Meta.Vertices != s.VertexCount() {
		t.Errorf("meta vertices = %d, want %d", pkg.Meta.Vertices, s.VertexCount())
	}
	if pkg.Meta.Faces != s.TriangleCount() {
		t.Errorf("meta faces = %d, want %d", pkg.Meta.Faces, s.TriangleCount())
	}
	if pkg.Meta.TextureResolution != "8x6" {
		t.Errorf("meta texture resolution = %q, want 8x6", pkg.Meta.TextureResolution)
	}
	if pkg.Meta.SourceFile != "portrait.jpg" {
		t.Errorf("meta source = %q", pkg.Meta.SourceFile)
	}
	if !pkg.Meta.CreatedAt.Equal(fixed) {
		t.Errorf("meta timestamp = %v, want %v", pkg.Meta.CreatedAt, fixed)
	}
}

func TestPrepareSourceFilePlaceholder(t *testing.T) {
	p := NewPreparer(&fakeSerializer{}, nil)
	pkg, err := p.Prepare(testSurface(t, ""))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if pkg.Meta.SourceFile != "photo" {
		t.Errorf("meta source = %q, want placeholder", pkg.Meta.SourceFile)
	}
}

func TestPrepareClonesAndNormalizes(t *testing.T) {
	p := NewPreparer(&fakeSerializer{}, nil)
	s := testSurface(t, "a.png") // built without AutoCenter
	s.Rotation = [3]float64{15, 30, 45}
	original := append([]float32(nil), s.Vertices...)

	pkg, err := p.Prepare(s)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	// Export always centers the clone's bounding box at the origin.
	center := pkg.Clone.Bounds().Center()
	for axis, c := range center {
		if c < -1e-4 || c > 1e-4 {
			t.Errorf("clone center axis %d = %v, want 0", axis, c)
		}
	}
	// And always uses the canonical resting orientation, regardless of
	// the live preview's rotation.
	if pkg.Clone.Rotation != ([3]float64{-90, 0, 0}) {
		t.Errorf("clone rotation = %v", pkg.Clone.Rotation)
	}

	// The live surface is untouched.
	for i, v := range original {
		if s.Vertices[i] != v {
			t.Fatalf("original vertex %d mutated", i)
		}
	}
	if s.Rotation != ([3]float64{15, 30, 45}) {
		t.Error("original rotation mutated")
	}
}

func TestSerializeFailure(t *testing.T) {
	fake := &fakeSerializer{err: errors.New("writer exploded")}
	p := NewPreparer(fake, nil)
	s := testSurface(t, "a.png")

	pkg, err := p.Prepare(s)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	data, err := p.Serialize(context.Background(), pkg)
	if len(data) != 0 {
		t.Errorf("failed serialize produced %d bytes, want none", len(data))
	}
	var serr *SerializationError
	if !errors.As(err, &serr) {
		t.Fatalf("error = %v, want SerializationError", err)
	}
	if !strings.Contains(serr.Error(), "writer exploded") {
		t.Errorf("error %q does not carry the underlying message", serr.Error())
	}

	// Cleanup ran on the failure path, and only on the clone.
	if !pkg.Clone.Released() {
		t.Error("clone not released after failure")
	}
	if s.Released() || s.IsEmpty() {
		t.Error("live surface touched by failed export")
	}
}

func TestSerializeSuccessReleasesClone(t *testing.T) {
	fake := &fakeSerializer{data: []byte{1, 2, 3}}
	p := NewPreparer(fake, nil)

	pkg, err := p.Prepare(testSurface(t, "a.png"))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	data, err := p.Serialize(context.Background(), pkg)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if len(data) != 3 {
		t.Errorf("got %d bytes, want 3", len(data))
	}
	if !pkg.Clone.Released() {
		t.Error("clone not released after success")
	}
}

func TestSerializeCancelledStillReleases(t *testing.T) {
	fake := &fakeSerializer{data: []byte{1}}
	p := NewPreparer(fake, nil)

	pkg, err := p.Prepare(testSurface(t, "a.png"))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Serialize(ctx, pkg); err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if !pkg.Clone.Released() {
		t.Error("clone not released after cancellation")
	}
}

func TestSerializeSceneShape(t *testing.T) {
	fake := &fakeSerializer{data: []byte{1}}
	p := NewPreparer(fake, nil)

	pkg, err := p.Prepare(testSurface(t, "a.png"))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if _, err := p.Serialize(context.Background(), pkg); err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	if fake.scene == nil || fake.scene.Mesh == nil {
		t.Fatal("serializer got no scene")
	}
	if len(fake.scene.Lights) != 2 {
		t.Fatalf("scene has %d lights, want 2", len(fake.scene.Lights))
	}
	if fake.scene.Lights[0].Kind != LightAmbient {
		t.Errorf("first light = %v, want ambient", fake.scene.Lights[0].Kind)
	}
	if fake.scene.Lights[1].Kind != LightDirectional || fake.scene.Lights[1].ElevationDeg != 45 {
		t.Errorf("second light = %+v, want directional at 45 degrees", fake.scene.Lights[1])
	}
	if !fake.opts.Binary || !fake.opts.EmbedTextures || fake.opts.MaxTextureSize != 4096 || !fake.opts.OnlyVisible {
		t.Errorf("options = %+v, want binary, embedded textures, 4096 cap, visible only", fake.opts)
	}
}

func TestSuggestedFilename(t *testing.T) {
	ts := time.Date(2026, 8, 26, 10, 30, 0, 0, time.UTC)

	got := SuggestedFilename(Metadata{SourceFile: "city.png", CreatedAt: ts})
	if got != "city_3d_20260826-103000.glb" {
		t.Errorf("filename = %q", got)
	}

	got = SuggestedFilename(Metadata{CreatedAt: ts})
	if got != "photo_3d_20260826-103000.glb" {
		t.Errorf("fallback filename = %q", got)
	}

	// Extensionless names pass through untouched.
	got = SuggestedFilename(Metadata{SourceFile: "scan", CreatedAt: ts})
	if got != "scan_3d_20260826-103000.glb" {
		t.Errorf("extensionless filename = %q", got)
	}
}
