// Package export validates and normalizes a surface for serialization to
// a portable binary 3D format. Preparation clones the live surface so the
// displayed mesh keeps rendering untouched; the clone is released
// unconditionally once serialization finishes, succeeds or not.
package export

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/papilink/relief/pkg/mesh"
)

// MIMEType is the media type of the produced byte stream.
const MIMEType = "model/gltf-binary"

// directionalElevationDeg is the fixed elevation of the export scene's
// directional light above the ground plane.
const directionalElevationDeg = 45.0

// defaultSourceName stands in when the original file name is unknown.
const defaultSourceName = "photo"

// Metadata describes the exported mesh. It is descriptive only and does
// not affect geometry.
type Metadata struct {
	Vertices          int       `json:"vertices"`
	Faces             int       `json:"faces"`
	TextureResolution string    `json:"textureResolution"`
	SourceFile        string    `json:"sourceFile"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Options controls the serializer collaborator.
type Options struct {
	Binary         bool // single-file binary packaging
	EmbedTextures  bool
	MaxTextureSize int // longest texture side cap, pixels
	OnlyVisible    bool
}

// DefaultOptions returns the options every user-triggered export uses.
func DefaultOptions() Options {
	return Options{
		Binary:         true,
		EmbedTextures:  true,
		MaxTextureSize: 4096,
		OnlyVisible:    true,
	}
}

// LightKind distinguishes the two fixed lights in the export scene.
type LightKind string

const (
	LightAmbient     LightKind = "ambient"
	LightDirectional LightKind = "directional"
)

// Light is a fixed light in the self-contained export scene.
type Light struct {
	Kind         LightKind
	Color        [3]float64
	Intensity    float64
	ElevationDeg float64 // directional only
}

// Scene is the self-contained unit handed to the serializer: the clone
// plus two fixed lights and the metadata block.
type Scene struct {
	Mesh   *mesh.Surface
	Lights []Light
	Meta   Metadata
}

// Serializer is the external serialization collaborator. It turns a scene
// into a byte stream; failures carry the underlying reason.
type Serializer interface {
	Serialize(ctx context.Context, scene *Scene, opts Options) ([]byte, error)
}

// Package is a transient, export-only clone of a surface with recentered
// origin, recomputed normals and bounds, plus descriptive metadata. It
// exists only for the duration of one export call.
type Package struct {
	Clone  *mesh.Surface
	Bounds mesh.Box
	Sphere mesh.Sphere
	Meta   Metadata

	released bool
}

// Release frees the clone's geometry and material resources. Idempotent.
func (p *Package) Release() {
	if p.released {
		return
	}
	p.released = true
	if p.Clone != nil {
		p.Clone.Release()
	}
}

// Preparer owns export validation, normalization and metadata assembly,
// delegating byte production to a Serializer.
type Preparer struct {
	serializer Serializer
	logger     *zap.Logger
	opts       Options
	now        func() time.Time // test seam
}

// NewPreparer creates a Preparer around the given serializer.
func NewPreparer(s Serializer, logger *zap.Logger) *Preparer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Preparer{serializer: s, logger: logger, opts: DefaultOptions(), now: time.Now}
}

// SetTextureCap overrides the exported texture's longest-side cap.
func (p *Preparer) SetTextureCap(max int) {
	if max > 0 {
		p.opts.MaxTextureSize = max
	}
}

// Prepare validates the surface and builds an export package around a
// normalized clone. Validation runs before any mutation, in a fixed
// order: missing geometry, empty mesh, missing texture.
func (p *Preparer) Prepare(s *mesh.Surface) (*Package, error) {
	if s == nil || (s.Vertices == nil && s.Indices == nil) {
		return nil, &MissingGeometryError{}
	}
	if s.VertexCount() == 0 {
		return nil, &EmptyMeshError{}
	}
	if s.Texture == nil {
		return nil, &MissingTextureError{}
	}

	clone := s.Clone()

	// Export always centers, regardless of the live surface's AutoCenter
	// setting, and always uses the canonical resting orientation.
	clone.Recenter()
	clone.Position = [3]float64{}
	clone.Rotation = [3]float64{-90, 0, 0}
	clone.RecomputeNormals()

	source := s.Texture.SourceFile
	if source == "" {
		source = defaultSourceName
	}

	pkg := &Package{
		Clone:  clone,
		Bounds: clone.Bounds(),
		Sphere: clone.BoundingSphere(),
		Meta: Metadata{
			Vertices:          clone.VertexCount(),
			Faces:             clone.TriangleCount(),
			TextureResolution: s.Texture.Resolution(),
			SourceFile:        source,
			CreatedAt:         p.now(),
		},
	}

	p.logger.Debug("export package prepared",
		zap.Int("vertices", pkg.Meta.Vertices),
		zap.Int("faces", pkg.Meta.Faces),
		zap.String("texture", pkg.Meta.TextureResolution),
	)
	return pkg, nil
}

// Serialize builds the self-contained export scene around the package and
// hands it to the serializer. The clone's resources are released when the
// call returns, whether it produced bytes, failed, or was cancelled.
func (p *Preparer) Serialize(ctx context.Context, pkg *Package) ([]byte, error) {
	defer pkg.Release()

	scene := &Scene{
		Mesh: pkg.Clone,
		Lights: []Light{
			{Kind: LightAmbient, Color: [3]float64{1, 1, 1}, Intensity: 0.8},
			{Kind: LightDirectional, Color: [3]float64{1, 1, 1}, Intensity: 1.0, ElevationDeg: directionalElevationDeg},
		},
		Meta: pkg.Meta,
	}

	data, err := p.serializer.Serialize(ctx, scene, p.opts)
	if err != nil {
		p.logger.Warn("export serialization failed", zap.Error(err))
		return nil, &SerializationError{Err: err}
	}

	p.logger.Info("export serialized",
		zap.Int("bytes", len(data)),
		zap.String("source", pkg.Meta.SourceFile),
	)
	return data, nil
}

// SuggestedFilename derives the download name for an export:
// {originalBaseName}_3d_{timestamp}.glb.
func SuggestedFilename(meta Metadata) string {
	base := meta.SourceFile
	if base == "" {
		base = defaultSourceName
	}
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '.' {
			base = base[:i]
			break
		}
		if base[i] == '/' || base[i] == '\\' {
			break
		}
	}
	return fmt.Sprintf("%s_3d_%s.glb", base, meta.CreatedAt.Format("20060102-150405"))
}
