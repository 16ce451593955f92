package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"
)

// lightsExtension is the punctual-lights glTF extension name. glTF has no
// ambient light type, so the ambient term travels in the scene extras.
const lightsExtension = "KHR_lights_punctual"

// GLBSerializer encodes an export scene as a single self-contained binary
// glTF (GLB) byte stream with the texture embedded.
type GLBSerializer struct {
	logger *zap.Logger
}

// NewGLBSerializer creates a GLB serializer.
func NewGLBSerializer(logger *zap.Logger) *GLBSerializer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GLBSerializer{logger: logger}
}

// Serialize implements Serializer. A failure produces no output bytes.
func (g *GLBSerializer) Serialize(ctx context.Context, scene *Scene, opts Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	surface := scene.Mesh
	if surface == nil || surface.IsEmpty() {
		return nil, fmt.Errorf("glb: scene has no mesh")
	}
	if opts.OnlyVisible && surface.Released() {
		return nil, fmt.Errorf("glb: scene mesh is released")
	}

	doc := gltf.NewDocument()
	doc.Asset.Generator = "relief"

	posIdx := modeler.WritePosition(doc, groupVec3(surface.Vertices))
	nrmIdx := modeler.WriteNormal(doc, groupVec3(surface.Normals))
	uvIdx := modeler.WriteTextureCoord(doc, groupVec2(surface.UVs))
	indIdx := modeler.WriteIndices(doc, surface.Indices)

	matIdx, err := g.writeMaterial(doc, scene, opts)
	if err != nil {
		return nil, err
	}

	doc.Meshes = []*gltf.Mesh{{
		Name: "relief",
		Primitives: []*gltf.Primitive{{
			Indices:  gltf.Index(indIdx),
			Material: matIdx,
			Attributes: map[string]uint32{
				gltf.POSITION:   posIdx,
				gltf.NORMAL:     nrmIdx,
				gltf.TEXCOORD_0: uvIdx,
			},
		}},
	}}

	meshNode := &gltf.Node{
		Name:        "relief",
		Mesh:        gltf.Index(0),
		Rotation: quatAboutX(surface.Rotation[0]),
		Translation: [3]float32{
			float32(surface.Position[0]),
			float32(surface.Position[1]),
			float32(surface.Position[2]),
		},
	}
	doc.Nodes = []*gltf.Node{meshNode}
	sceneNodes := []uint32{0}

	if n := g.writeLights(doc, scene.Lights); n != nil {
		doc.Nodes = append(doc.Nodes, n)
		sceneNodes = append(sceneNodes, uint32(len(doc.Nodes)-1))
	}

	extras, err := json.Marshal(scene.Meta)
	if err != nil {
		return nil, fmt.Errorf("glb: marshal metadata: %w", err)
	}
	doc.Scenes = []*gltf.Scene{{Name: "export", Nodes: sceneNodes, Extras: extras}}
	doc.Scene = gltf.Index(0)

	var buf bytes.Buffer
	enc := gltf.NewEncoder(&buf)
	enc.AsBinary = opts.Binary
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("glb: encode: %w", err)
	}

	g.logger.Debug("glb encoded",
		zap.Int("bytes", buf.Len()),
		zap.Int("vertices", surface.VertexCount()),
	)
	return buf.Bytes(), nil
}

// writeMaterial embeds the (possibly capped) texture and builds the PBR
// material around it. Returns nil when textures are not embedded.
func (g *GLBSerializer) writeMaterial(doc *gltf.Document, scene *Scene, opts Options) (*uint32, error) {
	if !opts.EmbedTextures || scene.Mesh.Texture == nil {
		return nil, nil
	}

	tex := scene.Mesh.Texture.Capped(opts.MaxTextureSize)
	pngData, err := tex.EncodePNG()
	if err != nil {
		return nil, fmt.Errorf("glb: %w", err)
	}
	imgIdx, err := modeler.WriteImage(doc, scene.Meta.SourceFile, "image/png", bytes.NewReader(pngData))
	if err != nil {
		return nil, fmt.Errorf("glb: embed texture: %w", err)
	}
	doc.Textures = append(doc.Textures, &gltf.Texture{Source: gltf.Index(imgIdx)})
	texIdx := uint32(len(doc.Textures) - 1)

	mat := &gltf.Material{
		Name: "photo",
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorTexture: &gltf.TextureInfo{Index: texIdx},
			MetallicFactor:   gltf.Float(0),
			RoughnessFactor:  gltf.Float(1),
		},
	}
	if scene.Mesh.Material.UseNormalMap {
		mat.NormalTexture = &gltf.NormalTexture{
			Index: gltf.Index(texIdx),
			Scale: gltf.Float(float32(scene.Mesh.Material.NormalMapStrength)),
		}
	}
	doc.Materials = append(doc.Materials, mat)
	return gltf.Index(uint32(len(doc.Materials) - 1)), nil
}

// writeLights registers the directional light under KHR_lights_punctual
// and returns its node. Ambient has no glTF counterpart and is skipped.
func (g *GLBSerializer) writeLights(doc *gltf.Document, lights []Light) *gltf.Node {
	for _, l := range lights {
		if l.Kind != LightDirectional {
			continue
		}
		doc.ExtensionsUsed = append(doc.ExtensionsUsed, lightsExtension)
		if doc.Extensions == nil {
			doc.Extensions = gltf.Extensions{}
		}
		doc.Extensions[lightsExtension] = map[string]any{
			"lights": []map[string]any{{
				"type":      "directional",
				"color":     l.Color,
				"intensity": l.Intensity,
			}},
		}
		// A glTF directional light shines along the node's -Z axis;
		// tilt it down by the fixed elevation.
		return &gltf.Node{
			Name:     "sun",
			Rotation: quatAboutX(-l.ElevationDeg),
			Extensions: gltf.Extensions{
				lightsExtension: map[string]any{"light": 0},
			},
		}
	}
	return nil
}

// quatAboutX converts a rotation about the X axis in degrees to a
// glTF quaternion (x, y, z, w).
func quatAboutX(deg float64) [4]float32 {
	half := deg * math.Pi / 360
	return [4]float32{float32(math.Sin(half)), 0, 0, float32(math.Cos(half))}
}

// groupVec3 reshapes a flat xyz array into 3-component tuples.
func groupVec3(flat []float32) [][3]float32 {
	out := make([][3]float32, len(flat)/3)
	for i := range out {
		out[i] = [3]float32{flat[i*3], flat[i*3+1], flat[i*3+2]}
	}
	return out
}

// groupVec2 reshapes a flat uv array into 2-component tuples.
func groupVec2(flat []float32) [][2]float32 {
	out := make([][2]float32, len(flat)/2)
	for i := range out {
		out[i] = [2]float32{flat[i*2], flat[i*2+1]}
	}
	return out
}
