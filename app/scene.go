package app

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/playground/engine"
	"github.com/vkngwrapper/playground/loader"
)

const (
	// ModelAsset and TextureAsset are the names the configured model and its
	// texture are loaded under.
	ModelAsset   = "model"
	TextureAsset = "model"

	sphereResolution = 32
)

// Light circles the scene's vertical axis.
type Light struct {
	Radius float32
	// Height is measured along -Y, which is up.
	Height float32
	// Speed is in radians per second.
	Speed float32
	Color mgl32.Vec4

	angle float32
}

func DefaultLight() Light {
	return Light{
		Radius: 2,
		Height: 1,
		Speed:  0.8,
		Color:  mgl32.Vec4{1, 1, 1, 2},
	}
}

func (l *Light) Update(deltaTime float32) {
	l.angle = float32(math.Mod(float64(l.angle+l.Speed*deltaTime), 2*math.Pi))
}

func (l *Light) Position() mgl32.Vec3 {
	sin, cos := math.Sincos(float64(l.angle))
	return mgl32.Vec3{l.Radius * float32(cos), -l.Height, l.Radius * float32(sin)}
}

// Scene owns the meshes it uploads and the models that place them.
type Scene struct {
	Models []*engine.Model
	Light  Light

	meshes []*engine.Mesh
}

// NewScene uploads a sphere and, when assets carries one, the configured
// model. A model texture found in assets is loaded into textures.
func NewScene(device *engine.Device, textures *engine.TextureManager, assets *loader.Assets) (*Scene, error) {
	scene := &Scene{Light: DefaultLight()}

	sphere, err := engine.CreateSphereMesh(device, sphereResolution)
	if err != nil {
		return nil, err
	}
	scene.meshes = append(scene.meshes, sphere)

	sphereModel := engine.NewModel(sphere)
	sphereModel.Transform.Scale = 0.5
	scene.Models = append(scene.Models, sphereModel)

	if assets == nil {
		return scene, nil
	}

	data, ok := assets.Models[ModelAsset]
	if !ok {
		return scene, nil
	}

	mesh, err := engine.NewMesh(device, data.Vertices, data.Indices)
	if err != nil {
		scene.Destroy()
		return nil, err
	}
	scene.meshes = append(scene.meshes, mesh)

	model := engine.NewModel(mesh)
	if pixels, ok := assets.Textures[TextureAsset]; ok {
		model.Texture, err = textures.Load(TextureAsset, pixels)
		if err != nil {
			scene.Destroy()
			return nil, err
		}
	}

	// The sphere steps aside for the loaded model.
	sphereModel.Transform.Translation = mgl32.Vec3{-1.5, 0, 0}
	scene.Models = append(scene.Models, model)

	return scene, nil
}

func (s *Scene) Update(deltaTime float32) {
	s.Light.Update(deltaTime)
}

// Uniforms fills the frame's global uniforms from the camera and the light.
func (s *Scene) Uniforms(projection, view mgl32.Mat4) engine.GlobalUniformBufferObject {
	ubo := engine.DefaultGlobalUniformBufferObject()
	ubo.Projection = projection
	ubo.View = view
	ubo.LightPosition = s.Light.Position()
	ubo.LightColor = s.Light.Color
	return ubo
}

func (s *Scene) Destroy() {
	for _, mesh := range s.meshes {
		mesh.Destroy()
	}
	s.meshes = nil
	s.Models = nil
}
