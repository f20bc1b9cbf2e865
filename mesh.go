package portals

import (
	"github.com/google/uuid"
)

type MeshShape int

const (
	ShapePlane MeshShape = iota
	ShapeCube
	ShapeBox
)

// Mesh describes a primitive by shape and dimensions. Geometry is generated by
// the backend on first use.
type Mesh struct {
	Shape MeshShape
	Size  [3]float32
}

func PlaneMesh(size float32) Mesh { return Mesh{Shape: ShapePlane, Size: [3]float32{size, 0, size}} }
func CubeMesh(size float32) Mesh  { return Mesh{Shape: ShapeCube, Size: [3]float32{size, size, size}} }
func BoxMesh(x, y, z float32) Mesh { return Mesh{Shape: ShapeBox, Size: [3]float32{x, y, z}} }

type MeshHandle struct {
	id uuid.UUID
}

func (h MeshHandle) String() string { return h.id.String() }

type Meshes struct {
	meshes map[MeshHandle]Mesh
}

func NewMeshes() *Meshes {
	return &Meshes{meshes: make(map[MeshHandle]Mesh)}
}

func (m *Meshes) Add(mesh Mesh) MeshHandle {
	h := MeshHandle{id: uuid.New()}
	m.meshes[h] = mesh
	return h
}

func (m *Meshes) Get(h MeshHandle) (Mesh, bool) {
	mesh, ok := m.meshes[h]
	return mesh, ok
}

// MeshRenderer draws a mesh with the entity's Transform. Entities that also
// carry a DisplayMaterial are drawn textured.
type MeshRenderer struct {
	Mesh  MeshHandle
	Color [4]float32
}

// Vertex is the interleaved layout uploaded to the GPU.
type Vertex struct {
	Position [3]float32
	UV       [2]float32
}

// Geometry returns a triangle list, counter-clockwise front faces. Planes lie in
// XZ facing +Y.
func (mesh Mesh) Geometry() []Vertex {
	switch mesh.Shape {
	case ShapePlane:
		hx, hz := mesh.Size[0]/2, mesh.Size[2]/2
		return quad(
			[3]float32{-hx, 0, hz}, [3]float32{hx, 0, hz},
			[3]float32{hx, 0, -hz}, [3]float32{-hx, 0, -hz},
		)
	default:
		hx, hy, hz := mesh.Size[0]/2, mesh.Size[1]/2, mesh.Size[2]/2
		var v []Vertex
		// +Z, -Z, +X, -X, +Y, -Y
		v = append(v, quad([3]float32{-hx, -hy, hz}, [3]float32{hx, -hy, hz}, [3]float32{hx, hy, hz}, [3]float32{-hx, hy, hz})...)
		v = append(v, quad([3]float32{hx, -hy, -hz}, [3]float32{-hx, -hy, -hz}, [3]float32{-hx, hy, -hz}, [3]float32{hx, hy, -hz})...)
		v = append(v, quad([3]float32{hx, -hy, hz}, [3]float32{hx, -hy, -hz}, [3]float32{hx, hy, -hz}, [3]float32{hx, hy, hz})...)
		v = append(v, quad([3]float32{-hx, -hy, -hz}, [3]float32{-hx, -hy, hz}, [3]float32{-hx, hy, hz}, [3]float32{-hx, hy, -hz})...)
		v = append(v, quad([3]float32{-hx, hy, hz}, [3]float32{hx, hy, hz}, [3]float32{hx, hy, -hz}, [3]float32{-hx, hy, -hz})...)
		v = append(v, quad([3]float32{-hx, -hy, -hz}, [3]float32{hx, -hy, -hz}, [3]float32{hx, -hy, hz}, [3]float32{-hx, -hy, hz})...)
		return v
	}
}

// quad emits two triangles for corners given counter-clockwise from bottom-left.
func quad(a, b, c, d [3]float32) []Vertex {
	va := Vertex{Position: a, UV: [2]float32{0, 1}}
	vb := Vertex{Position: b, UV: [2]float32{1, 1}}
	vc := Vertex{Position: c, UV: [2]float32{1, 0}}
	vd := Vertex{Position: d, UV: [2]float32{0, 0}}
	return []Vertex{va, vb, vc, va, vc, vd}
}
