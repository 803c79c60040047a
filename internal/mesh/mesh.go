package mesh

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/cloudmesh/internal/pointcloud"
)

// ErrInvalidFace reports a face whose indices are out of range or repeated.
var ErrInvalidFace = errors.New("invalid face")

// Face is an ordered triple of vertex indices.
type Face [3]int

// Edge is an undirected vertex pair with Edge[0] < Edge[1].
type Edge [2]int

// Mesh is a triangle mesh. Treat it as immutable once built.
type Mesh struct {
	Vertices pointcloud.PointSet
	Faces    []Face
}

// NewMesh copies vertices and faces into a new Mesh and validates it.
func NewMesh(vertices pointcloud.PointSet, faces []Face) (*Mesh, error) {
	m := &Mesh{
		Vertices: vertices.Clone(),
		Faces:    append(make([]Face, 0, len(faces)), faces...),
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks that every face has three distinct in-range indices.
func (m *Mesh) Validate() error {
	n := len(m.Vertices)
	for i, f := range m.Faces {
		for _, v := range f {
			if v < 0 || v >= n {
				return fmt.Errorf("%w: face %d index %d out of range [0,%d)", ErrInvalidFace, i, v, n)
			}
		}
		if f[0] == f[1] || f[1] == f[2] || f[0] == f[2] {
			return fmt.Errorf("%w: face %d repeats a vertex %v", ErrInvalidFace, i, f)
		}
	}
	return nil
}

// Clone returns a deep copy of m.
func (m *Mesh) Clone() *Mesh {
	return &Mesh{
		Vertices: m.Vertices.Clone(),
		Faces:    append(make([]Face, 0, len(m.Faces)), m.Faces...),
	}
}

func (m *Mesh) corners(i int) (a, b, c r3.Vec) {
	f := m.Faces[i]
	return m.Vertices[f[0]].Vec(), m.Vertices[f[1]].Vec(), m.Vertices[f[2]].Vec()
}

// FaceNormal returns the unnormalized normal (b-a)×(c-a) of face i. Its
// length is twice the face area.
func (m *Mesh) FaceNormal(i int) r3.Vec {
	a, b, c := m.corners(i)
	return r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
}

// FaceArea returns the area of face i.
func (m *Mesh) FaceArea(i int) float64 {
	return r3.Norm(m.FaceNormal(i)) / 2
}

// SurfaceArea returns the summed area of all faces.
func (m *Mesh) SurfaceArea() float64 {
	var total float64
	for i := range m.Faces {
		total += m.FaceArea(i)
	}
	return total
}

// MaxEdgeLength returns the longest edge of face i.
func (m *Mesh) MaxEdgeLength(i int) float64 {
	a, b, c := m.corners(i)
	longest := r3.Norm(r3.Sub(b, a))
	if l := r3.Norm(r3.Sub(c, b)); l > longest {
		longest = l
	}
	if l := r3.Norm(r3.Sub(a, c)); l > longest {
		longest = l
	}
	return longest
}

// Edges returns the unique undirected edges of the mesh in ascending order.
func (m *Mesh) Edges() []Edge {
	seen := make(map[Edge]struct{}, len(m.Faces)*3/2)
	for _, f := range m.Faces {
		for k := 0; k < 3; k++ {
			u, v := f[k], f[(k+1)%3]
			if u > v {
				u, v = v, u
			}
			seen[Edge{u, v}] = struct{}{}
		}
	}
	edges := make([]Edge, 0, len(seen))
	for e := range seen {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i][0] != edges[j][0] {
			return edges[i][0] < edges[j][0]
		}
		return edges[i][1] < edges[j][1]
	})
	return edges
}

// ReferencedVertices returns how many distinct vertices appear in a face.
func (m *Mesh) ReferencedVertices() int {
	used := make([]bool, len(m.Vertices))
	count := 0
	for _, f := range m.Faces {
		for _, v := range f {
			if !used[v] {
				used[v] = true
				count++
			}
		}
	}
	return count
}
