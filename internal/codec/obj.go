package codec

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/EliCDavis/polyform/formats/obj"
	"github.com/EliCDavis/polyform/modeling"
	"github.com/EliCDavis/vector/vector3"

	"github.com/banshee-data/cloudmesh/internal/mesh"
	"github.com/banshee-data/cloudmesh/internal/pointcloud"
)

// decodeOBJMesh reads an OBJ through polyform. Only vertices referenced by a
// face survive, renumbered in first-use order per group, and groups are
// concatenated. Each "f" record contributes the triangle of its first three
// corners.
func decodeOBJMesh(r io.Reader) (m *mesh.Mesh, err error) {
	// polyform indexes its vertex tables directly, so a short record or a
	// face referencing a missing or negative vertex panics inside ReadMesh.
	defer func() {
		if rec := recover(); rec != nil {
			m, err = nil, fmt.Errorf("malformed obj: %v", rec)
		}
	}()

	groups, _, err := obj.ReadMesh(r)
	if err != nil {
		return nil, err
	}
	var (
		vertices pointcloud.PointSet
		faces    []mesh.Face
	)
	for _, g := range groups {
		if !g.Mesh.HasFloat3Attribute(modeling.PositionAttribute) {
			continue
		}
		faces = appendTriangles(faces, g.Mesh, len(vertices))
		vertices = append(vertices, positionsOf(g.Mesh)...)
	}
	return mesh.NewMesh(vertices, faces)
}

// decodeOBJPoints returns every "v" record in file order, including vertices
// no face references.
func decodeOBJPoints(r io.Reader) (pointcloud.PointSet, error) {
	var out pointcloud.PointSet
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || fields[0] != "v" {
			continue
		}
		if len(fields) < 4 {
			return nil, fmt.Errorf("obj line %d: vertex needs 3 coordinates", line)
		}
		p, err := parsePoint(fields[1:4])
		if err != nil {
			return nil, fmt.Errorf("obj line %d: %w", line, err)
		}
		out = append(out, p)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// encodeOBJ buffers w; polyform issues one write per record.
func encodeOBJ(w io.Writer, m *mesh.Mesh) error {
	bw := bufio.NewWriter(w)
	if err := obj.WriteMesh(toModeling(m), "", bw); err != nil {
		return err
	}
	return bw.Flush()
}

// toModeling converts m into a polyform triangle mesh carrying positions
// only.
func toModeling(m *mesh.Mesh) modeling.Mesh {
	positions := make([]vector3.Float64, len(m.Vertices))
	for i, p := range m.Vertices {
		positions[i] = vector3.New(p.X, p.Y, p.Z)
	}
	indices := make([]int, 0, 3*len(m.Faces))
	for _, f := range m.Faces {
		indices = append(indices, f[0], f[1], f[2])
	}
	return modeling.NewTriangleMesh(indices).
		SetFloat3Attribute(modeling.PositionAttribute, positions)
}
