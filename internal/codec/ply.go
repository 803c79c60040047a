package codec

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/EliCDavis/polyform/formats/ply"
	"github.com/EliCDavis/polyform/modeling"

	"github.com/banshee-data/cloudmesh/internal/mesh"
	"github.com/banshee-data/cloudmesh/internal/pointcloud"
)

func decodePLY(r io.Reader) (*mesh.Mesh, error) {
	pm, err := ply.ReadMesh(r)
	if err != nil {
		return nil, err
	}
	if !pm.HasFloat3Attribute(modeling.PositionAttribute) {
		return nil, fmt.Errorf("ply has no %s attribute", modeling.PositionAttribute)
	}

	vertices := positionsOf(*pm)
	var faces []mesh.Face
	switch pm.Topology() {
	case modeling.TriangleTopology:
		faces = appendTriangles(nil, *pm, 0)
	case modeling.PointTopology:
	default:
		return nil, fmt.Errorf("%w: ply topology %d", ErrUnsupportedFormat, pm.Topology())
	}
	return mesh.NewMesh(vertices, faces)
}

// positionsOf copies the position attribute of a polyform mesh.
func positionsOf(pm modeling.Mesh) pointcloud.PointSet {
	pos := pm.Float3Attribute(modeling.PositionAttribute)
	out := make(pointcloud.PointSet, pos.Len())
	for i := range out {
		p := pos.At(i)
		out[i] = pointcloud.Point3D{X: p.X(), Y: p.Y(), Z: p.Z()}
	}
	return out
}

// appendTriangles appends the triangle list of pm to faces, shifting every
// index by offset.
func appendTriangles(faces []mesh.Face, pm modeling.Mesh, offset int) []mesh.Face {
	idx := pm.Indices()
	for i := 0; i+2 < idx.Len(); i += 3 {
		faces = append(faces, mesh.Face{idx.At(i) + offset, idx.At(i+1) + offset, idx.At(i+2) + offset})
	}
	return faces
}

// encodePLY writes an ASCII PLY with double-precision vertices and, when
// present, triangle faces.
func encodePLY(w io.Writer, m *mesh.Mesh) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "ply")
	fmt.Fprintln(bw, "format ascii 1.0")
	fmt.Fprintln(bw, "comment cloudmesh")
	fmt.Fprintf(bw, "element vertex %d\n", len(m.Vertices))
	fmt.Fprintln(bw, "property double x")
	fmt.Fprintln(bw, "property double y")
	fmt.Fprintln(bw, "property double z")
	if len(m.Faces) > 0 {
		fmt.Fprintf(bw, "element face %d\n", len(m.Faces))
		fmt.Fprintln(bw, "property list uchar int vertex_indices")
	}
	fmt.Fprintln(bw, "end_header")

	for _, p := range m.Vertices {
		fmt.Fprintf(bw, "%s %s %s\n", formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Z))
	}
	for _, f := range m.Faces {
		fmt.Fprintf(bw, "3 %d %d %d\n", f[0], f[1], f[2])
	}
	return bw.Flush()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
