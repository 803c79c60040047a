package mesh

// PruneLongEdges returns a copy of m without the faces that have an edge
// longer than maxLen. Vertices are kept so indices stay stable. maxLen <= 0
// disables pruning.
func PruneLongEdges(m *Mesh, maxLen float64) *Mesh {
	out := &Mesh{Vertices: m.Vertices.Clone(), Faces: make([]Face, 0, len(m.Faces))}
	for i, f := range m.Faces {
		if maxLen > 0 && m.MaxEdgeLength(i) > maxLen {
			continue
		}
		out.Faces = append(out.Faces, f)
	}
	return out
}

// FlagSmallFaces marks each face whose area is below minArea. minArea <= 0
// flags nothing.
func FlagSmallFaces(m *Mesh, minArea float64) []bool {
	flags := make([]bool, len(m.Faces))
	if minArea <= 0 {
		return flags
	}
	for i := range m.Faces {
		flags[i] = m.FaceArea(i) < minArea
	}
	return flags
}

// CountFlags returns how many entries of flags are set.
func CountFlags(flags []bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}
