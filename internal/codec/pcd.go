package codec

import (
	"fmt"
	"io"

	"github.com/seqsense/pcgol/mat"
	"github.com/seqsense/pcgol/pc"

	"github.com/banshee-data/cloudmesh/internal/pointcloud"
)

func decodePCD(r io.Reader) (pointcloud.PointSet, error) {
	pp, err := pc.Unmarshal(r)
	if err != nil {
		return nil, err
	}
	it, err := pp.Vec3Iterator()
	if err != nil {
		return nil, fmt.Errorf("pcd has no x/y/z fields: %w", err)
	}
	out := make(pointcloud.PointSet, 0, pp.Points)
	for ; it.IsValid(); it.Incr() {
		v := it.Vec3()
		out = append(out, pointcloud.Point3D{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])})
	}
	return out, nil
}

// encodePCD writes float32 x/y/z fields. Coordinates lose precision beyond
// single-precision range.
func encodePCD(w io.Writer, points pointcloud.PointSet) error {
	pp := &pc.PointCloud{
		PointCloudHeader: pc.PointCloudHeader{
			Fields: []string{"x", "y", "z"},
			Size:   []int{4, 4, 4},
			Type:   []string{"F", "F", "F"},
			Count:  []int{1, 1, 1},
			Width:  len(points),
			Height: 1,
		},
		Points: len(points),
	}
	pp.Data = make([]byte, len(points)*pp.Stride())

	if len(points) > 0 {
		it, err := pp.Vec3Iterator()
		if err != nil {
			return err
		}
		for _, p := range points {
			it.SetVec3(mat.Vec3{float32(p.X), float32(p.Y), float32(p.Z)})
			it.Incr()
		}
	}
	return pc.Marshal(pp, w)
}
