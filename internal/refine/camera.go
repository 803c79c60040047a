package refine

import (
	"math"

	"github.com/banshee-data/cloudmesh/internal/pointcloud"
)

// Camera parameter indices.
const (
	ParamFocal = iota
	ParamPrincipalX
	ParamPrincipalY
	ParamK1
	ParamK2
	ParamReserved
	NumCameraParams
)

// CameraModel is [focalLength, principalX, principalY, k1, k2, reserved].
// A zero focal length is the degenerate "no projection" model.
type CameraModel [NumCameraParams]float64

// CameraFromSlice copies up to six values into a CameraModel.
func CameraFromSlice(v []float64) CameraModel {
	var c CameraModel
	copy(c[:], v)
	return c
}

// Focal returns the focal length.
func (c CameraModel) Focal() float64 { return c[ParamFocal] }

// distortion normalizes (x, y) by the principal point and focal length and
// returns the normalized coordinates with the radial factor 1 + k1 r² + k2 r⁴.
func (c CameraModel) distortion(p pointcloud.Point3D) (xn, yn, d float64) {
	f := c[ParamFocal]
	xn = (p.X - c[ParamPrincipalX]) / f
	yn = (p.Y - c[ParamPrincipalY]) / f
	r2 := xn*xn + yn*yn
	d = 1 + c[ParamK1]*r2 + c[ParamK2]*r2*r2
	return xn, yn, d
}

// Project applies radial distortion to (x, y) and leaves z untouched. With a
// zero focal length it is the identity.
func (c CameraModel) Project(p pointcloud.Point3D) pointcloud.Point3D {
	f := c[ParamFocal]
	if f == 0 {
		return p
	}
	xn, yn, d := c.distortion(p)
	return pointcloud.Point3D{
		X: xn*d*f + c[ParamPrincipalX],
		Y: yn*d*f + c[ParamPrincipalY],
		Z: p.Z,
	}
}

// Undistort is the inverse mapping of Project: the radial factor divides
// instead of multiplying. Points whose factor is zero or non-finite are
// returned unchanged.
func (c CameraModel) Undistort(p pointcloud.Point3D) pointcloud.Point3D {
	f := c[ParamFocal]
	if f == 0 {
		return p
	}
	xn, yn, d := c.distortion(p)
	if d == 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return p
	}
	return pointcloud.Point3D{
		X: xn/d*f + c[ParamPrincipalX],
		Y: yn/d*f + c[ParamPrincipalY],
		Z: p.Z,
	}
}

// reprojectionResiduals returns the residual function Project(p_i) - p_i
// over every coordinate of points, for use with LevenbergMarquardt.
func reprojectionResiduals(points pointcloud.PointSet) ResidualFunc {
	return func(dst, params []float64) {
		cam := CameraFromSlice(params)
		for i, p := range points {
			q := cam.Project(p)
			dst[3*i] = q.X - p.X
			dst[3*i+1] = q.Y - p.Y
			dst[3*i+2] = q.Z - p.Z
		}
	}
}
