package codec

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/banshee-data/cloudmesh/internal/mesh"
	"github.com/banshee-data/cloudmesh/internal/monitoring"
	"github.com/banshee-data/cloudmesh/internal/pointcloud"
)

// Format identifies an on-disk encoding.
type Format string

const (
	FormatPCD Format = "pcd"
	FormatPLY Format = "ply"
	FormatOBJ Format = "obj"
	FormatXYZ Format = "xyz"
)

// ErrUnsupportedFormat reports an extension or format with no codec, or a
// format that cannot carry the requested data.
var ErrUnsupportedFormat = errors.New("unsupported format")

// FormatFromPath maps a file extension to a Format. .asc and .txt are read
// as XYZ text.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pcd":
		return FormatPCD, nil
	case ".ply":
		return FormatPLY, nil
	case ".obj":
		return FormatOBJ, nil
	case ".xyz", ".asc", ".txt", ".csv":
		return FormatXYZ, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

// DecodePoints reads a point set in the given format.
func DecodePoints(r io.Reader, f Format) (pointcloud.PointSet, error) {
	switch f {
	case FormatPCD:
		return decodePCD(r)
	case FormatPLY:
		m, err := decodePLY(r)
		if err != nil {
			return nil, err
		}
		return m.Vertices, nil
	case FormatOBJ:
		return decodeOBJPoints(r)
	case FormatXYZ:
		return decodeXYZ(r)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}

// DecodeMesh reads vertices and triangles. Formats without faces yield a
// mesh with no faces.
func DecodeMesh(r io.Reader, f Format) (*mesh.Mesh, error) {
	switch f {
	case FormatPLY:
		return decodePLY(r)
	case FormatOBJ:
		return decodeOBJMesh(r)
	case FormatPCD, FormatXYZ:
		pts, err := DecodePoints(r, f)
		if err != nil {
			return nil, err
		}
		return mesh.NewMesh(pts, nil)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}

// EncodePoints writes a point set in the given format.
func EncodePoints(w io.Writer, f Format, points pointcloud.PointSet) error {
	switch f {
	case FormatPCD:
		return encodePCD(w, points)
	case FormatPLY:
		return encodePLY(w, &mesh.Mesh{Vertices: points})
	case FormatOBJ:
		return encodeOBJ(w, &mesh.Mesh{Vertices: points})
	case FormatXYZ:
		return encodeXYZ(w, points)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}

// EncodeMesh writes a mesh. Only PLY and OBJ carry faces.
func EncodeMesh(w io.Writer, f Format, m *mesh.Mesh) error {
	switch f {
	case FormatPLY:
		return encodePLY(w, m)
	case FormatOBJ:
		return encodeOBJ(w, m)
	}
	return fmt.Errorf("%w: %q cannot store faces", ErrUnsupportedFormat, f)
}

// ReadPoints loads a point set from path, choosing the codec by extension.
func ReadPoints(path string) (pointcloud.PointSet, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open point set: %w", err)
	}
	defer file.Close()

	pts, err := DecodePoints(file, f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	monitoring.Debugf("[codec] read %d points from %s", len(pts), path)
	return pts, nil
}

// WritePoints saves points to path, choosing the codec by extension.
func WritePoints(path string, points pointcloud.PointSet) error {
	f, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	return writeFile(path, func(w io.Writer) error { return EncodePoints(w, f, points) })
}

// WriteMesh saves m to path, choosing the codec by extension.
func WriteMesh(path string, m *mesh.Mesh) error {
	f, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	return writeFile(path, func(w io.Writer) error { return EncodeMesh(w, f, m) })
}

func writeFile(path string, encode func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := encode(file); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	monitoring.Debugf("[codec] wrote %s", path)
	return nil
}
