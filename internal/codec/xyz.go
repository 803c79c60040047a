package codec

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/cloudmesh/internal/pointcloud"
)

func parsePoint(fields []string) (pointcloud.Point3D, error) {
	var v [3]float64
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return pointcloud.Point3D{}, fmt.Errorf("bad coordinate %q", fields[i])
		}
		v[i] = f
	}
	return pointcloud.Point3D{X: v[0], Y: v[1], Z: v[2]}, nil
}

// decodeXYZ reads one point per line from the first three columns.
// Columns may be separated by whitespace, commas or semicolons; extra columns
// such as intensity are ignored. Blank lines and lines starting with '#' or
// '//' are skipped, as is a leading header row that fails to parse.
func decodeXYZ(r io.Reader) (pointcloud.PointSet, error) {
	var out pointcloud.PointSet
	sc := bufio.NewScanner(r)
	line := 0
	headerSkipped := false
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") || strings.HasPrefix(text, "//") {
			continue
		}
		fields := strings.FieldsFunc(text, func(r rune) bool {
			return r == ' ' || r == '\t' || r == ',' || r == ';'
		})
		if len(fields) < 3 {
			return nil, fmt.Errorf("xyz line %d: need 3 columns, got %d", line, len(fields))
		}
		p, err := parsePoint(fields)
		if err != nil {
			if len(out) == 0 && !headerSkipped {
				headerSkipped = true
				continue
			}
			return nil, fmt.Errorf("xyz line %d: %w", line, err)
		}
		out = append(out, p)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func encodeXYZ(w io.Writer, points pointcloud.PointSet) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "# X Y Z")
	for _, p := range points {
		fmt.Fprintf(bw, "%s %s %s\n", formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Z))
	}
	return bw.Flush()
}
