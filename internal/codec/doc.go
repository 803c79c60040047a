// Package codec reads and writes point sets and meshes.
//
// Responsibilities:
//   - Point set decoding from PCD (via pcgol), PLY (via polyform), OBJ
//     vertex records and whitespace/comma separated XYZ/ASC text.
//   - Point set and mesh encoding to PCD, ASCII PLY, OBJ and XYZ.
//   - Format detection from file extensions.
//
// Dependency rule: codec depends on pointcloud and mesh only. It never
// runs pipeline stages.
package codec
