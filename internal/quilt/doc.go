// Package quilt tiles equally sized view buffers into a single quilt buffer.
//
// Buffers hold float32 samples in row-major order starting at the top-left
// pixel. Assemble places view row*columns+column at tile (row, column) and
// stacks tile rows from the top of the buffer downwards; AssembleOrdered can
// flip that for displays that expect the first row at the bottom.
package quilt
