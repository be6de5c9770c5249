package voxel

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// NumPy NPY version 1.0 serialization of the occupancy grid. The layout is
// byte-exact with numpy.save of a C-ordered uint8 array of shape
// (planar, planar, axial) so array files interoperate with the numeric
// tooling downstream.

var npyMagic = []byte("\x93NUMPY\x01\x00")

// WriteNPY serializes the grid to w.
func (g *Grid) WriteNPY(w io.Writer) error {
	header := fmt.Sprintf("{'descr': '|u1', 'fortran_order': False, 'shape': (%d, %d, %d), }",
		g.nx, g.ny, g.nz)
	// Total header size (magic + length field + dict + newline) is padded
	// with spaces to a multiple of 64.
	unpadded := len(npyMagic) + 2 + len(header) + 1
	pad := (64 - unpadded%64) % 64
	header += strings.Repeat(" ", pad) + "\n"

	if _, err := w.Write(npyMagic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(header))); err != nil {
		return err
	}
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	_, err := w.Write(g.data)
	return err
}

// ReadNPY deserializes a grid written by WriteNPY (or numpy.save). The plug
// aspect is recovered from the stored shape.
func ReadNPY(r io.Reader) (*Grid, error) {
	br := bufio.NewReader(r)
	magic := make([]byte, len(npyMagic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, fmt.Errorf("voxel: reading npy magic: %w", err)
	}
	if !bytes.Equal(magic, npyMagic) {
		return nil, fmt.Errorf("voxel: not an npy v1.0 file")
	}
	var hlen uint16
	if err := binary.Read(br, binary.LittleEndian, &hlen); err != nil {
		return nil, fmt.Errorf("voxel: reading npy header length: %w", err)
	}
	header := make([]byte, hlen)
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, fmt.Errorf("voxel: reading npy header: %w", err)
	}
	nx, ny, nz, err := parseNPYHeader(string(header))
	if err != nil {
		return nil, err
	}
	if nx != ny {
		return nil, fmt.Errorf("voxel: planar resolutions differ: %d vs %d", nx, ny)
	}
	data := make([]uint8, nx*ny*nz)
	if _, err := io.ReadFull(br, data); err != nil {
		return nil, fmt.Errorf("voxel: reading npy payload: %w", err)
	}
	for _, v := range data {
		if v > 1 {
			return nil, fmt.Errorf("voxel: occupancy value %d outside {0,1}", v)
		}
	}
	return &Grid{
		data:   data,
		nx:     nx,
		ny:     ny,
		nz:     nz,
		aspect: float64(nx) / (2 * float64(nz)),
	}, nil
}

func parseNPYHeader(header string) (nx, ny, nz int, err error) {
	if !strings.Contains(header, "'descr': '|u1'") {
		return 0, 0, 0, fmt.Errorf("voxel: npy dtype is not |u1: %s", strings.TrimSpace(header))
	}
	if !strings.Contains(header, "'fortran_order': False") {
		return 0, 0, 0, fmt.Errorf("voxel: fortran-ordered npy files are not supported")
	}
	lparen := strings.Index(header, "(")
	rparen := strings.Index(header, ")")
	if lparen < 0 || rparen < lparen {
		return 0, 0, 0, fmt.Errorf("voxel: malformed npy shape in header")
	}
	var dims []int
	for _, field := range strings.Split(header[lparen+1:rparen], ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		d, err := strconv.Atoi(field)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("voxel: malformed npy shape element %q", field)
		}
		dims = append(dims, d)
	}
	if len(dims) != 3 {
		return 0, 0, 0, fmt.Errorf("voxel: expected 3-dimensional grid, got shape %v", dims)
	}
	return dims[0], dims[1], dims[2], nil
}

// Save writes the grid to an .npy file.
func (g *Grid) Save(path string) error {
	if filepath.Ext(path) != ".npy" {
		return fmt.Errorf("voxel: refusing to write grid to %q: want .npy extension", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := g.WriteNPY(w); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}

// Load reads a grid from an .npy file.
func Load(path string) (*Grid, error) {
	if filepath.Ext(path) != ".npy" {
		return nil, fmt.Errorf("voxel: %q does not have the .npy extension", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadNPY(f)
}
