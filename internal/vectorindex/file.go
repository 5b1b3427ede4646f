package vectorindex

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Vector file layout: a fixed header followed by the vectors in row-major
// order as little-endian float32. The header carries a magic tag, the
// vector dimension, and the vector count. Offset i in this file corresponds
// to record i in the metadata file.
var vectorFileMagic = [4]byte{'A', 'V', 'E', 'C'}

const maxVectorDimension = 1 << 16

// WriteVectors persists vectors to path. All vectors must share the
// given dimension.
func WriteVectors(path string, dim int, vectors [][]float32) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating vector file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)

	if _, err := w.Write(vectorFileMagic[:]); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(dim)); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(vectors))); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), dim)
		}
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("writing vector %d: %w", i, err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing vector file: %w", err)
	}
	return nil
}

// ReadVectors loads a vector file written by WriteVectors.
func ReadVectors(path string) (dim int, vectors [][]float32, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, fmt.Errorf("opening vector file: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return 0, nil, fmt.Errorf("reading header: %w", err)
	}
	if magic != vectorFileMagic {
		return 0, nil, fmt.Errorf("%s is not a vector file", path)
	}

	var dim32, count uint32
	if err := binary.Read(r, binary.LittleEndian, &dim32); err != nil {
		return 0, nil, fmt.Errorf("reading header: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return 0, nil, fmt.Errorf("reading header: %w", err)
	}
	if dim32 == 0 || dim32 > maxVectorDimension {
		return 0, nil, fmt.Errorf("invalid vector dimension %d", dim32)
	}

	vectors = make([][]float32, 0, count)
	for i := uint32(0); i < count; i++ {
		v := make([]float32, dim32)
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return 0, nil, fmt.Errorf("reading vector %d: %w", i, err)
		}
		vectors = append(vectors, v)
	}

	return int(dim32), vectors, nil
}
