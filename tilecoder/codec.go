package tilecoder

import (
	"encoding/binary"
	"fmt"
	"io"
)

// EncodedSize returns the number of bytes Save writes for a table of this size.
func (ct *CollisionTable) EncodedSize() int {
	return 8 + 8*ct.size + 8*len(ct.seq)
}

// Save writes the table's safety slots and multiplier sequence, always
// little-endian regardless of host, so weight checkpoints round-trip exactly.
func (ct *CollisionTable) Save(w io.Writer) error {
	header := make([]byte, 8)
	binary.LittleEndian.PutUint64(header, uint64(ct.size))
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("tilecoder: write header: %w", err)
	}

	buf := make([]byte, 8*len(ct.safe))
	for i, v := range ct.safe {
		binary.LittleEndian.PutUint64(buf[i*8:], uint64(v))
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("tilecoder: write safety slots: %w", err)
	}

	seqBuf := make([]byte, 8*len(ct.seq))
	for i, v := range ct.seq {
		binary.LittleEndian.PutUint64(seqBuf[i*8:], uint64(v))
	}
	if _, err := w.Write(seqBuf); err != nil {
		return fmt.Errorf("tilecoder: write multiplier sequence: %w", err)
	}
	return nil
}

// ErrSizeMismatch is returned by Restore when the encoded table size does not
// match the receiver's size: a file written by an incompatible build.
var ErrSizeMismatch = fmt.Errorf("tilecoder: encoded collision table size mismatch")

// Restore reads a table previously written by Save into ct, which must
// already be allocated at the matching size.
func (ct *CollisionTable) Restore(r io.Reader) error {
	header := make([]byte, 8)
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("tilecoder: read header: %w", err)
	}
	size := int(binary.LittleEndian.Uint64(header))
	if size != ct.size {
		return ErrSizeMismatch
	}

	buf := make([]byte, 8*len(ct.safe))
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("tilecoder: read safety slots: %w", err)
	}
	for i := range ct.safe {
		ct.safe[i] = int64(binary.LittleEndian.Uint64(buf[i*8:]))
	}

	seqBuf := make([]byte, 8*len(ct.seq))
	if _, err := io.ReadFull(r, seqBuf); err != nil {
		return fmt.Errorf("tilecoder: read multiplier sequence: %w", err)
	}
	for i := range ct.seq {
		ct.seq[i] = int64(binary.LittleEndian.Uint64(seqBuf[i*8:]))
	}
	return nil
}
