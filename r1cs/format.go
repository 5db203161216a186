package r1cs

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

var r1csMagic = [4]byte{0x72, 0x31, 0x63, 0x73} // "r1cs"

const (
	sectionHeader      uint32 = 1
	sectionConstraints uint32 = 2
	sectionWire2Label  uint32 = 3
)

// fieldModulusLE is the bn254 scalar field modulus, little-endian, 32
// bytes: the only modulus this package will accept in a header section.
// Derived from fr.Modulus() rather than hardcoded, so it can never drift
// from the field gnark-crypto actually implements.
func fieldModulusLE() []byte {
	m := fr.Modulus()
	be := m.Bytes()
	out := make([]byte, 32)
	// m.Bytes() is big-endian, minimal length; right-align then reverse.
	copy(out[32-len(be):], be)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func readFieldLE(b []byte) fr.Element {
	rev := make([]byte, len(b))
	for i, c := range b {
		rev[len(b)-1-i] = c
	}
	var bi big.Int
	bi.SetBytes(rev)
	var e fr.Element
	e.SetBigInt(&bi)
	return e
}

func writeFieldLE(e *fr.Element) []byte {
	var bi big.Int
	e.BigInt(&bi)
	be := bi.Bytes()
	out := make([]byte, 32)
	copy(out[32-len(be):], be)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// ReadR1CS parses the binary R1CS file format: a 4-byte magic, a
// little-endian u32 version, a little-endian u32 section count, then that
// many (type u32, size u64, payload) sections. The header section (type 1)
// carries the field size and modulus and must be present; constraints
// (type 2) and the wire-to-label map (type 3) are read if present.
func ReadR1CS(r io.Reader) (*File, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("%w: reading magic: %v", ErrInvalidInput, err)
	}
	if magic != r1csMagic {
		return nil, fmt.Errorf("%w: bad magic %x", ErrInvalidInput, magic)
	}

	var version, nSections uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("%w: reading version: %v", ErrInvalidInput, err)
	}
	if err := binary.Read(r, binary.LittleEndian, &nSections); err != nil {
		return nil, fmt.Errorf("%w: reading section count: %v", ErrInvalidInput, err)
	}
	if version != 1 {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidInput, version)
	}

	f := &File{Version: version}
	haveHeader := false

	for s := uint32(0); s < nSections; s++ {
		var sType uint32
		var sSize uint64
		if err := binary.Read(r, binary.LittleEndian, &sType); err != nil {
			return nil, fmt.Errorf("%w: reading section %d type: %v", ErrInvalidInput, s, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &sSize); err != nil {
			return nil, fmt.Errorf("%w: reading section %d size: %v", ErrInvalidInput, s, err)
		}
		payload := make([]byte, sSize)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, fmt.Errorf("%w: reading section %d payload: %v", ErrInvalidInput, s, err)
		}
		body := bytes.NewReader(payload)

		switch sType {
		case sectionHeader:
			h, err := readHeader(body)
			if err != nil {
				return nil, err
			}
			f.Header = *h
			haveHeader = true
		case sectionConstraints:
			if !haveHeader {
				return nil, fmt.Errorf("%w: constraints section before header", ErrInvalidInput)
			}
			cs, err := readConstraints(body, f.Header.NConstraints)
			if err != nil {
				return nil, err
			}
			f.Constraints = cs
		case sectionWire2Label:
			if !haveHeader {
				return nil, fmt.Errorf("%w: wire2label section before header", ErrInvalidInput)
			}
			wm, err := readWire2Label(body, f.Header.NWires)
			if err != nil {
				return nil, err
			}
			f.WireMapping = wm
		default:
			// unknown section kinds are skipped, not rejected: forwards compatible.
		}
	}

	if !haveHeader {
		return nil, fmt.Errorf("%w: missing header section", ErrInvalidInput)
	}
	return f, nil
}

func readHeader(r io.Reader) (*Header, error) {
	var fieldSize uint32
	if err := binary.Read(r, binary.LittleEndian, &fieldSize); err != nil {
		return nil, fmt.Errorf("%w: reading field size: %v", ErrInvalidInput, err)
	}
	if fieldSize != 32 {
		return nil, fmt.Errorf("%w: unsupported field size %d", ErrInvalidInput, fieldSize)
	}
	modulus := make([]byte, fieldSize)
	if _, err := io.ReadFull(r, modulus); err != nil {
		return nil, fmt.Errorf("%w: reading modulus: %v", ErrInvalidInput, err)
	}
	if !bytes.Equal(modulus, fieldModulusLE()) {
		return nil, fmt.Errorf("%w: modulus does not match bn254 scalar field", ErrInvalidInput)
	}

	h := &Header{FieldByteSize: fieldSize, Modulus: modulus}
	fields := []*uint32{&h.NWires, &h.NPubOut, &h.NPubIn, &h.NPrvIn}
	for _, f := range fields {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return nil, fmt.Errorf("%w: reading header field: %v", ErrInvalidInput, err)
		}
	}
	if err := binary.Read(r, binary.LittleEndian, &h.NLabels); err != nil {
		return nil, fmt.Errorf("%w: reading n_labels: %v", ErrInvalidInput, err)
	}
	if err := binary.Read(r, binary.LittleEndian, &h.NConstraints); err != nil {
		return nil, fmt.Errorf("%w: reading n_constraints: %v", ErrInvalidInput, err)
	}
	return h, nil
}

func readConstraints(r io.Reader, n uint32) ([]Constraint, error) {
	cs := make([]Constraint, n)
	for i := range cs {
		a, err := readLC(r)
		if err != nil {
			return nil, err
		}
		b, err := readLC(r)
		if err != nil {
			return nil, err
		}
		c, err := readLC(r)
		if err != nil {
			return nil, err
		}
		cs[i] = Constraint{A: a, B: b, C: c}
	}
	return cs, nil
}

func readLC(r io.Reader) (LinearCombination, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("%w: reading lc term count: %v", ErrInvalidInput, err)
	}
	lc := make(LinearCombination, count)
	for i := range lc {
		var varIdx uint32
		if err := binary.Read(r, binary.LittleEndian, &varIdx); err != nil {
			return nil, fmt.Errorf("%w: reading lc var index: %v", ErrInvalidInput, err)
		}
		coeffBytes := make([]byte, 32)
		if _, err := io.ReadFull(r, coeffBytes); err != nil {
			return nil, fmt.Errorf("%w: reading lc coefficient: %v", ErrInvalidInput, err)
		}
		lc[i] = Term{Var: int(varIdx), Coeff: readFieldLE(coeffBytes)}
	}
	return lc, nil
}

func readWire2Label(r io.Reader, nWires uint32) ([]uint64, error) {
	labels := make([]uint64, nWires)
	for i := range labels {
		if err := binary.Read(r, binary.LittleEndian, &labels[i]); err != nil {
			return nil, fmt.Errorf("%w: reading wire label %d: %v", ErrInvalidInput, i, err)
		}
	}
	if nWires > 0 && labels[0] != 0 {
		return nil, fmt.Errorf("%w: wire 0 must map to label 0", ErrInvalidInput)
	}
	return labels, nil
}

// WriteTo serializes f in the same binary format ReadR1CS parses, writing
// the header, constraints, and wire2label sections (in that order) whenever
// each is non-empty. Each section's payload is built into a scratch buffer
// first so its size is known before the length-prefixed header is written.
func (f *File) WriteTo(w io.Writer) error {
	if _, err := w.Write(r1csMagic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, f.Version); err != nil {
		return err
	}

	nSections := uint32(1)
	if len(f.Constraints) > 0 {
		nSections++
	}
	if len(f.WireMapping) > 0 {
		nSections++
	}
	if err := binary.Write(w, binary.LittleEndian, nSections); err != nil {
		return err
	}

	if err := writeSection(w, sectionHeader, func(buf *bytes.Buffer) error {
		return writeHeader(buf, &f.Header)
	}); err != nil {
		return err
	}
	if len(f.Constraints) > 0 {
		if err := writeSection(w, sectionConstraints, func(buf *bytes.Buffer) error {
			return writeConstraints(buf, f.Constraints)
		}); err != nil {
			return err
		}
	}
	if len(f.WireMapping) > 0 {
		if err := writeSection(w, sectionWire2Label, func(buf *bytes.Buffer) error {
			return writeWire2Label(buf, f.WireMapping)
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeSection(w io.Writer, sType uint32, fill func(*bytes.Buffer) error) error {
	var buf bytes.Buffer
	if err := fill(&buf); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, sType); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(buf.Len())); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func writeHeader(buf *bytes.Buffer, h *Header) error {
	if err := binary.Write(buf, binary.LittleEndian, uint32(32)); err != nil {
		return err
	}
	mod := h.Modulus
	if mod == nil {
		mod = fieldModulusLE()
	}
	if _, err := buf.Write(mod); err != nil {
		return err
	}
	for _, v := range []uint32{h.NWires, h.NPubOut, h.NPubIn, h.NPrvIn} {
		if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	if err := binary.Write(buf, binary.LittleEndian, h.NLabels); err != nil {
		return err
	}
	return binary.Write(buf, binary.LittleEndian, h.NConstraints)
}

func writeConstraints(buf *bytes.Buffer, cs []Constraint) error {
	for _, c := range cs {
		for _, lc := range [3]LinearCombination{c.A, c.B, c.C} {
			if err := writeLC(buf, lc); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeLC(buf *bytes.Buffer, lc LinearCombination) error {
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(lc))); err != nil {
		return err
	}
	for _, t := range lc {
		if err := binary.Write(buf, binary.LittleEndian, uint32(t.Var)); err != nil {
			return err
		}
		coeff := t.Coeff
		if _, err := buf.Write(writeFieldLE(&coeff)); err != nil {
			return err
		}
	}
	return nil
}

func writeWire2Label(buf *bytes.Buffer, labels []uint64) error {
	for _, l := range labels {
		if err := binary.Write(buf, binary.LittleEndian, l); err != nil {
			return err
		}
	}
	return nil
}
