package r1cs

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

var wtnsMagic = [4]byte{0x77, 0x74, 0x6E, 0x73} // "wtns"

const wtnsVersion uint32 = 2

const (
	wtnsSectionHeader  uint32 = 1
	wtnsSectionWitness uint32 = 2
)

// ReadWitnessJSON parses the JSON witness format: an array of decimal
// values, each quoted as a string, one per line
// (`[`, ` "1"`, `,"257"`, ..., `]`).
func ReadWitnessJSON(r io.Reader) ([]fr.Element, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	var raw []string
	if err := jsonUnmarshalStrings(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	out := make([]fr.Element, len(raw))
	for i, s := range raw {
		var bi big.Int
		if _, ok := bi.SetString(s, 10); !ok {
			return nil, fmt.Errorf("%w: witness entry %d is not a decimal integer: %q", ErrInvalidInput, i, s)
		}
		out[i].SetBigInt(&bi)
	}
	return out, nil
}

// WriteWitnessJSON writes the same format ReadWitnessJSON parses, matching
// the original file byte-for-byte: `[` opens, each value is a quoted
// decimal string on its own line (the first prefixed with a space, the
// rest with a leading comma), `]` closes.
func WriteWitnessJSON(w io.Writer, values []fr.Element) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("[\n"); err != nil {
		return err
	}
	for i, v := range values {
		var bi big.Int
		e := v
		e.BigInt(&bi)
		if i == 0 {
			if _, err := fmt.Fprintf(bw, " %q", bi.String()); err != nil {
				return err
			}
		} else {
			if _, err := fmt.Fprintf(bw, ",%q", bi.String()); err != nil {
				return err
			}
		}
		if _, err := bw.WriteString("\n"); err != nil {
			return err
		}
	}
	if _, err := bw.WriteString("]\n"); err != nil {
		return err
	}
	return bw.Flush()
}

// jsonUnmarshalStrings decodes a JSON array of strings without pulling in
// encoding/json's struct-tag machinery: this file format is a flat array
// of quoted decimals, not a general document.
func jsonUnmarshalStrings(data []byte, out *[]string) error {
	s := strings.TrimSpace(string(data))
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return fmt.Errorf("not a JSON array")
	}
	s = strings.TrimSpace(s[1 : len(s)-1])
	if s == "" {
		*out = nil
		return nil
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		part = strings.TrimPrefix(part, `"`)
		part = strings.TrimSuffix(part, `"`)
		result = append(result, part)
	}
	*out = result
	return nil
}

// ReadWitnessBinary parses the binary .wtns format: a 4-byte magic, a u32
// version, a u32 section count, then a header section (field_size, prime,
// n_witness) and a witness section of packed field elements.
func ReadWitnessBinary(r io.Reader) ([]fr.Element, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("%w: reading magic: %v", ErrInvalidInput, err)
	}
	if magic != wtnsMagic {
		return nil, fmt.Errorf("%w: bad magic %x", ErrInvalidInput, magic)
	}

	var version, nSections uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("%w: reading version: %v", ErrInvalidInput, err)
	}
	if err := binary.Read(r, binary.LittleEndian, &nSections); err != nil {
		return nil, fmt.Errorf("%w: reading section count: %v", ErrInvalidInput, err)
	}
	if version != wtnsVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidInput, version)
	}

	var fieldSize uint32
	var nWitness uint32
	var values []fr.Element
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
		case wtnsSectionHeader:
			if err := binary.Read(body, binary.LittleEndian, &fieldSize); err != nil {
				return nil, fmt.Errorf("%w: reading field size: %v", ErrInvalidInput, err)
			}
			if fieldSize != 32 {
				return nil, fmt.Errorf("%w: unsupported field size %d", ErrInvalidInput, fieldSize)
			}
			prime := make([]byte, fieldSize)
			if _, err := io.ReadFull(body, prime); err != nil {
				return nil, fmt.Errorf("%w: reading prime: %v", ErrInvalidInput, err)
			}
			if !bytes.Equal(prime, fieldModulusLE()) {
				return nil, fmt.Errorf("%w: modulus does not match bn254 scalar field", ErrInvalidInput)
			}
			if err := binary.Read(body, binary.LittleEndian, &nWitness); err != nil {
				return nil, fmt.Errorf("%w: reading n_witness: %v", ErrInvalidInput, err)
			}
			haveHeader = true
		case wtnsSectionWitness:
			if !haveHeader {
				return nil, fmt.Errorf("%w: witness section before header", ErrInvalidInput)
			}
			values = make([]fr.Element, nWitness)
			for i := range values {
				elemBytes := make([]byte, fieldSize)
				if _, err := io.ReadFull(body, elemBytes); err != nil {
					return nil, fmt.Errorf("%w: reading witness element %d: %v", ErrInvalidInput, i, err)
				}
				values[i] = readFieldLE(elemBytes)
			}
		default:
			// forwards-compatible: unknown sections are ignored.
		}
	}

	if !haveHeader {
		return nil, fmt.Errorf("%w: missing header section", ErrInvalidInput)
	}
	return values, nil
}

// WriteWitnessBinary writes the same .wtns format ReadWitnessBinary parses.
func WriteWitnessBinary(w io.Writer, values []fr.Element) error {
	if _, err := w.Write(wtnsMagic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, wtnsVersion); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(2)); err != nil {
		return err
	}

	if err := writeSection(w, wtnsSectionHeader, func(buf *bytes.Buffer) error {
		if err := binary.Write(buf, binary.LittleEndian, uint32(32)); err != nil {
			return err
		}
		if _, err := buf.Write(fieldModulusLE()); err != nil {
			return err
		}
		return binary.Write(buf, binary.LittleEndian, uint32(len(values)))
	}); err != nil {
		return err
	}

	return writeSection(w, wtnsSectionWitness, func(buf *bytes.Buffer) error {
		for _, v := range values {
			e := v
			if _, err := buf.Write(writeFieldLE(&e)); err != nil {
				return err
			}
		}
		return nil
	})
}
