package wasm

import (
	"crypto/sha256"
	"encoding/hex"
)

// BinaryStats summarizes one wasm file for reporting and deduplication.
//
// Signature is structural: it hashes only the instruction mnemonics of each
// body, so two builds of the same code that differ in literals, indices or
// debug sections still collide. FileSHA256 hashes the raw bytes.
type BinaryStats struct {
	Path              string
	FileSHA256        [sha256.Size]byte
	Signature         [sha256.Size]byte
	FileSize          int
	FunctionBodies    int
	FunctionBodyBytes int
	InstructionCount  int
}

// Stats decodes data and computes its BinaryStats.
func Stats(path string, data []byte) (*BinaryStats, error) {
	m, err := ParseModule(data)
	if err != nil {
		return nil, err
	}

	s := &BinaryStats{
		Path:       path,
		FileSHA256: sha256.Sum256(data),
		FileSize:   len(data),
	}

	sig := sha256.New()
	for _, fn := range m.Functions {
		instrs, err := fn.Body.Instructions()
		if err != nil {
			return nil, err
		}
		body := sha256.New()
		for _, instr := range instrs {
			name, err := InstrName(instr)
			if err != nil {
				return nil, err
			}
			body.Write([]byte(name))
		}
		sig.Write(body.Sum(nil))

		s.FunctionBodies++
		s.FunctionBodyBytes += len(fn.Body.Bytes)
		s.InstructionCount += len(instrs)
	}
	sig.Sum(s.Signature[:0])

	return s, nil
}

// SignatureHex returns the structural signature as lowercase hex.
func (s *BinaryStats) SignatureHex() string {
	return hex.EncodeToString(s.Signature[:])
}

// FileSHA256Hex returns the file content hash as lowercase hex.
func (s *BinaryStats) FileSHA256Hex() string {
	return hex.EncodeToString(s.FileSHA256[:])
}
