package record

import (
	"fmt"
	"path/filepath"
)

func AttestationsPath(dir, network string) string {
	return filepath.Join(dir, fmt.Sprintf("%s-attestations.json", network))
}

func RegisteredSchemasPath(dir, network string) string {
	return filepath.Join(dir, fmt.Sprintf("%s-registered-schema-uids.txt", network))
}

func OffchainPath(dir string) string {
	return filepath.Join(dir, "offchain-attestations.json")
}

// Files are the per-network logs under one records directory.
type Files struct {
	Attestations *JSONArrayFile
	Schemas      *LineFile
	Offchain     *JSONArrayFile
}

func NewFiles(dir, network string) *Files {
	return &Files{
		Attestations: NewJSONArrayFile(AttestationsPath(dir, network), AttestationEntryOf),
		Schemas:      NewLineFile(RegisteredSchemasPath(dir, network), SchemaLineOf),
		Offchain:     NewJSONArrayFile(OffchainPath(dir), SignedEntryOf),
	}
}
