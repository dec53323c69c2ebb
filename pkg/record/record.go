package record

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type Kind string

const (
	KindSchema    Kind = "schema"
	KindOnchain   Kind = "onchain"
	KindOffchain  Kind = "offchain"
	KindDelegated Kind = "delegated"
	KindOlasHub   Kind = "olashub"
)

// Record is one entry in the local audit trail. The chain stays the source
// of truth; these are for the operator.
type Record struct {
	Kind           Kind
	Network        string
	Schema         string
	SchemaUID      common.Hash
	AttestationUID common.Hash
	TxHash         common.Hash
	// the full signed object, for off-chain attestations
	Signed    any
	CreatedAt time.Time
}

// Log is an append-only sink for records.
type Log interface {
	Append(ctx context.Context, rec Record) error
}

// Multi appends to each log in order and stops at the first failure.
type Multi []Log

func (m Multi) Append(ctx context.Context, rec Record) error {
	for _, l := range m {
		if err := l.Append(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// AttestationEntry is how attestations appear in <network>-attestations.json.
type AttestationEntry struct {
	SchemaUID      string `json:"schemaUID"`
	AttestationUID string `json:"attestationUID"`
}

func AttestationEntryOf(rec Record) any {
	return AttestationEntry{
		SchemaUID:      rec.SchemaUID.Hex(),
		AttestationUID: rec.AttestationUID.Hex(),
	}
}

func SignedEntryOf(rec Record) any {
	return rec.Signed
}

// SchemaLineOf is the "<schema> <uid>" line of the registered schema log.
func SchemaLineOf(rec Record) string {
	return rec.Schema + " " + rec.SchemaUID.Hex()
}
