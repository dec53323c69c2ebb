package attest

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"olas.info/attest/pkg/eas"
	"olas.info/attest/pkg/schema"
)

// Fetcher reads schemas and attestations. A missing one comes back as an
// errors.KindNotFound error.
type Fetcher struct {
	Registry Registry
	EAS      Attester
}

func (f *Fetcher) FetchSchema(ctx context.Context, uid common.Hash) (*eas.SchemaRecord, error) {
	return f.Registry.GetSchema(ctx, uid)
}

func (f *Fetcher) FetchAttestation(ctx context.Context, uid common.Hash) (*eas.Attestation, error) {
	return f.EAS.GetAttestation(ctx, uid)
}

// DecodeAttestation looks up the attestation's schema and decodes its data.
func (f *Fetcher) DecodeAttestation(ctx context.Context, att *eas.Attestation) ([]schema.Field, error) {
	rec, err := f.Registry.GetSchema(ctx, common.Hash(att.Schema))
	if err != nil {
		return nil, err
	}
	def, err := schema.Parse(rec.Schema)
	if err != nil {
		return nil, err
	}
	return schema.DecodePayload(def, att.Data)
}
