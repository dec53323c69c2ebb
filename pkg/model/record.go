package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"olas.info/attest/pkg/record"
)

// Record is the audit database's copy of a record.Record.
type Record struct {
	ID             string    `json:"id"             gorm:"primaryKey"`
	Kind           string    `json:"kind"           gorm:"index:network_kind"`
	Network        string    `json:"network"        gorm:"index:network_kind"`
	Schema         string    `json:"schema,omitempty"`
	SchemaUID      string    `json:"schemaUID"      gorm:"index"`
	AttestationUID string    `json:"attestationUID,omitempty"`
	TxHash         string    `json:"txHash,omitempty"`
	Signed         string    `json:"signed,omitempty"`
	CreatedAt      time.Time `json:"createdAt"      gorm:"index"`
}

func hexOrEmpty(h [32]byte) string {
	if h == ([32]byte{}) {
		return ""
	}
	return fmt.Sprintf("0x%x", h[:])
}

// Append implements record.Log.
func (m *DBModel) Append(ctx context.Context, rec record.Record) error {
	uu, err := uuid.NewV7()
	if err != nil {
		return err
	}
	row := Record{
		ID:             uu.String(),
		Kind:           string(rec.Kind),
		Network:        rec.Network,
		Schema:         rec.Schema,
		SchemaUID:      hexOrEmpty(rec.SchemaUID),
		AttestationUID: hexOrEmpty(rec.AttestationUID),
		TxHash:         hexOrEmpty(rec.TxHash),
		CreatedAt:      rec.CreatedAt,
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	if rec.Signed != nil {
		bs, err := json.Marshal(rec.Signed)
		if err != nil {
			return fmt.Errorf("error encoding signed attestation: %w", err)
		}
		row.Signed = string(bs)
	}
	err = m.DB.WithContext(ctx).Model(Record{}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("error saving record: %w", err)
	}
	return nil
}

// ListRecords returns records oldest first. Empty network or kind matches all.
func (m *DBModel) ListRecords(network string, kind record.Kind) ([]Record, error) {
	recs := []Record{}
	q := m.DB.Model(Record{})
	if network != "" {
		q = q.Where("network = ?", network)
	}
	if kind != "" {
		q = q.Where("kind = ?", string(kind))
	}
	err := q.Order("created_at ASC").Order("id ASC").Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("error retrieving records: %w", err)
	}
	return recs, nil
}

// LatestRecord returns nil if nothing matches.
func (m *DBModel) LatestRecord(network string, kind record.Kind) (*Record, error) {
	var rec Record
	q := m.DB.Model(Record{})
	if network != "" {
		q = q.Where("network = ?", network)
	}
	if kind != "" {
		q = q.Where("kind = ?", string(kind))
	}
	err := q.Order("created_at DESC").Order("id DESC").First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error retrieving latest record: %w", err)
	}
	return &rec, nil
}
