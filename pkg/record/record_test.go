package record

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func attestation(i int) Record {
	return Record{
		Kind:           KindOnchain,
		Network:        "sepolia",
		SchemaUID:      common.HexToHash("0x0fcf"),
		AttestationUID: common.BigToHash(big.NewInt(int64(i + 1))),
	}
}

func TestJSONArrayFileAppends(t *testing.T) {
	dir := t.TempDir()
	f := NewJSONArrayFile(AttestationsPath(dir, "sepolia"), AttestationEntryOf)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, f.Append(ctx, attestation(i)))
	}

	bs, err := os.ReadFile(filepath.Join(dir, "sepolia-attestations.json"))
	require.NoError(t, err)
	var entries []AttestationEntry
	require.NoError(t, json.Unmarshal(bs, &entries))
	require.Len(t, entries, 3)
	for i, e := range entries {
		require.Equal(t, common.HexToHash("0x0fcf").Hex(), e.SchemaUID)
		require.Equal(t, attestation(i).AttestationUID.Hex(), e.AttestationUID)
	}
}

func TestJSONArrayFileKeepsExistingEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sepolia-attestations.json")
	require.NoError(t, os.WriteFile(path, []byte(`["schemaUID: 0x01 attestationUID: 0x02", {"other": true}]`), 0644))

	f := NewJSONArrayFile(path, AttestationEntryOf)
	require.NoError(t, f.Append(context.Background(), attestation(1)))
	entries, err := f.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.JSONEq(t, `"schemaUID: 0x01 attestationUID: 0x02"`, string(entries[0]))
	require.JSONEq(t, `{"other": true}`, string(entries[1]))
}

func TestJSONArrayFileEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "offchain-attestations.json")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0644))
	f := NewJSONArrayFile(path, SignedEntryOf)
	require.NoError(t, f.Append(context.Background(), Record{Signed: map[string]any{"uid": "0x01"}}))
	entries, err := f.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.JSONEq(t, `{"uid": "0x01"}`, string(entries[0]))
}

func TestJSONArrayFileRefusesCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sepolia-attestations.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not": "an array"}`), 0644))
	f := NewJSONArrayFile(path, AttestationEntryOf)
	require.Error(t, f.Append(context.Background(), attestation(0)))

	bs, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, `{"not": "an array"}`, string(bs))
}

func TestJSONArrayFileConcurrentAppends(t *testing.T) {
	dir := t.TempDir()
	f := NewJSONArrayFile(AttestationsPath(dir, "sepolia"), AttestationEntryOf)
	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- f.Append(context.Background(), attestation(i))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	entries, err := f.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 10)
}

func TestLineFile(t *testing.T) {
	dir := t.TempDir()
	f := NewLineFile(RegisteredSchemasPath(dir, "sepolia"), SchemaLineOf)
	uid := common.HexToHash("0x72bc9d583273e3a8798c82b9bbeb149b152e5c6e30347209f88d6a5c49d282fc")
	require.NoError(t, f.Append(context.Background(), Record{Schema: "bytes32 x, string y", SchemaUID: uid}))
	require.NoError(t, f.Append(context.Background(), Record{Schema: "bool flag", SchemaUID: common.HexToHash("0x01")}))

	bs, err := os.ReadFile(filepath.Join(dir, "sepolia-registered-schema-uids.txt"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(bs), "\n"), "\n")
	require.Equal(t, []string{
		"bytes32 x, string y " + uid.Hex(),
		"bool flag " + common.HexToHash("0x01").Hex(),
	}, lines)
}

type failingLog struct{}

func (failingLog) Append(ctx context.Context, rec Record) error {
	return fmt.Errorf("disk full")
}

type countingLog struct{ n int }

func (c *countingLog) Append(ctx context.Context, rec Record) error {
	c.n++
	return nil
}

func TestMulti(t *testing.T) {
	a, b := &countingLog{}, &countingLog{}
	require.NoError(t, Multi{a, b}.Append(context.Background(), Record{}))
	require.Equal(t, 1, a.n)
	require.Equal(t, 1, b.n)

	c := &countingLog{}
	require.Error(t, Multi{a, failingLog{}, c}.Append(context.Background(), Record{}))
	require.Equal(t, 2, a.n)
	require.Equal(t, 0, c.n)
}

func TestNewFiles(t *testing.T) {
	files := NewFiles("/data", "base-sepolia")
	require.Equal(t, "/data/base-sepolia-attestations.json", files.Attestations.Path)
	require.Equal(t, "/data/base-sepolia-registered-schema-uids.txt", files.Schemas.Path)
	require.Equal(t, "/data/offchain-attestations.json", files.Offchain.Path)
}
