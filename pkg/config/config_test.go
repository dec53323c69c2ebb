package config_test

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"olas.info/attest/pkg/config"
	ct "olas.info/attest/pkg/config/configtesting"
	"olas.info/attest/pkg/errors"
)

func TestDataDirFlags(t *testing.T) {
	cli := ct.CLI(t)
	require.Equal(t, filepath.Join(cli.DataDir, "records"), cli.RecordsDir)
	require.Equal(t, filepath.Join(cli.DataDir, "db.sqlite"), cli.DBPath)
	require.Equal(t, filepath.Join(cli.DataDir, "keystore"), cli.EthKeystorePath)

	cli = ct.CLI(t, "--records-dir", "/tmp/elsewhere")
	require.Equal(t, "/tmp/elsewhere", cli.RecordsDir)
}

func TestEnvVars(t *testing.T) {
	t.Setenv("OLAS_NETWORK", "mainnet")
	t.Setenv("OLAS_PRIVATE_KEY", "0xabc")
	cli := ct.CLI(t)
	require.Equal(t, "mainnet", cli.Network)
	require.Equal(t, "0xabc", cli.PrivateKey)

	// flags beat the environment
	cli = ct.CLI(t, "--network", "localhost")
	require.Equal(t, "localhost", cli.Network)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "olas.conf")
	require.NoError(t, os.WriteFile(path, []byte("network base-sepolia\nchain-id 99\n"), 0644))
	cli := ct.CLI(t, "--config", path)
	require.Equal(t, "base-sepolia", cli.Network)
	require.Equal(t, int64(99), cli.ChainID)
}

func TestResolveBuiltinNetwork(t *testing.T) {
	cli := ct.CLI(t)
	n, err := cli.ResolveNetwork()
	require.NoError(t, err)
	require.Equal(t, "sepolia", n.Name)
	require.Equal(t, int64(11155111), n.ChainID.Int64())
	require.Equal(t, common.HexToAddress("0xC2679fBD37d54388Ce493F1DB75320D236e1815e"), n.EAS)
	require.Nil(t, n.OlasHub)
}

func TestResolveOverrides(t *testing.T) {
	hub := "0x00000000000000000000000000000000000000b0"
	cli := ct.CLI(t, "--rpc-url", "http://node:8545", "--olas-hub-address", hub)
	n, err := cli.ResolveNetwork()
	require.NoError(t, err)
	require.Equal(t, "http://node:8545", n.RPCURL)
	require.NotNil(t, n.OlasHub)
	require.Equal(t, common.HexToAddress(hub), *n.OlasHub)
}

func TestResolveNetworksFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "networks.yaml")
	yaml := `
sepolia:
  olasHub: "0x00000000000000000000000000000000000000b0"
devnet:
  chainId: 1337
  rpcUrl: http://devnet:8545
  eas: "0x00000000000000000000000000000000000000e0"
  schemaRegistry: "0x00000000000000000000000000000000000000e1"
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cli := ct.CLI(t, "--networks-file", path)
	n, err := cli.ResolveNetwork()
	require.NoError(t, err)
	// file entries are merged over the built-in ones
	require.Equal(t, int64(11155111), n.ChainID.Int64())
	require.NotNil(t, n.OlasHub)

	cli = ct.CLI(t, "--networks-file", path, "--network", "devnet")
	n, err = cli.ResolveNetwork()
	require.NoError(t, err)
	require.Equal(t, int64(1337), n.ChainID.Int64())
	require.Equal(t, common.HexToAddress("0xe1"), n.SchemaRegistry)
}

func TestResolveNetworkErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown network", []string{"--network", "nowhere"}},
		{"localhost has no contracts", []string{"--network", "localhost"}},
		{"bad address", []string{"--eas-address", "0x1234"}},
		{"bad checksum", []string{"--olas-hub-address", "0xc2679fBD37d54388Ce493F1DB75320D236e1815e"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli := ct.CLI(t, tt.args...)
			_, err := cli.ResolveNetwork()
			require.Equal(t, errors.KindValidation, errors.KindOf(err))
		})
	}
}

func TestUnknownFlag(t *testing.T) {
	cli := &config.CLI{}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(&discard{})
	cli.GlobalFlags(fs)
	require.Error(t, cli.Parse(fs, []string{"--nope"}))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) {
	return len(p), nil
}
