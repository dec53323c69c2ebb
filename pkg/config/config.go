package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterbourgon/ff/v3"
)

const OLAS_DATA_DIR = "$OLAS_DATA_DIR"

const EnvPrefix = "OLAS"

type BuildFlags struct {
	Version   string
	BuildTime int64
	UUID      string
}

func (b BuildFlags) BuildTimeStr() string {
	ts := time.Unix(b.BuildTime, 0)
	return ts.UTC().Format(time.RFC3339)
}

type CLI struct {
	Build        *BuildFlags
	DataDir      string
	RecordsDir   string
	DBPath       string
	ConfigFile   string
	Network      string
	NetworksFile string
	RPCURL       string
	ChainID      int64

	EASAddress            string
	SchemaRegistryAddress string
	OlasHubAddress        string

	EthKeystorePath   string
	EthAccountAddr    string
	EthPassword       string
	PrivateKey        string
	RelayerPrivateKey string

	Verbosity    int
	dataDirFlags []*string
}

func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("error finding default data dir: %w", err)
	}
	return filepath.Join(home, ".olas-attest"), nil
}

// GlobalFlags registers the flags every subcommand accepts.
func (cli *CLI) GlobalFlags(fs *flag.FlagSet) {
	defaultDataDir, err := DefaultDataDir()
	if err != nil {
		defaultDataDir = ".olas-attest"
	}
	fs.StringVar(&cli.DataDir, "data-dir", defaultDataDir, "directory for keeping all olas-attest data")
	cli.DataDirFlag(fs, &cli.RecordsDir, "records-dir", "records", "directory for the attestation and schema logs")
	cli.DataDirFlag(fs, &cli.DBPath, "db-path", "db.sqlite", "path to sqlite audit database")
	cli.DataDirFlag(fs, &cli.EthKeystorePath, "eth-keystore-path", "keystore", "path to ethereum keystore")
	fs.StringVar(&cli.ConfigFile, "config", "", "config file with one \"flag value\" per line")
	fs.StringVar(&cli.Network, "network", "sepolia", "network to use: sepolia, mainnet, base-sepolia, localhost or one from --networks-file")
	fs.StringVar(&cli.NetworksFile, "networks-file", "", "YAML file with extra or overridden network definitions")
	fs.StringVar(&cli.RPCURL, "rpc-url", "", "JSON-RPC endpoint, overrides the network's")
	fs.Int64Var(&cli.ChainID, "chain-id", 0, "chain ID, overrides the network's")
	fs.StringVar(&cli.EASAddress, "eas-address", "", "EAS contract address, overrides the network's")
	fs.StringVar(&cli.SchemaRegistryAddress, "schema-registry-address", "", "SchemaRegistry contract address, overrides the network's")
	fs.StringVar(&cli.OlasHubAddress, "olas-hub-address", "", "OlasHub contract address, overrides the network's")
	fs.StringVar(&cli.EthAccountAddr, "eth-account-addr", "", "ethereum account address to use (if keystore contains more than one)")
	fs.StringVar(&cli.EthPassword, "eth-password", "", "password for encrypting keystore. if not provided, will be prompted interactively")
	fs.StringVar(&cli.PrivateKey, "private-key", "", "hex private key to sign with instead of the keystore")
	fs.StringVar(&cli.RelayerPrivateKey, "relayer-private-key", "", "hex private key that sends delegated transactions (defaults to the signer)")
	fs.IntVar(&cli.Verbosity, "verbosity", 3, "log verbosity level (glog -v)")
}

// Options are the ff options shared by every subcommand.
func (cli *CLI) Options() []ff.Option {
	return []ff.Option{
		ff.WithEnvVarPrefix(EnvPrefix),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithAllowMissingConfigFile(true),
	}
}

func (cli *CLI) Parse(fs *flag.FlagSet, args []string) error {
	if err := ff.Parse(fs, args, cli.Options()...); err != nil {
		return err
	}
	cli.ExpandDataDir()
	return nil
}

// ExpandDataDir substitutes the final --data-dir into flags registered with
// DataDirFlag. Run once after parsing.
func (cli *CLI) ExpandDataDir() {
	for _, dest := range cli.dataDirFlags {
		*dest = strings.Replace(*dest, OLAS_DATA_DIR, cli.DataDir, 1)
	}
}

func (cli *CLI) DataDirFlag(fs *flag.FlagSet, dest *string, name, defaultValue, usage string) {
	cli.dataDirFlags = append(cli.dataDirFlags, dest)
	*dest = filepath.Join(OLAS_DATA_DIR, defaultValue)
	usage = fmt.Sprintf(`%s (default: "%s")`, usage, *dest)
	fs.Func(name, usage, func(s string) error {
		*dest = s
		return nil
	})
}
