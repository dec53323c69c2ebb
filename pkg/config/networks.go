package config

import (
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"olas.info/attest/pkg/crypto/ethaddr"
	"olas.info/attest/pkg/errors"
)

// Network is one entry of the network table, as written in a networks file.
type Network struct {
	ChainID        int64  `yaml:"chainId"`
	RPCURL         string `yaml:"rpcUrl"`
	EAS            string `yaml:"eas"`
	SchemaRegistry string `yaml:"schemaRegistry"`
	OlasHub        string `yaml:"olasHub"`
}

// Networks we know EAS deployments for. OlasHub has no public deployment
// yet; pass --olas-hub-address or add it in a networks file.
var DefaultNetworks = map[string]Network{
	"sepolia": {
		ChainID:        11155111,
		RPCURL:         "https://ethereum-sepolia-rpc.publicnode.com",
		EAS:            "0xC2679fBD37d54388Ce493F1DB75320D236e1815e",
		SchemaRegistry: "0x0a7E2Ff54e76B8E6659aedc9103FB21c038050D0",
	},
	"mainnet": {
		ChainID:        1,
		RPCURL:         "https://ethereum-rpc.publicnode.com",
		EAS:            "0xA1207F3BBa224E2c9c3c6D5aF63D0eb1582Ce587",
		SchemaRegistry: "0xA7b39296258348C78294F95B872b282326A97BDF",
	},
	"base-sepolia": {
		ChainID:        84532,
		RPCURL:         "https://sepolia.base.org",
		EAS:            "0x4200000000000000000000000000000000000021",
		SchemaRegistry: "0x4200000000000000000000000000000000000020",
	},
	"localhost": {
		ChainID: 31337,
		RPCURL:  "http://127.0.0.1:8545",
	},
}

// ResolvedNetwork is a network with every override applied and every
// address validated.
type ResolvedNetwork struct {
	Name           string
	ChainID        *big.Int
	RPCURL         string
	EAS            common.Address
	SchemaRegistry common.Address
	// nil when not configured
	OlasHub *common.Address
}

// LoadNetworksFile reads a YAML map of network name to Network.
func LoadNetworksFile(path string) (map[string]Network, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading networks file: %w", err)
	}
	out := map[string]Network{}
	if err := yaml.Unmarshal(bs, &out); err != nil {
		return nil, errors.Validation(fmt.Sprintf("error parsing networks file %s", path), err)
	}
	return out, nil
}

// merge fills the zero fields of n from base.
func (n Network) merge(base Network) Network {
	if n.ChainID == 0 {
		n.ChainID = base.ChainID
	}
	if n.RPCURL == "" {
		n.RPCURL = base.RPCURL
	}
	if n.EAS == "" {
		n.EAS = base.EAS
	}
	if n.SchemaRegistry == "" {
		n.SchemaRegistry = base.SchemaRegistry
	}
	if n.OlasHub == "" {
		n.OlasHub = base.OlasHub
	}
	return n
}

func parseAddr(field, s string) (common.Address, error) {
	addr, err := ethaddr.Parse(s)
	if err != nil {
		return common.Address{}, errors.Validation(fmt.Sprintf("invalid %s address", field), err)
	}
	return addr, nil
}

// ResolveNetwork picks the --network entry (networks file first, then the
// built-in table) and applies flag overrides on top.
func (cli *CLI) ResolveNetwork() (*ResolvedNetwork, error) {
	known := map[string]Network{}
	for name, n := range DefaultNetworks {
		known[name] = n
	}
	if cli.NetworksFile != "" {
		fromFile, err := LoadNetworksFile(cli.NetworksFile)
		if err != nil {
			return nil, err
		}
		for name, n := range fromFile {
			known[name] = n.merge(known[name])
		}
	}
	n, ok := known[cli.Network]
	if !ok {
		return nil, errors.Validation(fmt.Sprintf("unknown network %q", cli.Network), nil)
	}
	n = Network{
		ChainID:        cli.ChainID,
		RPCURL:         cli.RPCURL,
		EAS:            cli.EASAddress,
		SchemaRegistry: cli.SchemaRegistryAddress,
		OlasHub:        cli.OlasHubAddress,
	}.merge(n)

	if n.ChainID <= 0 {
		return nil, errors.Validation(fmt.Sprintf("network %s has no chain ID", cli.Network), nil)
	}
	if n.RPCURL == "" {
		return nil, errors.Validation(fmt.Sprintf("network %s has no RPC URL", cli.Network), nil)
	}
	if n.EAS == "" || n.SchemaRegistry == "" {
		return nil, errors.Validation(fmt.Sprintf("network %s needs EAS and SchemaRegistry addresses", cli.Network), nil)
	}
	out := &ResolvedNetwork{
		Name:    cli.Network,
		ChainID: big.NewInt(n.ChainID),
		RPCURL:  n.RPCURL,
	}
	var err error
	if out.EAS, err = parseAddr("EAS", n.EAS); err != nil {
		return nil, err
	}
	if out.SchemaRegistry, err = parseAddr("SchemaRegistry", n.SchemaRegistry); err != nil {
		return nil, err
	}
	if n.OlasHub != "" {
		hub, err := parseAddr("OlasHub", n.OlasHub)
		if err != nil {
			return nil, err
		}
		out.OlasHub = &hub
	}
	return out, nil
}
