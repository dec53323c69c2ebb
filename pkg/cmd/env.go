package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/term"

	"olas.info/attest/pkg/config"
	"olas.info/attest/pkg/crypto/signers"
	"olas.info/attest/pkg/crypto/signers/eip712"
	"olas.info/attest/pkg/eas"
	"olas.info/attest/pkg/errors"
	"olas.info/attest/pkg/log"
	"olas.info/attest/pkg/model"
	"olas.info/attest/pkg/record"
)

// chain is everything a command needs to talk to one network.
type chain struct {
	net      *config.ResolvedNetwork
	client   *ethclient.Client
	registry *eas.SchemaRegistry
	eas      *eas.EAS
	hub      *eas.OlasHub
	waiter   *eas.Waiter
}

func dialChain(ctx context.Context, cli *config.CLI) (*chain, error) {
	net, err := cli.ResolveNetwork()
	if err != nil {
		return nil, err
	}
	client, err := ethclient.DialContext(ctx, net.RPCURL)
	if err != nil {
		return nil, errors.Chain(fmt.Sprintf("error connecting to %s", net.RPCURL), err)
	}
	remoteID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, errors.Chain("error fetching chain ID", err)
	}
	if remoteID.Cmp(net.ChainID) != 0 {
		client.Close()
		return nil, errors.Validation(fmt.Sprintf("network %s expects chain ID %s but the RPC endpoint reports %s", net.Name, net.ChainID, remoteID), nil)
	}
	log.Log(ctx, "connected", "rpc", net.RPCURL, "chainID", net.ChainID, "eas", net.EAS.Hex(), "schemaRegistry", net.SchemaRegistry.Hex())
	c := &chain{
		net:      net,
		client:   client,
		registry: eas.NewSchemaRegistry(net.SchemaRegistry, client),
		eas:      eas.NewEAS(net.EAS, client),
		waiter:   &eas.Waiter{Backend: client},
	}
	if net.OlasHub != nil {
		c.hub = eas.NewOlasHub(*net.OlasHub, client)
	}
	if err := checkRegistry(ctx, c.eas, net.SchemaRegistry); err != nil {
		client.Close()
		return nil, err
	}
	return c, nil
}

type registryGetter interface {
	GetSchemaRegistry(ctx context.Context) (common.Address, error)
}

// checkRegistry fails when the EAS contract is bound to a different schema
// registry than the one configured for the network.
func checkRegistry(ctx context.Context, e registryGetter, configured common.Address) error {
	actual, err := e.GetSchemaRegistry(ctx)
	if err != nil {
		return err
	}
	if actual != configured {
		return errors.Validation(fmt.Sprintf("EAS contract uses schema registry %s but %s is configured", actual.Hex(), configured.Hex()), nil)
	}
	return nil
}

func (c *chain) Close() {
	c.client.Close()
}

// keystorePassword prompts on a terminal when no password was configured.
func keystorePassword(cli *config.CLI) (string, error) {
	if cli.EthPassword != "" || !term.IsTerminal(int(os.Stdin.Fd())) {
		return cli.EthPassword, nil
	}
	fmt.Fprintf(os.Stderr, "Please enter keystore password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr, "")
	if err != nil {
		return "", fmt.Errorf("error reading keystore password: %w", err)
	}
	return string(password), nil
}

func makeSigner(ctx context.Context, cli *config.CLI) (*eip712.EIP712Signer, error) {
	opts := &eip712.EIP712SignerOptions{
		PrivateKey:      cli.PrivateKey,
		EthKeystorePath: cli.EthKeystorePath,
		EthAccountAddr:  cli.EthAccountAddr,
	}
	if opts.PrivateKey == "" {
		password, err := keystorePassword(cli)
		if err != nil {
			return nil, err
		}
		opts.EthKeystorePassword = password
	}
	signer, err := eip712.MakeEIP712Signer(ctx, opts)
	if err != nil {
		return nil, err
	}
	// the crypto.Signer view of the key must agree with the account we sign as
	addr, err := signers.HexAddrFromSigner(signer)
	if err != nil {
		return nil, fmt.Errorf("error getting ethereum address for signer: %w", err)
	}
	if addr != signer.Hex() {
		return nil, errors.Signature(fmt.Sprintf("signer public key %s does not match account %s", addr, signer.Hex()), nil)
	}
	log.Log(ctx, "signer", "address", addr)
	return signer, nil
}

// makeRelayer returns nil when no separate relayer key is configured.
func makeRelayer(ctx context.Context, cli *config.CLI) (*eip712.EIP712Signer, error) {
	if cli.RelayerPrivateKey == "" {
		return nil, nil
	}
	relayer, err := eip712.MakeEIP712Signer(ctx, &eip712.EIP712SignerOptions{PrivateKey: cli.RelayerPrivateKey})
	if err != nil {
		return nil, err
	}
	log.Log(ctx, "relayer", "address", relayer.Hex())
	return relayer, nil
}

// logs are the record sinks for one network: the plain files plus the
// audit database.
type logs struct {
	files *record.Files
	db    *model.DBModel
}

func openLogs(cli *config.CLI) (*logs, error) {
	db, err := model.MakeDB(cli.DBPath)
	if err != nil {
		return nil, err
	}
	return &logs{files: record.NewFiles(cli.RecordsDir, cli.Network), db: db}, nil
}

func (l *logs) Schemas() record.Log {
	return record.Multi{l.files.Schemas, l.db}
}

func (l *logs) Attestations() record.Log {
	return record.Multi{l.files.Attestations, l.db}
}

func (l *logs) Offchain() record.Log {
	return record.Multi{l.files.Offchain, l.db}
}

func (l *logs) Close() error {
	return l.db.Close()
}
