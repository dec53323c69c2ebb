package cmd

import (
	"context"
	"flag"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/fatih/color"
	"github.com/peterbourgon/ff/v3/ffcli"

	"olas.info/attest/pkg/attest"
	"olas.info/attest/pkg/config"
	"olas.info/attest/pkg/eastime"
	"olas.info/attest/pkg/log"
	"olas.info/attest/pkg/schema"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
)

func (r *runner) computeUIDCommand() *ffcli.Command {
	var p attest.SchemaParams
	return r.command("compute-uid", "compute-uid --schema <schema> [--resolver <address>] [--revocable]",
		"compute a schema UID locally",
		func(fs *flag.FlagSet) { schemaFlags(fs, &p) },
		func(ctx context.Context, cli *config.CLI, args []string) error {
			if err := required("schema", p.Schema); err != nil {
				return err
			}
			uid, err := schema.ComputeUID(p.Schema, p.Resolver, p.Revocable)
			if err != nil {
				return err
			}
			r.printf("%s\n", uid.Hex())
			return nil
		})
}

func (r *runner) registerSchemaCommand() *ffcli.Command {
	var p attest.SchemaParams
	return r.command("register-schema", "register-schema --schema <schema> [--resolver <address>] [--revocable]",
		"register a schema unless it already exists",
		func(fs *flag.FlagSet) { schemaFlags(fs, &p) },
		func(ctx context.Context, cli *config.CLI, args []string) error {
			if err := required("schema", p.Schema); err != nil {
				return err
			}
			// fail on bad input before connecting to anything
			if _, err := schema.Parse(p.Schema); err != nil {
				return err
			}
			if _, err := schema.ComputeUID(p.Schema, p.Resolver, p.Revocable); err != nil {
				return err
			}
			c, err := dialChain(ctx, cli)
			if err != nil {
				return err
			}
			defer c.Close()
			signer, err := makeSigner(ctx, cli)
			if err != nil {
				return err
			}
			logs, err := openLogs(cli)
			if err != nil {
				return err
			}
			defer logs.Close()

			reg := &attest.Registrar{
				Registry: c.registry,
				Miner:    c.waiter,
				Signer:   signer,
				ChainID:  c.net.ChainID,
				Network:  c.net.Name,
				Log:      logs.Schemas(),
			}
			res, err := reg.Register(ctx, p)
			if err != nil {
				return err
			}
			if res.AlreadyExists {
				r.printf("%s %s\n", yellow("schema already exists:"), res.UID.Hex())
				return nil
			}
			r.printf("%s %s\n", green("schema registered:"), res.UID.Hex())
			r.printf("tx: %s\n", res.TxHash.Hex())
			return nil
		})
}

func (r *runner) fetchSchemaCommand() *ffcli.Command {
	var uidStr string
	return r.command("fetch-schema", "fetch-schema --uid <schema uid>",
		"print a registered schema",
		func(fs *flag.FlagSet) {
			fs.StringVar(&uidStr, "uid", "", "schema UID")
		},
		func(ctx context.Context, cli *config.CLI, args []string) error {
			uid, err := parseUID("uid", uidStr)
			if err != nil {
				return err
			}
			c, err := dialChain(ctx, cli)
			if err != nil {
				return err
			}
			defer c.Close()
			f := &attest.Fetcher{Registry: c.registry, EAS: c.eas}
			rec, err := f.FetchSchema(ctx, uid)
			if err != nil {
				return err
			}
			r.printf("%s\n", green("schema fetched"))
			r.printf("uid: %s\n", rec.UID().Hex())
			r.printf("schema: %s\n", rec.Schema)
			r.printf("resolver: %s\n", rec.Resolver.Hex())
			r.printf("revocable: %t\n", rec.Revocable)
			return nil
		})
}

func (r *runner) fetchAttestationCommand() *ffcli.Command {
	var uidStr string
	return r.command("fetch-attestation", "fetch-attestation --attestation-uid <attestation uid>",
		"print an attestation and its decoded data",
		func(fs *flag.FlagSet) {
			fs.StringVar(&uidStr, "attestation-uid", "", "attestation UID")
		},
		func(ctx context.Context, cli *config.CLI, args []string) error {
			uid, err := parseUID("attestation-uid", uidStr)
			if err != nil {
				return err
			}
			c, err := dialChain(ctx, cli)
			if err != nil {
				return err
			}
			defer c.Close()
			f := &attest.Fetcher{Registry: c.registry, EAS: c.eas}
			att, err := f.FetchAttestation(ctx, uid)
			if err != nil {
				return err
			}
			r.printf("%s\n", green("attestation fetched"))
			r.printf("uid: %s\n", hexutil.Encode(att.Uid[:]))
			r.printf("schema: %s\n", hexutil.Encode(att.Schema[:]))
			r.printf("attester: %s\n", att.Attester.Hex())
			r.printf("recipient: %s\n", att.Recipient.Hex())
			r.printf("time: %s\n", eastime.FromSec(att.Time))
			r.printf("expirationTime: %s\n", eastime.FromSec(att.ExpirationTime))
			r.printf("revocationTime: %s\n", eastime.FromSec(att.RevocationTime))
			r.printf("refUID: %s\n", hexutil.Encode(att.RefUID[:]))
			r.printf("revocable: %t\n", att.Revocable)
			fields, err := f.DecodeAttestation(ctx, att)
			if err != nil {
				log.Log(ctx, "could not decode attestation data", "error", err)
				r.printf("data: %s\n", hexutil.Encode(att.Data))
				return nil
			}
			r.printf("data:\n")
			for _, field := range fields {
				r.printf("  %s (%s): %s\n", field.Name, field.Type, formatValue(field.Value))
			}
			return nil
		})
}
