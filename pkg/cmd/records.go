package cmd

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/peterbourgon/ff/v3/ffcli"

	"olas.info/attest/pkg/config"
	"olas.info/attest/pkg/errors"
	"olas.info/attest/pkg/model"
	"olas.info/attest/pkg/record"
)

var recordKinds = []record.Kind{
	record.KindSchema,
	record.KindOnchain,
	record.KindOffchain,
	record.KindDelegated,
	record.KindOlasHub,
}

func parseKind(s string) (record.Kind, error) {
	if s == "" {
		return "", nil
	}
	for _, k := range recordKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", errors.Validation(fmt.Sprintf("unknown record kind %q, expected one of %v", s, recordKinds), nil)
}

func (r *runner) listRecordsCommand() *ffcli.Command {
	var kindStr string
	var all, latest bool
	return r.command("list-records", "list-records [--kind <kind>] [--all-networks] [--latest]",
		"list schemas and attestations recorded in the audit database",
		func(fs *flag.FlagSet) {
			fs.StringVar(&kindStr, "kind", "", "only show records of this kind: schema, onchain, offchain, delegated or olashub")
			boolVar(fs, &all, "all-networks", "show records for every network, not just --network")
			boolVar(fs, &latest, "latest", "only show the most recent record")
		},
		func(ctx context.Context, cli *config.CLI, args []string) error {
			kind, err := parseKind(kindStr)
			if err != nil {
				return err
			}
			db, err := model.MakeDB(cli.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()
			network := cli.Network
			if all {
				network = ""
			}
			return r.printRecords(db, network, kind, latest)
		})
}

func (r *runner) printRecords(m model.Model, network string, kind record.Kind, latest bool) error {
	var rows []model.Record
	if latest {
		rec, err := m.LatestRecord(network, kind)
		if err != nil {
			return err
		}
		if rec != nil {
			rows = append(rows, *rec)
		}
	} else {
		var err error
		if rows, err = m.ListRecords(network, kind); err != nil {
			return err
		}
	}
	w := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tNETWORK\tKIND\tSCHEMA UID\tATTESTATION UID\tTX")
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			row.CreatedAt.UTC().Format(time.RFC3339), row.Network, row.Kind,
			dash(row.SchemaUID), dash(row.AttestationUID), dash(row.TxHash))
	}
	return w.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
