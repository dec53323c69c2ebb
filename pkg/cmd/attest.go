package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/peterbourgon/ff/v3/ffcli"

	"olas.info/attest/pkg/attest"
	"olas.info/attest/pkg/config"
	"olas.info/attest/pkg/errors"
	"olas.info/attest/pkg/log"
	"olas.info/attest/pkg/schema"
	v0 "olas.info/attest/pkg/schema/v0"
)

// resolveSchema returns the schema UID and fields to attest with. Without
// --schema-uid the built-in article schema and sample article are used.
func (a *attestationFlags) resolveSchema(allowDefault bool) (common.Hash, []schema.Field, error) {
	if a.schemaUID == "" {
		if !allowDefault {
			return common.Hash{}, nil, required("schema-uid", a.schemaUID)
		}
		def, err := v0.MakeV0Schema()
		if err != nil {
			return common.Hash{}, nil, err
		}
		uid := schema.UID(def.Text(), common.Address{}, false)
		fields := v0.SampleArticle().Fields()
		if a.dataPath != "" {
			if fields, err = schema.LoadFields(a.dataPath); err != nil {
				return common.Hash{}, nil, err
			}
		}
		return uid, fields, nil
	}
	uid, err := parseUID("schema-uid", a.schemaUID)
	if err != nil {
		return common.Hash{}, nil, err
	}
	if err := required("data", a.dataPath); err != nil {
		return common.Hash{}, nil, err
	}
	fields, err := schema.LoadFields(a.dataPath)
	if err != nil {
		return common.Hash{}, nil, err
	}
	return uid, fields, nil
}

func (r *runner) submitter(ctx context.Context, cli *config.CLI, c *chain, l *logs) (*attest.Submitter, error) {
	signer, err := makeSigner(ctx, cli)
	if err != nil {
		return nil, err
	}
	relayer, err := makeRelayer(ctx, cli)
	if err != nil {
		return nil, err
	}
	s := &attest.Submitter{
		EAS:         c.eas,
		Registry:    c.registry,
		Miner:       c.waiter,
		Signer:      signer,
		ChainID:     c.net.ChainID,
		Network:     c.net.Name,
		Log:         l.Attestations(),
		OffchainLog: l.Offchain(),
	}
	// typed nils would defeat the nil checks in Submitter
	if relayer != nil {
		s.Relayer = relayer
	}
	if c.hub != nil {
		s.Hub = c.hub
	}
	return s, nil
}

func (r *runner) createAttestationCommand() *ffcli.Command {
	var a attestationFlags
	var onchain bool
	return r.command("create-attestation", "create-attestation [--onchain] [--schema-uid <uid> --data <fields.json>]",
		"create an onchain attestation, or sign an offchain one",
		func(fs *flag.FlagSet) {
			a.register(fs)
			boolVar(fs, &onchain, "onchain", "submit the attestation onchain instead of signing it offchain")
		},
		func(ctx context.Context, cli *config.CLI, args []string) error {
			uid, fields, err := a.resolveSchema(true)
			if err != nil {
				return err
			}
			if _, err := a.request(common.Address{}); err != nil {
				return err
			}
			c, err := dialChain(ctx, cli)
			if err != nil {
				return err
			}
			defer c.Close()
			l, err := openLogs(cli)
			if err != nil {
				return err
			}
			defer l.Close()
			s, err := r.submitter(ctx, cli, c, l)
			if err != nil {
				return err
			}
			req, err := a.request(s.Signer.Address())
			if err != nil {
				return err
			}
			req.SchemaUID = uid
			req.Fields = fields

			if onchain {
				res, err := s.Onchain(ctx, req)
				if err != nil {
					return err
				}
				r.printf("%s\n", green("onchain attestation created"))
				r.printf("attestation UID: %s\n", res.AttestationUID.Hex())
				r.printf("tx: %s\n", res.TxHash.Hex())
				return nil
			}
			res, err := s.Offchain(ctx, req)
			if err != nil {
				return err
			}
			bs, err := json.MarshalIndent(res.Offchain, "", "  ")
			if err != nil {
				return fmt.Errorf("error encoding offchain attestation: %w", err)
			}
			r.printf("%s\n", green("offchain attestation signed"))
			r.printf("attestation UID: %s\n", res.AttestationUID.Hex())
			r.printf("%s\n", bs)
			return nil
		})
}

type articleFlags struct {
	useOlasHub   bool
	title        string
	contentURL   string
	mediaURL     string
	royalty      string
	marketType   uint
	citationUIDs string
	deadline     uint64
}

func (r *runner) createDelegatedAttestationCommand() *ffcli.Command {
	var a attestationFlags
	var art articleFlags
	return r.command("create-delegated-attestation", "create-delegated-attestation --schema-uid <uid> --data <fields.json> [--use-olas-hub --title <title>]",
		"sign an attestation and have the relayer submit it, directly or through OlasHub",
		func(fs *flag.FlagSet) {
			a.register(fs)
			fs.Func("stake", "wei staked on the article, same as --value", func(s string) error {
				a.value = s
				return nil
			})
			fs.Uint64Var(&art.deadline, "deadline", 0, "unix time after which the signature is no longer valid, 0 for none")
			boolVar(fs, &art.useOlasHub, "use-olas-hub", "publish through the OlasHub contract")
			fs.StringVar(&art.title, "title", "", "article title (OlasHub)")
			fs.StringVar(&art.contentURL, "content-url", "", "article content URL (OlasHub)")
			fs.StringVar(&art.mediaURL, "media-url", "", "article media URL (OlasHub)")
			fs.StringVar(&art.royalty, "royalty", "", "royalty amount in wei (OlasHub)")
			fs.UintVar(&art.marketType, "market-type", 0, "market type (OlasHub)")
			fs.StringVar(&art.citationUIDs, "citation-uids", "", "comma separated attestation UIDs the article cites (OlasHub)")
		},
		func(ctx context.Context, cli *config.CLI, args []string) error {
			uid, fields, err := a.resolveSchema(false)
			if err != nil {
				return err
			}
			if _, err := a.request(common.Address{}); err != nil {
				return err
			}
			article := attest.ArticleRequest{
				Title:      art.title,
				ContentURL: art.contentURL,
				MediaURL:   art.mediaURL,
			}
			if art.useOlasHub {
				if err := required("title", art.title); err != nil {
					return err
				}
				if art.marketType > 255 {
					return errors.Validation(fmt.Sprintf("--market-type must fit in a uint8, got %d", art.marketType), nil)
				}
				article.MarketType = uint8(art.marketType)
				if article.RoyaltyAmount, err = parseWei("royalty", art.royalty); err != nil {
					return err
				}
				if article.CitationUIDs, err = parseUIDList("citation-uids", art.citationUIDs); err != nil {
					return err
				}
			}

			c, err := dialChain(ctx, cli)
			if err != nil {
				return err
			}
			defer c.Close()
			l, err := openLogs(cli)
			if err != nil {
				return err
			}
			defer l.Close()
			s, err := r.submitter(ctx, cli, c, l)
			if err != nil {
				return err
			}
			req, err := a.request(s.Signer.Address())
			if err != nil {
				return err
			}
			req.SchemaUID = uid
			req.Fields = fields
			req.Deadline = art.deadline

			var res *attest.Result
			if art.useOlasHub {
				article.Request = req
				res, err = s.OlasHub(ctx, article)
			} else {
				res, err = s.Delegated(ctx, req)
			}
			if err != nil {
				return err
			}
			log.Debug(ctx, "delegated attestation done", "olasHub", art.useOlasHub)
			r.printf("%s\n", green("delegated attestation created"))
			r.printf("attestation UID: %s\n", res.AttestationUID.Hex())
			r.printf("tx: %s\n", res.TxHash.Hex())
			return nil
		})
}
