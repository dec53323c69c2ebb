package cmd

import (
	"flag"
	"fmt"
	"math/big"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"olas.info/attest/pkg/attest"
	"olas.info/attest/pkg/crypto/ethaddr"
	"olas.info/attest/pkg/errors"
	"olas.info/attest/pkg/schema"
)

var uidRe = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

func parseUID(flagName, s string) (common.Hash, error) {
	if !uidRe.MatchString(s) {
		return common.Hash{}, errors.Validation(fmt.Sprintf("--%s must be a 0x-prefixed 32 byte hex string, got %q", flagName, s), nil)
	}
	return common.HexToHash(s), nil
}

func parseOptionalUID(flagName, s string) (common.Hash, error) {
	if s == "" {
		return common.Hash{}, nil
	}
	return parseUID(flagName, s)
}

func parseWei(flagName, s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 0)
	if !ok || v.Sign() < 0 {
		return nil, errors.Validation(fmt.Sprintf("--%s must be a non-negative integer amount of wei, got %q", flagName, s), nil)
	}
	return v, nil
}

func parseUIDList(flagName, s string) ([]common.Hash, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []common.Hash
	for _, part := range strings.Split(s, ",") {
		uid, err := parseUID(flagName, strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out = append(out, uid)
	}
	return out, nil
}

func required(flagName, value string) error {
	if value == "" {
		return errors.Validation(fmt.Sprintf("--%s is required", flagName), nil)
	}
	return nil
}

// boolValue is a bool flag that also accepts its value as the following
// argument, as in --revocable false.
type boolValue struct {
	p *bool
}

func (b boolValue) String() string {
	if b.p == nil {
		return "false"
	}
	return strconv.FormatBool(*b.p)
}

func (b boolValue) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("expected true or false, got %q", s)
	}
	*b.p = v
	return nil
}

func (b boolValue) IsBoolFlag() bool {
	return true
}

func isBoolFlag(f *flag.Flag) bool {
	if f == nil {
		return false
	}
	bf, ok := f.Value.(interface{ IsBoolFlag() bool })
	return ok && bf.IsBoolFlag()
}

func boolVar(fs *flag.FlagSet, p *bool, name, usage string) {
	fs.Var(boolValue{p}, name, usage)
}

// joinBoolValues rewrites "--name true|false" into "--name=true|false" for
// the bool flags of fs, which the flag package would otherwise read as a bare
// flag followed by a positional argument.
func joinBoolValues(fs *flag.FlagSet, args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return append(out, args[i:]...)
		}
		name := strings.TrimLeft(arg, "-")
		if !strings.HasPrefix(arg, "-") || name == "" || strings.Contains(name, "=") || i+1 >= len(args) {
			out = append(out, arg)
			continue
		}
		if !isBoolFlag(fs.Lookup(name)) {
			out = append(out, arg)
			continue
		}
		if _, err := strconv.ParseBool(args[i+1]); err != nil {
			out = append(out, arg)
			continue
		}
		out = append(out, arg+"="+args[i+1])
		i++
	}
	return out
}

func schemaFlags(fs *flag.FlagSet, p *attest.SchemaParams) {
	fs.StringVar(&p.Schema, "schema", "", `schema definition, eg. "bytes32 articleHash, string title"`)
	fs.StringVar(&p.Resolver, "resolver", schema.ZeroAddress, "resolver contract address")
	boolVar(fs, &p.Revocable, "revocable", "whether attestations against the schema can be revoked")
}

// attestationFlags are the request fields shared by every way of creating
// an attestation.
type attestationFlags struct {
	schemaUID  string
	dataPath   string
	recipient  string
	expiration uint64
	revocable  bool
	refUID     string
	value      string
}

func (a *attestationFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&a.schemaUID, "schema-uid", "", "UID of a registered schema")
	fs.StringVar(&a.dataPath, "data", "", `JSON file with the attestation fields, eg. [{"name": "title", "type": "string", "value": "gm"}]`)
	fs.StringVar(&a.recipient, "recipient", "", "recipient address (defaults to the signer)")
	fs.Uint64Var(&a.expiration, "expiration", 0, "unix time the attestation expires, 0 for never")
	boolVar(fs, &a.revocable, "revocable", "make the attestation revocable (the schema must be revocable)")
	fs.StringVar(&a.refUID, "ref-uid", "", "UID of an attestation this one refers to")
	fs.StringVar(&a.value, "value", "", "wei to send along with the attestation")
}

// request validates everything except the schema UID and fields, which
// callers resolve themselves.
func (a *attestationFlags) request(signer common.Address) (attest.Request, error) {
	req := attest.Request{
		ExpirationTime: a.expiration,
		Revocable:      a.revocable,
		Recipient:      signer,
	}
	if a.recipient != "" {
		addr, err := ethaddr.Parse(a.recipient)
		if err != nil {
			return req, errors.Validation("invalid --recipient", err)
		}
		req.Recipient = addr
	}
	var err error
	if req.RefUID, err = parseOptionalUID("ref-uid", a.refUID); err != nil {
		return req, err
	}
	if req.Value, err = parseWei("value", a.value); err != nil {
		return req, err
	}
	return req, nil
}

// formatValue prints decoded attestation values the way the EAS SDK shows
// them: hex for bytes and addresses, decimal for integers.
func formatValue(v any) string {
	switch x := v.(type) {
	case common.Address:
		return x.Hex()
	case common.Hash:
		return x.Hex()
	case []byte:
		return hexutil.Encode(x)
	case *big.Int:
		return x.String()
	case string:
		return x
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			bs := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(bs), rv)
			return hexutil.Encode(bs)
		}
		fallthrough
	case reflect.Slice:
		strs := make([]string, rv.Len())
		for i := range strs {
			strs[i] = formatValue(rv.Index(i).Interface())
		}
		return "[" + strings.Join(strs, ", ") + "]"
	}
	return fmt.Sprint(v)
}
