package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"olas.info/attest/pkg/errors"
)

// Item is one declared field of an attestation schema, eg. "bytes32 articleHash".
type Item struct {
	Name string `json:"name"`
	// Type as written in the schema text
	Type string `json:"type"`
	abi  abi.Type
}

// ABIType is the parsed Solidity type.
func (i Item) ABIType() abi.Type {
	return i.abi
}

// Signature is the canonical Solidity spelling of the type, eg. "uint256" for "uint".
func (i Item) Signature() string {
	return i.abi.String()
}

// Definition is an ordered, immutable list of typed fields. It is identified
// on-chain by the UID of its text together with a resolver and revocability.
type Definition struct {
	text  string
	items []Item
}

var nameRe = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// solidity lets you leave off sizes; go-ethereum's parser doesn't
var aliasRe = regexp.MustCompile(`^(uint|int|byte|ipfsHash)((?:\[\d*\])*)$`)

var aliases = map[string]string{
	"uint":     "uint256",
	"int":      "int256",
	"byte":     "bytes1",
	"ipfsHash": "bytes32",
}

func normalizeType(typ string) string {
	m := aliasRe.FindStringSubmatch(typ)
	if m == nil {
		return typ
	}
	return aliases[m[1]] + m[2]
}

// ParseType validates a single Solidity type tag.
func ParseType(typ string) (abi.Type, error) {
	typ = strings.TrimSpace(typ)
	if strings.HasPrefix(typ, "(") || strings.HasPrefix(typ, "tuple") {
		return abi.Type{}, fmt.Errorf("tuple types are not supported: %s", typ)
	}
	t, err := abi.NewType(normalizeType(typ), "", nil)
	if err != nil {
		return abi.Type{}, fmt.Errorf("unsupported type %q: %w", typ, err)
	}
	return t, nil
}

// Parse reads a schema in the "type1 name1, type2 name2" form used by the
// schema registry.
func Parse(text string) (*Definition, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.Validation("empty schema", nil)
	}
	parts := strings.Split(text, ",")
	items := make([]Item, 0, len(parts))
	seen := map[string]bool{}
	for i, part := range parts {
		words := strings.Fields(part)
		if len(words) != 2 {
			return nil, errors.Validation(fmt.Sprintf("schema item %d %q: expected \"<type> <name>\"", i, strings.TrimSpace(part)), nil)
		}
		typ, name := words[0], words[1]
		if !nameRe.MatchString(name) {
			return nil, errors.Validation(fmt.Sprintf("schema item %d: invalid field name %q", i, name), nil)
		}
		if seen[name] {
			return nil, errors.Validation(fmt.Sprintf("schema item %d: duplicate field name %q", i, name), nil)
		}
		seen[name] = true
		t, err := ParseType(typ)
		if err != nil {
			return nil, errors.Validation(fmt.Sprintf("schema item %d (%s)", i, name), err)
		}
		items = append(items, Item{Name: name, Type: typ, abi: t})
	}
	return &Definition{text: text, items: items}, nil
}

// FromItems builds the schema text from a field list, the way the SDK's
// sample scripts derive it.
func FromItems(fields []Field) (*Definition, error) {
	strs := make([]string, len(fields))
	for i, f := range fields {
		strs[i] = fmt.Sprintf("%s %s", f.Type, f.Name)
	}
	return Parse(strings.Join(strs, ", "))
}

func (d *Definition) Items() []Item {
	out := make([]Item, len(d.items))
	copy(out, d.items)
	return out
}

func (d *Definition) Len() int {
	return len(d.items)
}

// Text is the schema exactly as it was parsed. UIDs are computed over this.
func (d *Definition) Text() string {
	return d.text
}

// String is the canonical "type name, type name" form.
func (d *Definition) String() string {
	strs := make([]string, len(d.items))
	for i, item := range d.items {
		strs[i] = fmt.Sprintf("%s %s", item.Type, item.Name)
	}
	return strings.Join(strs, ", ")
}

// Arguments describes the schema as an ABI tuple for packing attestation data.
func (d *Definition) Arguments() abi.Arguments {
	args := make(abi.Arguments, len(d.items))
	for i, item := range d.items {
		args[i] = abi.Argument{Name: item.Name, Type: item.abi}
	}
	return args
}
