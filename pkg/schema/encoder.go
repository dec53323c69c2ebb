package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"os"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"olas.info/attest/pkg/crypto/ethaddr"
	"olas.info/attest/pkg/errors"
)

var (
	ErrMissingField      = errors.New("missing field")
	ErrUnexpectedField   = errors.New("field not declared in schema")
	ErrFieldNameMismatch = errors.New("field name does not match schema")
	ErrFieldTypeMismatch = errors.New("field type does not match schema")
	ErrInvalidValue      = errors.New("invalid field value")
)

// Field is one name/value/type entry of attestation data, in the same JSON
// shape the EAS SDK's SchemaEncoder takes.
type Field struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

type FieldError struct {
	Index int
	Name  string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %d (%s): %s", e.Index, e.Name, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func fieldErr(i int, name string, sentinel error, format string, args ...any) error {
	detail := fmt.Sprintf(format, args...)
	return errors.Validation("error encoding attestation data", &FieldError{
		Index: i,
		Name:  name,
		Err:   fmt.Errorf("%w: %s", sentinel, detail),
	})
}

// Check verifies that fields line up with the schema positionally by name
// and type, without looking at values. A declared field that is absent is
// reported as missing and an undeclared one as unexpected, before any
// positional comparison.
func (d *Definition) Check(fields []Field) error {
	given := make(map[string]bool, len(fields))
	for _, f := range fields {
		given[f.Name] = true
	}
	declared := make(map[string]bool, len(d.items))
	for i, item := range d.items {
		declared[item.Name] = true
		if !given[item.Name] {
			return fieldErr(i, item.Name, ErrMissingField, "schema declares %q of type %s", item.Name, item.Type)
		}
	}
	for i, f := range fields {
		if !declared[f.Name] {
			return fieldErr(i, f.Name, ErrUnexpectedField, "schema declares %d fields, got %d", len(d.items), len(fields))
		}
	}
	if len(fields) > len(d.items) {
		extra := fields[len(d.items)]
		return fieldErr(len(d.items), extra.Name, ErrUnexpectedField, "schema declares %d fields, got %d", len(d.items), len(fields))
	}
	for i, item := range d.items {
		f := fields[i]
		if f.Name != item.Name {
			return fieldErr(i, f.Name, ErrFieldNameMismatch, "expected %q, got %q", item.Name, f.Name)
		}
		t, err := ParseType(f.Type)
		if err != nil {
			return fieldErr(i, f.Name, ErrFieldTypeMismatch, "%s", err)
		}
		if t.String() != item.Signature() {
			return fieldErr(i, f.Name, ErrFieldTypeMismatch, "expected %s, got %s", item.Signature(), t.String())
		}
	}
	return nil
}

// BuildPayload validates fields against the schema and ABI-encodes their
// values in declared order. The result is the attestation's opaque data.
func BuildPayload(def *Definition, fields []Field) ([]byte, error) {
	if err := def.Check(fields); err != nil {
		return nil, err
	}
	values := make([]any, len(fields))
	for i, item := range def.items {
		v, err := Coerce(item.abi, fields[i].Value)
		if err != nil {
			return nil, fieldErr(i, item.Name, ErrInvalidValue, "%s", err)
		}
		values[i] = v
	}
	data, err := def.Arguments().Pack(values...)
	if err != nil {
		return nil, errors.Validation("error packing attestation data", err)
	}
	return data, nil
}

// DecodePayload reverses BuildPayload. Values come back as the ABI Go types
// (*big.Int, common.Address, [32]byte, ...), matching Coerce.
func DecodePayload(def *Definition, data []byte) ([]Field, error) {
	values, err := def.Arguments().Unpack(data)
	if err != nil {
		return nil, errors.Validation("error decoding attestation data", err)
	}
	if len(values) != len(def.items) {
		return nil, errors.Validation(fmt.Sprintf("decoded %d values for %d schema fields", len(values), len(def.items)), nil)
	}
	fields := make([]Field, len(values))
	for i, item := range def.items {
		fields[i] = Field{Name: item.Name, Type: item.Type, Value: values[i]}
	}
	return fields, nil
}

// LoadFields reads a JSON array of fields, eg. for the --data flag.
func LoadFields(path string) ([]Field, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading attestation data file: %w", err)
	}
	return ParseFields(bs)
}

func ParseFields(bs []byte) ([]Field, error) {
	dec := json.NewDecoder(bytes.NewReader(bs))
	dec.UseNumber()
	var fields []Field
	if err := dec.Decode(&fields); err != nil {
		return nil, errors.Validation("error parsing attestation data JSON", err)
	}
	return fields, nil
}

// Coerce converts a loosely typed value (JSON-decoded, or plain Go) into the
// exact Go type the ABI packer expects for typ.
func Coerce(typ abi.Type, value any) (any, error) {
	if value == nil {
		return nil, fmt.Errorf("missing value for %s", typ.String())
	}
	switch typ.T {
	case abi.BoolTy:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			switch strings.ToLower(v) {
			case "true":
				return true, nil
			case "false":
				return false, nil
			}
		}
		return nil, fmt.Errorf("expected bool, got %T %v", value, value)
	case abi.StringTy:
		v, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", value)
		}
		return v, nil
	case abi.AddressTy:
		switch v := value.(type) {
		case common.Address:
			return v, nil
		case string:
			return ethaddr.Parse(v)
		}
		return nil, fmt.Errorf("expected address string, got %T", value)
	case abi.IntTy, abi.UintTy:
		return coerceInt(typ, value)
	case abi.FixedBytesTy:
		return coerceFixedBytes(typ, value)
	case abi.BytesTy:
		switch v := value.(type) {
		case []byte:
			return v, nil
		case string:
			bs, err := hexutil.Decode(v)
			if err != nil {
				return nil, fmt.Errorf("expected 0x-prefixed hex for bytes: %w", err)
			}
			return bs, nil
		}
		return nil, fmt.Errorf("expected hex string for bytes, got %T", value)
	case abi.SliceTy, abi.ArrayTy:
		return coerceList(typ, value)
	}
	return nil, fmt.Errorf("unsupported type %s", typ.String())
}

func coerceList(typ abi.Type, value any) (any, error) {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("expected array for %s, got %T", typ.String(), value)
	}
	n := rv.Len()
	if typ.T == abi.ArrayTy && n != typ.Size {
		return nil, fmt.Errorf("expected %d elements for %s, got %d", typ.Size, typ.String(), n)
	}
	var out reflect.Value
	if typ.T == abi.ArrayTy {
		out = reflect.New(typ.GetType()).Elem()
	} else {
		out = reflect.MakeSlice(typ.GetType(), n, n)
	}
	for i := 0; i < n; i++ {
		elem, err := Coerce(*typ.Elem, rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out.Index(i).Set(reflect.ValueOf(elem))
	}
	return out.Interface(), nil
}

func toBig(value any) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case json.Number:
		return toBig(v.String())
	case string:
		s := strings.TrimSpace(v)
		b, ok := new(big.Int).SetString(s, 0)
		if !ok {
			return nil, fmt.Errorf("cannot parse %q as an integer", v)
		}
		return b, nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("expected whole number, got %v", v)
		}
		b, _ := big.NewFloat(v).Int(nil)
		return b, nil
	case int:
		return big.NewInt(int64(v)), nil
	case int8, int16, int32, int64:
		return big.NewInt(reflect.ValueOf(v).Int()), nil
	case uint, uint8, uint16, uint32, uint64:
		return new(big.Int).SetUint64(reflect.ValueOf(v).Uint()), nil
	}
	return nil, fmt.Errorf("expected integer, got %T", value)
}

func coerceInt(typ abi.Type, value any) (any, error) {
	b, err := toBig(value)
	if err != nil {
		return nil, err
	}
	if typ.T == abi.UintTy {
		if b.Sign() < 0 {
			return nil, fmt.Errorf("negative value %s for %s", b, typ.String())
		}
		if b.BitLen() > typ.Size {
			return nil, fmt.Errorf("value %s overflows %s", b, typ.String())
		}
	} else {
		limit := new(big.Int).Lsh(big.NewInt(1), uint(typ.Size-1))
		lo := new(big.Int).Neg(limit)
		if b.Cmp(lo) < 0 || b.Cmp(limit) >= 0 {
			return nil, fmt.Errorf("value %s overflows %s", b, typ.String())
		}
	}
	goType := typ.GetType()
	switch goType.Kind() {
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return reflect.ValueOf(b.Uint64()).Convert(goType).Interface(), nil
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return reflect.ValueOf(b.Int64()).Convert(goType).Interface(), nil
	}
	return b, nil
}

// bytesN accepts exact-length hex, or (like ethers' encodeBytes32String)
// short UTF-8 text that gets right-padded with zeros.
func coerceFixedBytes(typ abi.Type, value any) (any, error) {
	var raw []byte
	switch v := value.(type) {
	case common.Hash:
		raw = v.Bytes()
	case []byte:
		raw = v
	case string:
		if isHex(v) {
			bs, err := hexutil.Decode(v)
			if err != nil {
				return nil, err
			}
			raw = bs
		} else {
			if len(v) >= typ.Size {
				return nil, fmt.Errorf("string %q too long for %s", v, typ.String())
			}
			raw = make([]byte, typ.Size)
			copy(raw, v)
		}
	default:
		rv := reflect.ValueOf(value)
		if rv.Kind() == reflect.Array && rv.Type().Elem().Kind() == reflect.Uint8 {
			raw = make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(raw), rv)
		} else {
			return nil, fmt.Errorf("expected hex string for %s, got %T", typ.String(), value)
		}
	}
	if len(raw) != typ.Size {
		return nil, fmt.Errorf("expected %d bytes for %s, got %d", typ.Size, typ.String(), len(raw))
	}
	out := reflect.New(typ.GetType()).Elem()
	reflect.Copy(out, reflect.ValueOf(raw))
	return out.Interface(), nil
}

func isHex(s string) bool {
	if !strings.HasPrefix(s, "0x") || len(s)%2 != 0 {
		return false
	}
	for _, c := range s[2:] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}

// EncodeBytes32String mirrors ethers.encodeBytes32String.
func EncodeBytes32String(s string) (common.Hash, error) {
	if len(s) > 31 {
		return common.Hash{}, fmt.Errorf("bytes32 string must be less than 32 bytes")
	}
	var h common.Hash
	copy(h[:], s)
	return h, nil
}
