package eas

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Only the parts of the contracts this tool calls.

const SchemaRegistryABI = `[
  {"type":"function","name":"getSchema","stateMutability":"view",
   "inputs":[{"name":"uid","type":"bytes32"}],
   "outputs":[{"name":"","type":"tuple","internalType":"struct SchemaRecord","components":[
     {"name":"uid","type":"bytes32"},
     {"name":"resolver","type":"address"},
     {"name":"revocable","type":"bool"},
     {"name":"schema","type":"string"}]}]},
  {"type":"function","name":"register","stateMutability":"nonpayable",
   "inputs":[{"name":"schema","type":"string"},{"name":"resolver","type":"address"},{"name":"revocable","type":"bool"}],
   "outputs":[{"name":"","type":"bytes32"}]},
  {"type":"function","name":"version","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"type":"event","name":"Registered","anonymous":false,"inputs":[
     {"name":"uid","type":"bytes32","indexed":true},
     {"name":"registerer","type":"address","indexed":true},
     {"name":"schema","type":"tuple","indexed":false,"components":[
       {"name":"uid","type":"bytes32"},
       {"name":"resolver","type":"address"},
       {"name":"revocable","type":"bool"},
       {"name":"schema","type":"string"}]}]}
]`

const attestationRequestData = `{"name":"data","type":"tuple","components":[
     {"name":"recipient","type":"address"},
     {"name":"expirationTime","type":"uint64"},
     {"name":"revocable","type":"bool"},
     {"name":"refUID","type":"bytes32"},
     {"name":"data","type":"bytes"},
     {"name":"value","type":"uint256"}]}`

const EASABI = `[
  {"type":"function","name":"attest","stateMutability":"payable",
   "inputs":[{"name":"request","type":"tuple","components":[
     {"name":"schema","type":"bytes32"},
     ` + attestationRequestData + `]}],
   "outputs":[{"name":"","type":"bytes32"}]},
  {"type":"function","name":"attestByDelegation","stateMutability":"payable",
   "inputs":[{"name":"delegatedRequest","type":"tuple","components":[
     {"name":"schema","type":"bytes32"},
     ` + attestationRequestData + `,
     {"name":"signature","type":"tuple","components":[
       {"name":"v","type":"uint8"},
       {"name":"r","type":"bytes32"},
       {"name":"s","type":"bytes32"}]},
     {"name":"attester","type":"address"},
     {"name":"deadline","type":"uint64"}]}],
   "outputs":[{"name":"","type":"bytes32"}]},
  {"type":"function","name":"getAttestation","stateMutability":"view",
   "inputs":[{"name":"uid","type":"bytes32"}],
   "outputs":[{"name":"","type":"tuple","components":[
     {"name":"uid","type":"bytes32"},
     {"name":"schema","type":"bytes32"},
     {"name":"time","type":"uint64"},
     {"name":"expirationTime","type":"uint64"},
     {"name":"revocationTime","type":"uint64"},
     {"name":"refUID","type":"bytes32"},
     {"name":"recipient","type":"address"},
     {"name":"attester","type":"address"},
     {"name":"revocable","type":"bool"},
     {"name":"data","type":"bytes"}]}]},
  {"type":"function","name":"getDomainSeparator","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bytes32"}]},
  {"type":"function","name":"getAttestTypeHash","stateMutability":"pure","inputs":[],"outputs":[{"name":"","type":"bytes32"}]},
  {"type":"function","name":"getNonce","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getSchemaRegistry","stateMutability":"pure","inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"version","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"type":"event","name":"Attested","anonymous":false,"inputs":[
     {"name":"recipient","type":"address","indexed":true},
     {"name":"attester","type":"address","indexed":true},
     {"name":"uid","type":"bytes32","indexed":false},
     {"name":"schemaUID","type":"bytes32","indexed":true}]}
]`

const OlasHubABI = `[
  {"type":"function","name":"hasProfile","stateMutability":"view",
   "inputs":[{"name":"account","type":"address"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"publish","stateMutability":"payable",
   "inputs":[
     {"name":"signature","type":"tuple","components":[
       {"name":"v","type":"uint8"},
       {"name":"r","type":"bytes32"},
       {"name":"s","type":"bytes32"}]},
     {"name":"recipient","type":"address"},
     {"name":"title","type":"string"},
     {"name":"contentUrl","type":"string"},
     {"name":"mediaUrl","type":"string"},
     {"name":"stakeAmount","type":"uint256"},
     {"name":"royaltyAmount","type":"uint256"},
     {"name":"marketType","type":"uint8"},
     {"name":"citationUIDs","type":"bytes32[]"}],
   "outputs":[]},
  {"type":"event","name":"ArticlePublished","anonymous":false,"inputs":[
     {"name":"uid","type":"bytes32","indexed":false},
     {"name":"author","type":"address","indexed":true},
     {"name":"title","type":"string","indexed":false}]}
]`

var (
	schemaRegistryABI = mustParseABI(SchemaRegistryABI)
	easABI            = mustParseABI(EASABI)
	olasHubABI        = mustParseABI(OlasHubABI)
)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}
