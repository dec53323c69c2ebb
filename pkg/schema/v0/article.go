package v0

import (
	"github.com/ethereum/go-ethereum/common"

	"olas.info/attest/pkg/schema"
)

var Name = "OlasArticle"
var Version = "0.0.1"

// Article is the sample attestation the create-attestation task signs when no
// schema UID is given.
type Article struct {
	CitationUIDs    []common.Hash
	ContributorName string
	ArticleTitle    string
	ArticleHash     common.Hash
	URLOfContent    string
}

func SampleArticle() Article {
	return Article{
		CitationUIDs: []common.Hash{
			mustBytes32("exampleUID1"),
			mustBytes32("exampleUID2"),
		},
		ContributorName: "Bob",
		ArticleTitle:    "Why GM is new hello?",
		ArticleHash:     mustBytes32("random hash"),
		URLOfContent:    "https://olas.info/1332",
	}
}

// Fields lays the article out in schema order.
func (a Article) Fields() []schema.Field {
	return []schema.Field{
		{Name: "citationUID", Type: "bytes32[]", Value: a.CitationUIDs},
		{Name: "contributorName", Type: "string", Value: a.ContributorName},
		{Name: "articleTitle", Type: "string", Value: a.ArticleTitle},
		{Name: "articleHash", Type: "bytes32", Value: a.ArticleHash},
		{Name: "urlOfContent", Type: "string", Value: a.URLOfContent},
	}
}

// MakeV0Schema derives the schema text from the article's field list.
func MakeV0Schema() (*schema.Definition, error) {
	return schema.FromItems(SampleArticle().Fields())
}

func mustBytes32(s string) common.Hash {
	h, err := schema.EncodeBytes32String(s)
	if err != nil {
		panic(err)
	}
	return h
}
