package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/google/uuid"
)

// go run ./pkg/config/git -o cmd/olas-attest/version.go
func main() {
	err := makeGit()
	if err != nil {
		panic(err)
	}
}

var tmpl = `// Code generated by pkg/config/git. DO NOT EDIT.

package main

func init() {
	Version = "%s"
	BuildTime = "%d"
	UUID = "%s"
}
`

func makeGit() error {
	output := flag.String("o", "", "file to output to")
	version := flag.Bool("v", false, "just print version")
	env := flag.Bool("env", false, "print version as environment variables")

	flag.Parse()
	r, err := git.PlainOpenWithOptions(".", &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return err
	}

	ref, err := r.Head()
	if err != nil {
		return err
	}
	c, err := r.CommitObject(ref.Hash())
	if err != nil {
		return err
	}

	// same commit, same build UUID
	ts := c.Author.When.Unix()
	rander := rand.New(rand.NewSource(ts))
	u, err := uuid.NewV7FromReader(rander)
	if err != nil {
		return err
	}
	g, err := PlainOpen(".")
	if err != nil {
		return err
	}
	desc, err := g.Describe(ref)
	if err != nil {
		return err
	}
	var out string
	if *version {
		out = desc
	} else if *env {
		out = fmt.Sprintf("OLAS_ATTEST_VERSION=%s\nOLAS_ATTEST_BUILD_TIME=%d\nOLAS_ATTEST_UUID=%s\n", desc, ts, u)
	} else {
		out = fmt.Sprintf(tmpl, desc, ts, u)
	}

	if *output != "" {
		return os.WriteFile(*output, []byte(out), 0644)
	}
	fmt.Print(out)
	return nil
}

// Git wraps a go-git Repository with a map of tagged commits for Describe.
type Git struct {
	TagsMap map[plumbing.Hash]*plumbing.Reference
	*git.Repository
}

func PlainOpen(path string) (*Git, error) {
	r, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	return &Git{
		make(map[plumbing.Hash]*plumbing.Reference),
		r,
	}, err
}

func (g *Git) getTagMap() error {
	tags, err := g.Tags()
	if err != nil {
		return err
	}
	return tags.ForEach(func(t *plumbing.Reference) error {
		h, err := g.ResolveRevision(plumbing.Revision(t.Name()))
		if err != nil {
			return err
		}
		g.TagsMap[*h] = t
		return nil
	})
}

// Describe the reference as 'git describe --tags' would. Untagged
// repositories describe as v0.0.0-<short hash>.
func (g *Git) Describe(reference *plumbing.Reference) (string, error) {
	cIter, err := g.Log(&git.LogOptions{
		From:  reference.Hash(),
		Order: git.LogOrderCommitterTime,
	})
	if err != nil {
		return "", err
	}
	if err := g.getTagMap(); err != nil {
		return "", err
	}

	var tag *plumbing.Reference
	var count int
	err = cIter.ForEach(func(c *object.Commit) error {
		t, ok := g.TagsMap[c.Hash]
		if ok {
			tag = t
			return storer.ErrStop
		}
		count++
		return nil
	})
	if err != nil {
		return "", err
	}
	short := reference.Hash().String()[0:8]
	if tag == nil {
		return fmt.Sprintf("v0.0.0-%s", short), nil
	}
	name := strings.TrimSpace(tag.Name().Short())
	if count == 0 {
		return name, nil
	}
	return fmt.Sprintf("%s-%s", name, short), nil
}
