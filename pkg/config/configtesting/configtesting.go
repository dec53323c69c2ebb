package ct

import (
	"flag"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"olas.info/attest/pkg/config"
)

// CLI parses args into a fresh CLI whose data dir is a temp dir, so
// nothing in the test touches the user's home.
func CLI(t *testing.T, args ...string) *config.CLI {
	dir, err := os.MkdirTemp("", "olas-testing-*")
	require.NoError(t, err)
	t.Cleanup(func() {
		os.RemoveAll(dir)
	})
	cli := &config.CLI{}
	fs := flag.NewFlagSet("olas-attest-test", flag.ContinueOnError)
	cli.GlobalFlags(fs)
	err = cli.Parse(fs, append([]string{"--data-dir", dir}, args...))
	require.NoError(t, err)
	return cli
}
