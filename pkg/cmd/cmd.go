package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"syscall"

	"github.com/peterbourgon/ff/v3/ffcli"

	"olas.info/attest/pkg/config"
	"olas.info/attest/pkg/errors"
	"olas.info/attest/pkg/log"
)

// Start runs one olas-attest invocation and returns the process exit code.
func Start(build *config.BuildFlags, args []string) int {
	ctx := context.Background()
	group, ctx := TimeoutGroupWithContext(ctx)
	ctx, cancel := context.WithCancel(ctx)

	group.Go(func() error {
		return handleSignals(ctx)
	})
	group.Go(func() error {
		defer cancel()
		return Run(ctx, build, args, os.Stdout)
	})

	err := group.Wait()
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return 0
	}
	return errors.WriteCLIError(os.Stderr, err)
}

// Run parses args and executes the selected command, writing results to out.
func Run(ctx context.Context, build *config.BuildFlags, args []string, out io.Writer) error {
	if build == nil {
		build = &config.BuildFlags{Version: "unknown"}
	}
	r := &runner{build: build, out: out}
	root := r.rootCommand()
	if len(args) > 0 {
		for _, sub := range root.Subcommands {
			if sub.Name == args[0] {
				args = append([]string{args[0]}, joinBoolValues(sub.FlagSet, args[1:])...)
				break
			}
		}
	}
	if err := root.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return errors.Validation("error parsing flags", err)
	}
	return root.Run(ctx)
}

type runner struct {
	build *config.BuildFlags
	out   io.Writer
}

func (r *runner) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

// command builds a subcommand whose flag set carries the global flags. The
// returned CLI is filled in when the command's flags are parsed.
func (r *runner) command(name, usage, help string, addFlags func(fs *flag.FlagSet), exec func(ctx context.Context, cli *config.CLI, args []string) error) *ffcli.Command {
	cli := &config.CLI{Build: r.build}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	cli.GlobalFlags(fs)
	if addFlags != nil {
		addFlags(fs)
	}
	return &ffcli.Command{
		Name:       name,
		ShortUsage: "olas-attest " + usage,
		ShortHelp:  help,
		FlagSet:    fs,
		Options:    cli.Options(),
		Exec: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return errors.Validation(fmt.Sprintf("%s takes no positional arguments, got %q", name, args), nil)
			}
			cli.ExpandDataDir()
			if err := log.SetVerbosity(cli.Verbosity); err != nil {
				return err
			}
			ctx = log.WithLogValues(ctx, "command", name, "network", cli.Network)
			return exec(ctx, cli, args)
		},
	}
}

func (r *runner) rootCommand() *ffcli.Command {
	root := &ffcli.Command{
		Name:       "olas-attest",
		ShortUsage: "olas-attest <command> [flags]",
		ShortHelp:  "register EAS schemas and create Olas attestations",
		FlagSet:    flag.NewFlagSet("olas-attest", flag.ContinueOnError),
		Subcommands: []*ffcli.Command{
			r.computeUIDCommand(),
			r.registerSchemaCommand(),
			r.fetchSchemaCommand(),
			r.fetchAttestationCommand(),
			r.createAttestationCommand(),
			r.createDelegatedAttestationCommand(),
			r.listRecordsCommand(),
			r.versionCommand(),
		},
	}
	root.Exec = func(ctx context.Context, args []string) error {
		if len(args) > 0 {
			return errors.Validation(fmt.Sprintf("unknown command %q", args[0]), nil)
		}
		r.printf("%s\n", ffcli.DefaultUsageFunc(root))
		return flag.ErrHelp
	}
	return root
}

func (r *runner) versionCommand() *ffcli.Command {
	return r.command("version", "version", "print version and exit", nil,
		func(ctx context.Context, cli *config.CLI, args []string) error {
			r.printf("olas-attest %s\n", r.build.Version)
			r.printf("buildTime: %s\n", r.build.BuildTimeStr())
			r.printf("uuid: %s\n", r.build.UUID)
			r.printf("runtime: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			return nil
		})
}

func handleSignals(ctx context.Context) error {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT, syscall.SIGABRT)
	defer signal.Stop(c)
	for {
		select {
		case s := <-c:
			if s == syscall.SIGABRT {
				pprof.Lookup("goroutine").WriteTo(os.Stderr, 2)
			}
			log.Log(ctx, "caught signal, cancelling", "signal", s)
			return fmt.Errorf("caught signal=%v", s)
		case <-ctx.Done():
			return nil
		}
	}
}
