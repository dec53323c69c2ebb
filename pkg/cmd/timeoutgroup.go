package cmd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"olas.info/attest/pkg/log"
)

var selfDestructTimeout = 5 * time.Second

func TimeoutGroupWithContext(ctx context.Context) (*TimeoutGroup, context.Context) {
	group, ctx2 := errgroup.WithContext(ctx)
	tg := &TimeoutGroup{
		ErrGroup: group,
		exitCh:   make(chan error, 2),
	}
	return tg, ctx2
}

// errgroup wrapper that self-destructs if things aren't shutting down
// properly, eg. an RPC call that ignores cancellation
type TimeoutGroup struct {
	ErrGroup       *errgroup.Group
	selfDestructMu sync.Mutex
	exitCh         chan error
}

func (g *TimeoutGroup) Go(f func() error) {
	g.ErrGroup.Go(func() error {
		err := f()
		g.selfDestruct(err)
		return err
	})
}

func (g *TimeoutGroup) Wait() error {
	go func() {
		g.exitCh <- g.ErrGroup.Wait()
	}()
	return <-g.exitCh
}

func (g *TimeoutGroup) selfDestruct(err error) {
	first := g.selfDestructMu.TryLock()
	if !first {
		return
	}
	go func() {
		log.Debug(context.Background(), "task finished, shutting down", "reason", err)
		time.Sleep(selfDestructTimeout)
		g.exitCh <- fmt.Errorf("selfDestruct terminated task after timeout, reason for shutdown: %w", err)
	}()
}
