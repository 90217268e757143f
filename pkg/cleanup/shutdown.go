// Closes open external connections before shutting down Wanna.
// Inspired from https://medium.com/tokopedia-engineering/gracefully-shutdown-your-go-application-9e7d5c73b5ac

package cleanup

import (
	"Wanna/pkg/log"
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// operation is a clean up function standard.
type Operation func(ctx context.Context) error

// Stage is a named set of operations executed concurrently.
// Stages run one after another, in the order they are passed to GracefulShutdown.
type Stage map[string]Operation

// Exit code used when the shutdown timeout elapses.
const ForcedExitCode = 3

// exit is swapped in tests.
var exit = os.Exit

// GracefulShutdown function waits for termination system-calls and performs clean-up operations.
// The returned channel is closed once every stage finished.
func GracefulShutdown(ctx context.Context, logger log.Logger, timeout time.Duration, stages ...Stage) <-chan struct{} {
	wait := make(chan struct{})

	// buffered channel to receive shutdown signal
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		sig := <-s
		signal.Stop(s)

		logger.WithCtx(ctx).Warn().Str("signal", sig.String()).Msg("Graceful shutdown in progress.")

		// Force exit after timeout duration has been elapsed
		force := time.AfterFunc(timeout, func() {
			logger.WithCtx(ctx).Warn().Msgf("Timeout of %fs has been elapsed. Forcing shutdown!", timeout.Seconds())
			exit(ForcedExitCode)
		})
		defer force.Stop()

		for _, stage := range stages {
			runStage(ctx, logger, stage)
		}
		close(wait)
	}()

	return wait
}

// Executing the cleanup operations of one stage asynchronously for better performance
func runStage(ctx context.Context, logger log.Logger, stage Stage) {
	var wg sync.WaitGroup

	for opname, op := range stage {
		// Adding task to be executed asynchronously
		wg.Add(1)
		go func(opname string, op Operation) {
			defer wg.Done()
			logger.WithCtx(ctx).Info().Msgf("Shutting down: %s", opname)
			if err := op(ctx); err != nil {
				logger.WithCtx(ctx).Error().Err(err).Msgf("%s shutdown failed.", opname)
				return
			}
			logger.WithCtx(ctx).Info().Msgf("%s shutdown completed.", opname)
		}(opname, op)
	}
	// Wait for all of the tasks to finish
	wg.Wait()
}
