package bridge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bluepond-io/aquamon/internal/config"
	"github.com/bluepond-io/aquamon/internal/lib/logger/sl"
)

// Runner drives the bridge: it reads lines from the sensor, gates obviously
// foreign data, and forwards each line to the selected endpoint, spooling
// lines whenever no endpoint accepts them.
type Runner struct {
	log       *slog.Logger
	cfg       *config.BridgeConfig
	source    LineSource
	forwarder Forwarder
	selector  *Selector
	spool     Spool
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

func NewRunner(
	log *slog.Logger,
	cfg *config.BridgeConfig,
	source LineSource,
	forwarder Forwarder,
	selector *Selector,
	spool Spool,
) *Runner {
	return &Runner{
		log:       log,
		cfg:       cfg,
		source:    source,
		forwarder: forwarder,
		selector:  selector,
		spool:     spool,
		stopCh:    make(chan struct{}),
	}
}

// Start blocks until the context is cancelled, Stop is called, or the line
// source is exhausted.
func (r *Runner) Start(ctx context.Context) {
	r.log.Info("starting bridge",
		slog.String("device", r.cfg.Device.Path),
		slog.Int("endpoints", len(r.cfg.Forward.Endpoints)),
		slog.Duration("read_interval", r.cfg.Device.ReadInterval),
	)

	lines := make(chan string)

	r.wg.Add(1)
	go r.readLines(lines)

	if r.spool != nil {
		r.wg.Add(1)
		go r.flushLoop(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			r.log.Info("context cancelled, stopping bridge")
			return
		case <-r.stopCh:
			r.log.Info("stop signal received, stopping bridge")
			return
		case line, ok := <-lines:
			if !ok {
				r.log.Info("line source exhausted, stopping bridge")
				return
			}
			r.handleLine(ctx, line)

			// The sensor emits every few seconds; the interval is a floor
			// so a chattering device cannot flood the API.
			select {
			case <-ctx.Done():
				return
			case <-r.stopCh:
				return
			case <-time.After(r.cfg.Device.ReadInterval):
			}
		}
	}
}

func (r *Runner) Stop() {
	close(r.stopCh)
	if err := r.source.Close(); err != nil {
		r.log.Error("failed to close line source", sl.Err(err))
	}
	r.wg.Wait()
}

func (r *Runner) readLines(lines chan<- string) {
	defer r.wg.Done()
	defer close(lines)

	for {
		line, err := r.source.ReadLine()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.log.Error("failed to read from source", sl.Err(err))
			}
			return
		}

		select {
		case lines <- line:
		case <-r.stopCh:
			return
		}
	}
}

// acceptLine is a cheap gate against boot noise and foreign devices; full
// validation happens in the API's parser.
func acceptLine(line string) bool {
	return strings.Contains(line, "pH:") && strings.Contains(line, "temp:")
}

func (r *Runner) handleLine(ctx context.Context, line string) {
	if line == "" {
		return
	}

	if !acceptLine(line) {
		r.log.Warn("discarding unrecognized line", slog.String("line", line))
		return
	}

	endpoint, ok := r.selector.Select(ctx)
	if !ok {
		r.log.Warn("no endpoint reachable, spooling line")
		r.spoolLine(ctx, line)
		return
	}

	if err := r.forwarder.Send(ctx, endpoint, line); err != nil {
		r.log.Error("failed to forward line",
			slog.String("endpoint", endpoint),
			sl.Err(err),
		)
		r.selector.MarkFailure()
		r.spoolLine(ctx, line)
		return
	}

	r.log.Debug("line forwarded", slog.String("endpoint", endpoint))
}

func (r *Runner) spoolLine(ctx context.Context, line string) {
	if r.spool == nil {
		r.log.Warn("spool disabled, dropping line", slog.String("line", line))
		return
	}
	if err := r.spool.Store(ctx, line); err != nil {
		r.log.Error("failed to spool line", sl.Err(err))
	}
}

func (r *Runner) flushLoop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.Spool.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.flushSpool(ctx)
		}
	}
}

func (r *Runner) flushSpool(ctx context.Context) {
	pending, err := r.spool.Pending(ctx, 100)
	if err != nil {
		r.log.Error("failed to read pending lines from spool", sl.Err(err))
		return
	}

	if len(pending) == 0 {
		return
	}

	endpoint, ok := r.selector.Select(ctx)
	if !ok {
		return
	}

	r.log.Info("flushing spooled lines", slog.Int("count", len(pending)))

	var sentIDs []string
	for _, entry := range pending {
		if err := r.forwarder.Send(ctx, endpoint, entry.Line); err != nil {
			r.log.Debug("failed to send spooled line",
				slog.String("id", entry.ID),
				sl.Err(err),
			)
			r.selector.MarkFailure()
			break
		}
		sentIDs = append(sentIDs, entry.ID)
	}

	if len(sentIDs) > 0 {
		if err := r.spool.Remove(ctx, sentIDs); err != nil {
			r.log.Error("failed to remove sent lines from spool", sl.Err(err))
		} else {
			r.log.Info("spooled lines delivered", slog.Int("count", len(sentIDs)))
		}
	}

	if err := r.spool.Cleanup(ctx, r.cfg.Spool.MaxAge); err != nil {
		r.log.Error("failed to cleanup old spool entries", sl.Err(err))
	}
}
