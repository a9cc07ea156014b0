package bridge

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/bluepond-io/aquamon/internal/lib/logger/sl"
)

// probeAttempts is how many lines a candidate device may emit before it is
// rejected; boot noise ahead of the first sensor line is tolerated.
const probeAttempts = 3

// DetectDevice probes candidate device paths in order and returns a source
// for the first one that emits a recognizable sensor line. Used when the
// configured device node is absent, e.g. after the adapter re-enumerates
// on a different ttyUSB number.
func DetectDevice(log *slog.Logger, candidates []string, probeTimeout time.Duration) (LineSource, string, error) {
	return detectDevice(log, candidates, probeTimeout, func(path string) (LineSource, error) {
		if _, err := os.Stat(path); err != nil {
			return nil, err
		}
		return OpenDevice(path)
	})
}

func detectDevice(
	log *slog.Logger,
	candidates []string,
	probeTimeout time.Duration,
	open func(path string) (LineSource, error),
) (LineSource, string, error) {
	for _, path := range candidates {
		src, err := open(path)
		if err != nil {
			log.Debug("candidate device unavailable",
				slog.String("device", path),
				sl.Err(err),
			)
			continue
		}

		if probeSource(src, probeTimeout) {
			log.Info("sensor detected", slog.String("device", path))
			return src, path, nil
		}

		log.Warn("no sensor data on candidate device", slog.String("device", path))
		if err := src.Close(); err != nil {
			log.Error("failed to close candidate device", sl.Err(err))
		}
	}

	return nil, "", fmt.Errorf("no sensor found on %d candidate devices", len(candidates))
}

// probeSource reads a handful of lines looking for one that passes the
// format gate. The consumed lines are probe traffic; the sensor repeats
// every few seconds so nothing meaningful is lost.
func probeSource(src LineSource, timeout time.Duration) bool {
	done := make(chan bool, 1)

	go func() {
		for i := 0; i < probeAttempts; i++ {
			line, err := src.ReadLine()
			if err != nil {
				done <- false
				return
			}
			if acceptLine(line) {
				done <- true
				return
			}
		}
		done <- false
	}()

	select {
	case ok := <-done:
		return ok
	case <-time.After(timeout):
		// The reader goroutine unblocks when the caller closes the source.
		return false
	}
}
