package infra

import (
	"context"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
)

const checkExecInterval = 5 * time.Second

// MonitorExecutable signals once the running binary is replaced on disk.
func MonitorExecutable(ctx context.Context) <-chan struct{} {
	exeFilename, err := os.Executable()
	if err != nil {
		log.WithError(err).Warn("cant resolve executable path for monitor")
		return make(chan struct{})
	}
	return WatchFile(ctx, exeFilename, checkExecInterval)
}

// WatchFile signals once the modification time of filename changes. The
// channel is closed when ctx is done.
func WatchFile(ctx context.Context, filename string, interval time.Duration) <-chan struct{} {
	ch := make(chan struct{}, 1)

	stat, err := os.Stat(filename)
	if err != nil {
		log.WithError(err).Warn("cant stat file for monitor")
		go func() {
			<-ctx.Done()
			close(ch)
		}()
		return ch
	}
	originalTime := stat.ModTime()

	go func() {
		defer close(ch)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stat, err := os.Stat(filename)
				if err != nil {
					log.WithError(err).Warn("cant stat file for monitor tick")
					continue
				}
				if !originalTime.Equal(stat.ModTime()) {
					ch <- struct{}{}
					return
				}
			}
		}
	}()
	return ch
}
