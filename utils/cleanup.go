package utils

import (
	"context"
	"time"
)

// StartUploadCleaner runs sweep every interval until ctx is done. Failures are logged and the loop continues.
func StartUploadCleaner(ctx context.Context, interval time.Duration, sweep func(context.Context) (int, error)) {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			removed, err := sweep(ctx)
			if err != nil {
				Sugar.Warnf("upload cleaner failed: %v", err)
				continue
			}
			if removed > 0 {
				Sugar.Infof("upload cleaner removed %d orphaned files", removed)
			}
		}
	}()
}
