package download

import (
	"context"
	"errors"

	"formfill/internal/logging"

	"golang.org/x/sync/errgroup"
)

// Job is one row's image to download.
type Job struct {
	Index int
	URL   string
}

// Prefetch downloads every job with at most limit requests in flight. Per-job
// failures are remembered for Fetch and never stop the batch; only context
// cancellation is returned.
func (d *Downloader) Prefetch(ctx context.Context, jobs []Job, limit int) (fetched int, err error) {
	if limit <= 0 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	ok := make([]bool, len(jobs))
	for i, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		i, job := i, job
		g.Go(func() error {
			if _, err := d.Fetch(gctx, job.URL, job.Index); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				if !errors.Is(err, ErrNoURL) {
					logging.DownloadDebug("Prefetch row %d failed: %v", job.Index+1, err)
				}
				return nil
			}
			ok[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return count(ok), err
	}
	if err := ctx.Err(); err != nil {
		return count(ok), err
	}

	n := count(ok)
	logging.Download("Prefetched %d/%d images", n, len(jobs))
	return n, nil
}

func count(ok []bool) int {
	n := 0
	for _, v := range ok {
		if v {
			n++
		}
	}
	return n
}
