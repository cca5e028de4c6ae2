package artifact

import (
	"context"
	"log/slog"
	"sync"
)

// Summary aggregates the outcomes of one UploadAll run.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	BytesSent int64
	Failures  []Outcome
}

// UploadAll transfers every manifest entry using min(concurrency,
// len(manifest)) workers pulling from a shared pending list. Workers claim
// entries one at a time, so uneven file sizes do not leave a slow worker
// holding a static partition. An empty manifest returns a zero Summary
// without starting any workers.
func (u *Uploader) UploadAll(ctx context.Context, manifest []*Entry, runID string, concurrency int) Summary {
	if len(manifest) == 0 {
		return Summary{}
	}
	if concurrency > len(manifest) {
		concurrency = len(manifest)
	}
	if concurrency < 1 {
		concurrency = 1
	}

	var (
		mu       sync.Mutex
		next     int
		outcomes []Outcome
	)

	claim := func() (*Entry, bool) {
		mu.Lock()
		defer mu.Unlock()
		if next >= len(manifest) {
			return nil, false
		}
		e := manifest[next]
		next++
		return e, true
	}

	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				entry, ok := claim()
				if !ok {
					return
				}
				out := u.Transfer(ctx, entry, runID)
				mu.Lock()
				outcomes = append(outcomes, out)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	sum := Summary{Total: len(manifest)}
	for _, out := range outcomes {
		if out.OK {
			sum.Succeeded++
			sum.BytesSent += out.Entry.Size
		} else {
			sum.Failed++
			sum.Failures = append(sum.Failures, out)
		}
	}

	slog.Info("artifact: upload finished",
		"total", sum.Total,
		"succeeded", sum.Succeeded,
		"failed", sum.Failed,
		"bytes", sum.BytesSent,
	)
	return sum
}
