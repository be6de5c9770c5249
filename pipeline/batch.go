package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
)

// SampleResult is the outcome of one sample in a batch run.
type SampleResult struct {
	SampleID string
	Err      error
}

// ReadSampleIDs reads whitespace-separated sample identifiers from a
// file. Blank lines and lines starting with # are skipped.
func ReadSampleIDs(path string) ([]string, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read sample ids: %w", err)
	}
	defer fp.Close()
	var ids []string
	sc := bufio.NewScanner(fp)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, strings.Fields(line)...)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read sample ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("read sample ids: %q lists no samples", path)
	}
	return ids, nil
}

// RunBatch runs the full pipeline for every sample id, partitioned
// round-robin across numWorkers independent workers. Workers share
// nothing but the output root; each sample writes only its own
// directory. A failed sample is recorded and the batch continues.
func (r *Runner) RunBatch(ctx context.Context, ids []string, numWorkers int) []SampleResult {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if numWorkers > len(ids) {
		numWorkers = len(ids)
	}
	results := make([]SampleResult, len(ids))
	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := worker; i < len(ids); i += numWorkers {
				results[i] = SampleResult{
					SampleID: ids[i],
					Err:      r.RunSample(ctx, ids[i]),
				}
			}
		}(w)
	}
	wg.Wait()
	return results
}
