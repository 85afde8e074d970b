package dualsub

import (
	"context"
	"sync"

	"dualsubs/internal/history"
	"dualsubs/internal/logging"
	"dualsubs/internal/services"
	"dualsubs/internal/subtitles"
)

const defaultBatchConcurrency = 2

// JobResult is the outcome of one manifest job.
type JobResult struct {
	Job     ManifestJob
	Outcome *MergeOutcome
	Err     error
}

// BatchResult lists job results in manifest order.
type BatchResult struct {
	Jobs      []JobResult
	Succeeded int
	Failed    int
}

// Batch runs every job in manifest with at most concurrency merges in
// flight. A failed job does not stop the others.
func (s *Service) Batch(ctx context.Context, manifest *Manifest, base subtitles.Options, concurrency int) (*BatchResult, error) {
	if manifest == nil || len(manifest.Jobs) == 0 {
		return nil, services.Wrap(services.ErrValidation, "batch", "load manifest", "Manifest has no jobs", nil)
	}
	if concurrency <= 0 {
		concurrency = defaultBatchConcurrency
	}

	results := make([]JobResult, len(manifest.Jobs))
	semaphore := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, job := range manifest.Jobs {
		results[i].Job = job
		opts, err := manifest.JobOptions(base, job)
		if err != nil {
			results[i].Err = services.Wrap(services.ErrConfiguration, "batch", "job options", "Invalid job options", err)
			continue
		}

		select {
		case semaphore <- struct{}{}:
		case <-ctx.Done():
			results[i].Err = ctx.Err()
			continue
		}
		wg.Add(1)
		go func(i int, job ManifestJob, opts subtitles.Options) {
			defer wg.Done()
			defer func() { <-semaphore }()

			outcome, err := s.MergeFiles(ctx, MergeRequest{
				PrimaryPath:       job.Primary,
				SecondaryPath:     job.Secondary,
				PrimaryLanguage:   job.PrimaryLanguage,
				SecondaryLanguage: job.SecondaryLanguage,
				OutputPath:        s.jobOutputPath(manifest, job, opts),
				Options:           opts,
				Source:            history.SourceBatch,
				Job:               job.Name,
			})
			results[i].Outcome = outcome
			results[i].Err = err
		}(i, job, opts)
	}
	wg.Wait()

	summary := &BatchResult{Jobs: results}
	for _, res := range results {
		if res.Err != nil {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}
	s.logger.Info("batch complete",
		logging.String(logging.FieldEventType, "batch_completed"),
		logging.Int("jobs", len(results)),
		logging.Int("succeeded", summary.Succeeded),
		logging.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (s *Service) jobOutputPath(manifest *Manifest, job ManifestJob, opts subtitles.Options) string {
	if job.Output != "" {
		return job.Output
	}
	if manifest.OutputDir == "" {
		return ""
	}
	primary, secondary := s.pairLanguages(job.PrimaryLanguage, job.SecondaryLanguage)
	return DefaultOutputPath(job.Primary, manifest.OutputDir, primary, secondary, opts.Format)
}
