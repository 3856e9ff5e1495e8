// Package downloader runs the validate-fetch-store pipeline over batches of
// URLs, sequentially or under a fixed concurrency cap.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/semaphore"

	"localdocs/internal/convert"
	"localdocs/internal/domain"
	"localdocs/internal/fetch"
	"localdocs/internal/security"
)

// MaxConcurrent caps in-flight operations in concurrent mode. A hard
// ceiling, not a target.
const MaxConcurrent = 3

// ErrEmptyContent rejects documents that fetched and decoded to nothing.
var ErrEmptyContent = errors.New("document content is empty")

// Validator screens one URL before any download is attempted.
type Validator interface {
	ValidateURL(ctx context.Context, rawURL string) error
}

// Fetcher performs the real download of an already-validated URL.
type Fetcher interface {
	Download(ctx context.Context, rawURL string) (fetch.Result, error)
}

// Store receives one registry write per successful fetch. Its registry
// update must be atomic per call; the batch never serializes writes itself.
type Store interface {
	Get(id string) (domain.Document, bool, error)
	Put(id string, doc domain.Document) error
	SaveContent(id, text string) error
}

// Outcome is the result of one URL's operation.
type Outcome struct {
	URL string
	ID  string
	Err error
}

// Summary aggregates a finished batch. Outcomes holds exactly one entry per
// submitted URL, in submission order.
type Summary struct {
	Outcomes  []Outcome
	Succeeded int
}

// Batch wires the pipeline stages together. Safe for concurrent use; all
// mutable per-operation state is operation-local.
type Batch struct {
	validator Validator
	fetcher   Fetcher
	converter *convert.Converter
	store     Store
}

func New(validator Validator, fetcher Fetcher, converter *convert.Converter, store Store) *Batch {
	return &Batch{
		validator: validator,
		fetcher:   fetcher,
		converter: converter,
		store:     store,
	}
}

// Run processes every URL and reports the aggregate. Failures never abort
// the batch: each URL's error is captured in its outcome and logged with
// its category. In concurrent mode at most MaxConcurrent operations are in
// flight; cross-URL ordering of side effects is unspecified, but outcomes
// come back in submission order either way.
func (b *Batch) Run(ctx context.Context, urls []string, concurrent bool) Summary {
	outcomes := make([]Outcome, len(urls))

	if concurrent {
		sem := semaphore.NewWeighted(MaxConcurrent)
		var wg sync.WaitGroup
		for i, url := range urls {
			wg.Add(1)
			go func(i int, url string) {
				defer wg.Done()
				if err := sem.Acquire(ctx, 1); err != nil {
					outcomes[i] = Outcome{URL: url, Err: fmt.Errorf("acquire worker slot: %w", err)}
					return
				}
				defer sem.Release(1)
				outcomes[i] = b.process(ctx, url)
			}(i, url)
		}
		wg.Wait()
	} else {
		for i, url := range urls {
			outcomes[i] = b.process(ctx, url)
		}
	}

	summary := Summary{Outcomes: outcomes}
	for _, outcome := range outcomes {
		if outcome.Err == nil {
			summary.Succeeded++
			continue
		}
		logFailure(outcome)
	}
	return summary
}

// process runs one URL through validate, fetch, convert, and store.
func (b *Batch) process(ctx context.Context, url string) Outcome {
	outcome := Outcome{URL: url, ID: domain.HashID(url)}

	if err := b.validator.ValidateURL(ctx, url); err != nil {
		outcome.Err = err
		return outcome
	}

	fetchCtx, cancel := context.WithTimeout(ctx, fetch.DownloadTimeout)
	defer cancel()

	result, err := b.fetcher.Download(fetchCtx, url)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	if result.Text == "" {
		outcome.Err = ErrEmptyContent
		return outcome
	}

	text := result.Text
	var title string
	if result.IsHTML() && b.converter != nil {
		converted := b.converter.Convert(result.Text, url)
		text = converted.Markdown
		title = converted.Title
	}

	if err := b.write(outcome.ID, url, title, text); err != nil {
		outcome.Err = fmt.Errorf("store document: %w", err)
		return outcome
	}

	log.Info("Downloaded", "id", outcome.ID, "url", url)
	return outcome
}

// write stores the content file first, then the registry entry. A fresh
// document picks up the page title as its name; a re-download keeps the
// existing metadata and only refreshes the URL.
func (b *Batch) write(id, url, title, text string) error {
	if err := b.store.SaveContent(id, text); err != nil {
		return err
	}

	doc, exists, err := b.store.Get(id)
	if err != nil {
		return err
	}
	if !exists {
		doc = domain.Document{Tags: []string{}}
		if title != "" {
			doc.Name = domain.CleanName(title)
		}
	}
	doc.URL = url
	return b.store.Put(id, doc)
}

// Category names the failure class for diagnostics: security violations
// stay distinguishable from ordinary faults all the way to the CLI.
func Category(err error) string {
	if err == nil {
		return ""
	}
	if security.IsSecurityViolation(err) {
		return "security violation"
	}

	var (
		statusErr   *fetch.StatusError
		requestErr  *fetch.RequestError
		tooLargeErr *fetch.TooLargeError
		decodeErr   *fetch.DecodeError
	)
	switch {
	case errors.As(err, &tooLargeErr), errors.As(err, &decodeErr), errors.Is(err, ErrEmptyContent):
		return "content failure"
	case errors.As(err, &statusErr), errors.As(err, &requestErr):
		return "network failure"
	}

	var (
		hostErr    *security.HostnameError
		resolveErr *security.ResolveError
		trialErr   *security.TrialError
		trialsErr  *security.TrialStatusError
		typeErr    *security.ContentTypeError
		sizeErr    *security.DeclaredSizeError
		portErr    *security.PortRangeError
	)
	switch {
	case errors.As(err, &hostErr), errors.As(err, &resolveErr), errors.As(err, &trialErr),
		errors.As(err, &trialsErr), errors.As(err, &typeErr), errors.As(err, &sizeErr),
		errors.As(err, &portErr):
		return "validation failure"
	}

	return "store failure"
}

func logFailure(outcome Outcome) {
	category := Category(outcome.Err)
	if category == "security violation" {
		log.Error("Security violation", "url", outcome.URL, "error", outcome.Err)
		return
	}
	log.Error("Download failed", "url", outcome.URL, "category", category, "error", outcome.Err)
}
