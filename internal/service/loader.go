package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joeblew999/plat-aquifer/internal/aquifer"
	"github.com/joeblew999/plat-aquifer/internal/fetch"
)

// LoaderService runs the batched download of the main collection and maps
// its outcome onto the notice taxonomy: bad manifest or total failure are
// blocking, partial data is a warning, success is a toast.
type LoaderService struct {
	fetcher *fetch.Fetcher
	store   *aquifer.Store
	notices *NoticeService
	log     *slog.Logger
}

// NewLoaderService wires the loader.
func NewLoaderService(fetcher *fetch.Fetcher, store *aquifer.Store, notices *NoticeService, log *slog.Logger) *LoaderService {
	if log == nil {
		log = slog.Default()
	}
	return &LoaderService{fetcher: fetcher, store: store, notices: notices, log: log}
}

// Load fetches the manifest and every data file, then merges the successful
// collections into the store. A blocking failure leaves the store untouched
// so other layers keep working; the error is returned for callers that need
// the classification (the check subcommand).
func (s *LoaderService) Load(ctx context.Context, manifestURL string) error {
	res, err := s.fetcher.Load(ctx, manifestURL)
	switch {
	case errors.Is(err, fetch.ErrBadManifest):
		s.log.Error("manifest rejected", "url", manifestURL, "error", err)
		s.notices.Publish(SeverityBlocking, "Aquifer data manifest could not be loaded")
		return err
	case errors.Is(err, fetch.ErrAllFailed):
		s.log.Error("all data files failed", "url", manifestURL)
		s.notices.Publish(SeverityBlocking, "No aquifer data files could be loaded")
		return err
	case err != nil:
		s.log.Error("load failed", "url", manifestURL, "error", err)
		s.notices.Publish(SeverityBlocking, "Aquifer data could not be loaded")
		return err
	}

	if res.Partial() {
		s.notices.Publish(SeverityWarning,
			fmt.Sprintf("%d of %d data files failed to load; showing partial data", len(res.Failed), res.Requested))
	}

	count := s.store.Load(res.Collections)
	s.log.Info("collection loaded", "files", len(res.Collections), "features", count)
	s.notices.Publish(SeverityToast, fmt.Sprintf("Loaded %d aquifer polygons", count))
	return nil
}
