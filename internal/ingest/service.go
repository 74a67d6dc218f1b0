// Package ingest implements the write path of the container: filters,
// model grids, calibration spectra, object records, isochrones, posterior
// sample sets, retrieval output and comparison results.
//
// Every operation overwrites prior content at its path inside one
// transaction, so re-ingesting a tag is idempotent.
package ingest

import (
	"log/slog"

	"github.com/xtxerr/specdb/internal/config"
	"github.com/xtxerr/specdb/internal/forward"
	"github.com/xtxerr/specdb/internal/logging"
	"github.com/xtxerr/specdb/internal/store"
)

// Options carries the external collaborators of the ingestion service. All
// fields are optional; operations that need an absent collaborator fail
// with a descriptive error or degrade as specified per operation.
type Options struct {
	// Photometry converts magnitudes to fluxes and integrates spectra.
	Photometry forward.PhotometryService

	// Extinction evaluates the dereddening correction.
	Extinction forward.ExtinctionLaw

	// Fetcher resolves filter transmission curves that are not yet stored.
	Fetcher FilterFetcher
}

// Service is the ingestion front end over one open store.
type Service struct {
	store      *store.Store
	dataFolder string
	photometry forward.PhotometryService
	extinction forward.ExtinctionLaw
	fetcher    FilterFetcher
	log        *slog.Logger
}

// New creates an ingestion service. The configuration is loaded once by the
// caller and passed down; the service never re-reads it.
func New(st *store.Store, cfg *config.Config, opts Options) *Service {
	return &Service{
		store:      st,
		dataFolder: cfg.DataFolder,
		photometry: opts.Photometry,
		extinction: opts.Extinction,
		fetcher:    opts.Fetcher,
		log:        logging.Component("ingest"),
	}
}
