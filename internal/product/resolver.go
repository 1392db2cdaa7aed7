// Package product turns a barcode into a Product, consulting the last scanned
// product before asking the product-data API.
package product

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/franckalain/eatsmarty/internal/models"
	"github.com/franckalain/eatsmarty/internal/openfoodfacts"
	"github.com/franckalain/eatsmarty/internal/store"
)

// ErrNotFound is returned when the API has no product for the barcode.
var ErrNotFound = errors.New("product not found in database")

// ErrInvalidBarcode is returned for empty or malformed barcodes.
var ErrInvalidBarcode = models.ErrInvalidBarcode

// Where a barcode came from, as recorded in the scan log
const (
	SourceCamera = "camera"
	SourceManual = "manual"
)

// Fetcher retrieves raw product data
type Fetcher interface {
	Fetch(ctx context.Context, barcode string) (*openfoodfacts.Response, error)
}

// Recorder receives one record per resolution
type Recorder interface {
	SaveScan(ctx context.Context, scan *models.ScanRecord) error
}

// Resolver resolves barcodes into products
type Resolver struct {
	fetcher  Fetcher
	products *store.ProductStore
	settings *store.SettingsStore
	recorder Recorder
	logger   *zap.Logger
	now      func() time.Time
}

// NewResolver creates a resolver. settings and recorder may be nil; without
// settings every resolved product is added to the history.
func NewResolver(fetcher Fetcher, products *store.ProductStore, settings *store.SettingsStore, recorder Recorder, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		fetcher:  fetcher,
		products: products,
		settings: settings,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// Resolve looks up a barcode entered by hand
func (r *Resolver) Resolve(ctx context.Context, barcode string) (models.Product, error) {
	return r.ResolveFrom(ctx, barcode, SourceManual)
}

// ResolveFrom resolves barcode and records source in the scan log.
//
// If barcode equals the id of the last scanned product, that product is
// returned without a request. Otherwise one request is made; on success the
// product becomes the scanned product. Not-found and transient failures leave
// the stored state untouched and are never retried here.
//
// The request is detached from ctx cancellation and bounded only by the
// client timeout: a caller that gives up still gets the product cached and
// the outcome logged, and simply ignores the late result.
func (r *Resolver) ResolveFrom(ctx context.Context, barcode, source string) (models.Product, error) {
	p, err := r.resolve(ctx, barcode)
	r.record(ctx, barcode, source, err)
	return p, err
}

func (r *Resolver) resolve(ctx context.Context, raw string) (models.Product, error) {
	barcode, err := models.ValidateBarcode(raw)
	if err != nil {
		return models.Product{}, err
	}

	if cached, ok := r.products.Scanned(); ok && cached.ID == barcode {
		r.logger.Debug("product served from cache", zap.String("barcode", barcode))
		return cached, nil
	}

	ctx = context.WithoutCancel(ctx)
	resp, err := r.fetcher.Fetch(ctx, barcode)
	if err != nil {
		return models.Product{}, err
	}
	if !resp.Found() {
		return models.Product{}, fmt.Errorf("%w: %s", ErrNotFound, barcode)
	}

	product := openfoodfacts.MapProduct(barcode, resp.Product, r.now().UTC())

	recordHistory := true
	if r.settings != nil {
		recordHistory = r.settings.ScanHistoryEnabled()
	}
	if err := r.products.SetScanned(ctx, product, recordHistory); err != nil {
		// the product is still shown even if it could not be persisted
		r.logger.Error("failed to store scanned product", zap.String("barcode", barcode), zap.Error(err))
	}

	r.logger.Info("product resolved",
		zap.String("barcode", barcode),
		zap.String("name", product.Name),
	)
	return product, nil
}

func (r *Resolver) record(ctx context.Context, barcode, source string, err error) {
	if r.recorder == nil {
		return
	}
	now := r.now().UTC()
	rec := &models.ScanRecord{
		ID:        uuid.New().String(),
		Barcode:   barcode,
		Source:    source,
		Status:    Outcome(err).ScanStatus(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err != nil {
		rec.Error = err.Error()
	}
	// recording outlives a cancelled request
	if saveErr := r.recorder.SaveScan(context.WithoutCancel(ctx), rec); saveErr != nil {
		r.logger.Warn("failed to record scan", zap.String("barcode", barcode), zap.Error(saveErr))
	}
}
