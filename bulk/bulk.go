package bulk

import (
	"context"
	"errors"

	"github.com/edgehill-data/gapush/log"
	"github.com/edgehill-data/gapush/metrics"
	"github.com/edgehill-data/gapush/types"
)

// Importer is the slice of the import client the deliverer drives.
type Importer interface {
	UploadCSV(ctx context.Context, doc []byte) (*Upload, error)
	DeletePrevious(ctx context.Context, keep string) (int, error)
}

// DocumentArchiver stores a copy of the generated document.
type DocumentArchiver interface {
	Archive(ctx context.Context, runID string, doc []byte) (string, error)
}

// Deliverer runs one bulk-import delivery: render the row set to CSV, upload
// it, retire the previous uploads, and archive the document.
//
// Archiving is best-effort: a failed archive is logged but does not fail the
// delivery, since the platform already holds the data at that point.
type Deliverer struct {
	importer  Importer
	archiver  DocumentArchiver
	runID     string
	logger    *log.Logger
	collector *metrics.Collector
}

// NewDeliverer creates a bulk deliverer. archiver may be nil to disable
// archiving.
func NewDeliverer(importer Importer, archiver DocumentArchiver, runID string, logger *log.Logger, collector *metrics.Collector) (*Deliverer, error) {
	if importer == nil {
		return nil, errors.New("bulk deliverer requires an import client")
	}
	return &Deliverer{
		importer:  importer,
		archiver:  archiver,
		runID:     runID,
		logger:    logger,
		collector: collector,
	}, nil
}

// Deliver ships the row set. Any upload or delete failure aborts and is
// returned; the caller classifies the run outcome.
func (d *Deliverer) Deliver(ctx context.Context, set *types.RowSet) error {
	doc, err := WriteCSV(set)
	if err != nil {
		return err
	}
	d.collector.AddUploadBytes(int64(len(doc)))

	upload, err := d.importer.UploadCSV(ctx, doc)
	if err != nil {
		return err
	}

	deleted, err := d.importer.DeletePrevious(ctx, upload.ID)
	if err != nil {
		return err
	}
	d.collector.AddUploadsDeleted(int64(deleted))

	if d.archiver != nil {
		if _, err := d.archiver.Archive(ctx, d.runID, doc); err != nil {
			d.logger.Warn("archive failed", map[string]any{
				"error": err.Error(),
			})
		}
	}

	return nil
}
