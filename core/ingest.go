package core

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/huangsam/casetrend/core/extract"
	"github.com/huangsam/casetrend/internal/contract"
	"github.com/huangsam/casetrend/schema"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html/charset"
)

// FetchAndStore runs one fetch through the whole ingest pipeline. The raw page
// is recorded before decoding so a layout change still leaves the page behind.
func FetchAndStore(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, f contract.Fetcher) (schema.IngestResult, error) {
	page, err := f.Fetch(ctx, cfg.SourceURL)
	if err != nil {
		return schema.IngestResult{}, err
	}

	var audit string
	if auditStore := mgr.GetAuditStore(); auditStore != nil {
		audit, err = auditStore.Record(page.FetchedAt, page.Body)
		if err != nil {
			contract.LogWarn("Failed to record raw page", err)
		}
	}

	result, err := IngestPage(ctx, cfg, mgr, page.Body)
	if err != nil {
		if audit != "" {
			return schema.IngestResult{}, fmt.Errorf("%w (raw page kept at %s)", err, audit)
		}
		return schema.IngestResult{}, err
	}
	result.Audit = audit
	return result, nil
}

// IngestPage decodes body and puts the snapshot into the configured store.
// A snapshot whose key is already stored is not an error.
func IngestPage(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, body []byte) (schema.IngestResult, error) {
	store := mgr.GetSnapshotStore()
	if store == nil {
		return schema.IngestResult{}, errStoreNotInitialized
	}

	decoded, err := decodePage(cfg, body)
	if err != nil {
		return schema.IngestResult{}, err
	}
	snap := decoded.Snapshot

	written, err := store.Put(ctx, snap)
	if err != nil {
		return schema.IngestResult{}, fmt.Errorf("failed to store snapshot %s: %w", snap.Key(), err)
	}

	log.Debug().
		Str("key", snap.Key()).
		Str("layout", decoded.Layout.Name).
		Int("regions", snap.Counts.Len()).
		Bool("written", written).
		Msg("ingested snapshot")

	return schema.IngestResult{
		Key:      snap.Key(),
		Captured: snap.Timestamp,
		Layout:   decoded.Layout.Name,
		Regions:  snap.Counts.Len(),
		Total:    snap.Counts.Total(),
		Stored:   true,
		Written:  written,
	}, nil
}

// decodePage runs the decoder selected by the config on an HTML body.
func decodePage(cfg *contract.Config, body []byte) (extract.Decoded, error) {
	dec, err := extract.NewDecoder(cfg.Layouts, cfg.LayoutName, nil)
	if err != nil {
		return extract.Decoded{}, err
	}
	return dec.DecodeBytes(body)
}

// decodeCharset converts a saved page to UTF-8 using its BOM or meta tags.
func decodeCharset(raw []byte) ([]byte, error) {
	r, err := charset.NewReader(bytes.NewReader(raw), "text/html")
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

// writeSnapshotText prints snap the way the file store lays it out, after a
// comment line naming the key and layout.
func writeSnapshotText(w io.Writer, snap schema.Snapshot, layout string) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "# %s (layout %s)\n", snap.Key(), layout); err != nil {
		return err
	}
	for region, n := range snap.Counts.All() {
		if _, err := fmt.Fprintf(bw, "%s\t%d\n", region, n); err != nil {
			return err
		}
	}
	return bw.Flush()
}
