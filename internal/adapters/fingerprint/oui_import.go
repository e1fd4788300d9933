package fingerprint

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

const importBatchSize = 1000

// ImportResult summarizes one CSV import.
type ImportResult struct {
	Imported int
	Skipped  int
}

// ImportCSV loads "Mac Prefix,Vendor Name,..." rows (the maclookup.app
// export format, header first) into w in batches. Rows that fail to parse
// or lack a prefix or vendor are skipped.
func ImportCSV(ctx context.Context, w VendorWriter, r io.Reader) (ImportResult, error) {
	var res ImportResult
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		return res, fmt.Errorf("read header: %w", err)
	}

	now := time.Now()
	batch := make([]OUIEntry, 0, importBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := w.BulkInsertOUIs(ctx, batch); err != nil {
			return err
		}
		res.Imported += len(batch)
		batch = batch[:0]
		return nil
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			res.Skipped++
			continue
		}
		if len(record) < 2 {
			res.Skipped++
			continue
		}

		vendor := strings.TrimSpace(record[1])
		if _, err := ParsePrefix(record[0]); err != nil || vendor == "" {
			res.Skipped++
			continue
		}

		batch = append(batch, OUIEntry{
			Prefix:      record[0],
			Vendor:      vendor,
			VendorShort: ShortVendor(vendor),
			LastUpdated: now,
		})
		if len(batch) == importBatchSize {
			if err := flush(); err != nil {
				return res, err
			}
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
	}
	return res, flush()
}

var vendorSuffixes = []string{
	" Co., Ltd.", " Inc.", " Inc", " Corporation", " Corp.", " Corp",
	" Ltd.", " Ltd", " Limited", " Co.", " LLC", " GmbH", " S.A.", " AG",
}

// ShortVendor trims the legal suffix and anything after the first comma.
func ShortVendor(vendor string) string {
	vendor = strings.TrimSpace(vendor)
	for _, suffix := range vendorSuffixes {
		vendor = strings.TrimSuffix(vendor, suffix)
	}
	if idx := strings.Index(vendor, ","); idx > 0 {
		vendor = vendor[:idx]
	}
	return strings.TrimSpace(vendor)
}
