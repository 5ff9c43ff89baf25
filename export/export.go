// Package export writes the reporting read-model's closed-loan records to
// Parquet for offline analytics, mirroring the teacher's reconciliation
// report writer.
package export

import (
	"fmt"
	"os"
	"time"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"cardledger/reporting"
)

type closedLendingRow struct {
	Lender       string `parquet:"name=lender, type=BYTE_ARRAY, convertedtype=UTF8"`
	Category     string `parquet:"name=category, type=BYTE_ARRAY, convertedtype=UTF8"`
	TokenID      int64  `parquet:"name=token_id, type=INT64"`
	PrincipalNet int64  `parquet:"name=principal_net, type=INT64"`
	Interest     int64  `parquet:"name=interest, type=INT64"`
	Payout       int64  `parquet:"name=payout, type=INT64"`
	ClosedAt     string `parquet:"name=closed_at, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// ClosedLendingToParquet writes every ClosedLending record in [start, end)
// to a Parquet file at path, one row per closed position.
func ClosedLendingToParquet(store *reporting.Sink, start, end time.Time, path string) (int, error) {
	rows, err := reporting.ClosedLendingInRange(store, start, end)
	if err != nil {
		return 0, fmt.Errorf("export: query closed lending: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("export: create parquet: %w", err)
	}
	defer file.Close()

	fw := writerfile.NewWriterFile(file)
	pw, err := writer.NewParquetWriter(fw, new(closedLendingRow), 1)
	if err != nil {
		return 0, fmt.Errorf("export: parquet schema: %w", err)
	}
	pw.RowGroupSize = 128 * 1024 * 1024
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range rows {
		pr := &closedLendingRow{
			Lender:       row.Lender,
			Category:     row.Category,
			TokenID:      int64(row.TokenID),
			PrincipalNet: int64(row.PrincipalNet),
			Interest:     int64(row.Interest),
			Payout:       int64(row.Payout),
			ClosedAt:     row.ClosedAt.Format(time.RFC3339),
		}
		if err := pw.Write(pr); err != nil {
			pw.WriteStop()
			return 0, fmt.Errorf("export: parquet write: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return 0, fmt.Errorf("export: parquet flush: %w", err)
	}
	return len(rows), nil
}

type closedBorrowingRow struct {
	Borrower         string `parquet:"name=borrower, type=BYTE_ARRAY, convertedtype=UTF8"`
	Category         string `parquet:"name=category, type=BYTE_ARRAY, convertedtype=UTF8"`
	TokenID          int64  `parquet:"name=token_id, type=INT64"`
	RemainingReserve int64  `parquet:"name=remaining_reserve, type=INT64"`
	Liquidated       bool   `parquet:"name=liquidated, type=BOOLEAN"`
	ClosedAt         string `parquet:"name=closed_at, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// ClosedBorrowingToParquet writes every ClosedBorrowing record in
// [start, end) to a Parquet file at path.
func ClosedBorrowingToParquet(store *reporting.Sink, start, end time.Time, path string) (int, error) {
	rows, err := reporting.ClosedBorrowingInRange(store, start, end)
	if err != nil {
		return 0, fmt.Errorf("export: query closed borrowing: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("export: create parquet: %w", err)
	}
	defer file.Close()

	fw := writerfile.NewWriterFile(file)
	pw, err := writer.NewParquetWriter(fw, new(closedBorrowingRow), 1)
	if err != nil {
		return 0, fmt.Errorf("export: parquet schema: %w", err)
	}
	pw.RowGroupSize = 128 * 1024 * 1024
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range rows {
		pr := &closedBorrowingRow{
			Borrower:         row.Borrower,
			Category:         row.Category,
			TokenID:          int64(row.TokenID),
			RemainingReserve: int64(row.RemainingReserve),
			Liquidated:       row.Liquidated,
			ClosedAt:         row.ClosedAt.Format(time.RFC3339),
		}
		if err := pw.Write(pr); err != nil {
			pw.WriteStop()
			return 0, fmt.Errorf("export: parquet write: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return 0, fmt.Errorf("export: parquet flush: %w", err)
	}
	return len(rows), nil
}
