package reporting

import "time"

// ClosedLendingInRange returns closed lend positions whose ClosedAt falls in
// [start, end), ordered oldest first.
func ClosedLendingInRange(store *Sink, start, end time.Time) ([]ClosedLending, error) {
	var rows []ClosedLending
	err := store.db.Where("closed_at >= ? AND closed_at < ?", start, end).
		Order("closed_at asc").Find(&rows).Error
	return rows, err
}

// ClosedBorrowingInRange returns closed borrowings whose ClosedAt falls in
// [start, end), ordered oldest first.
func ClosedBorrowingInRange(store *Sink, start, end time.Time) ([]ClosedBorrowing, error) {
	var rows []ClosedBorrowing
	err := store.db.Where("closed_at >= ? AND closed_at < ?", start, end).
		Order("closed_at asc").Find(&rows).Error
	return rows, err
}

// LiquidatedBorrowingCount reports how many closed borrowings in
// [start, end) are marked liquidated.
func LiquidatedBorrowingCount(store *Sink, start, end time.Time) (int64, error) {
	var count int64
	err := store.db.Model(&ClosedBorrowing{}).
		Where("closed_at >= ? AND closed_at < ? AND liquidated = ?", start, end, true).
		Count(&count).Error
	return count, err
}
