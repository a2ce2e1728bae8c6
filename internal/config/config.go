// Package config collects the tunables the book, sequencer and journal
// consult, named as constants with a constructor rather than pulled through
// a flags/viper layer — matching depends on none of these changing once a
// book is running.
package config

const (
	defaultSegmentSizeBytes      = 64 * 1024 * 1024
	defaultIcebergRefreshSize    = 0 // 0 == use the order's original visible quantity
	defaultSnapshotFormatVersion = 1
	defaultImbalanceLevels       = 5
	defaultSpreadBpsMultiplier   = 10_000
)

// Config bundles every tunable the book, sequencer and journal consult.
type Config struct {
	// SegmentSizeBytes is the maximum serialized size of a journal segment
	// file before a new one is opened.
	SegmentSizeBytes int

	// IcebergRefreshSize is the slice size used when refilling an iceberg
	// order's visible quantity from its hidden reserve. Zero means "use the
	// order's original visible quantity" — the common default.
	IcebergRefreshSize int

	// SnapshotFormatVersion is stamped into every snapshot package and
	// checked on restore.
	SnapshotFormatVersion int

	// ImbalanceLevels is how many top-of-book levels order_book_imbalance
	// sums over.
	ImbalanceLevels int

	// SpreadBpsMultiplier scales spread_bps (default 10,000 == basis points).
	SpreadBpsMultiplier int64

	// EnableGTDSweeper starts the optional background goroutine that
	// proactively expires GTD orders. Lazy expiry during match walks is
	// sufficient on its own, so this defaults to off.
	EnableGTDSweeper bool

	// GTDSweepInterval controls how often the sweeper scans the book when
	// enabled.
	GTDSweepInterval int64 // milliseconds
}

// DefaultConfig returns a Config with conservative defaults for every field.
func DefaultConfig() Config {
	return Config{
		SegmentSizeBytes:      defaultSegmentSizeBytes,
		IcebergRefreshSize:    defaultIcebergRefreshSize,
		SnapshotFormatVersion: defaultSnapshotFormatVersion,
		ImbalanceLevels:       defaultImbalanceLevels,
		SpreadBpsMultiplier:   defaultSpreadBpsMultiplier,
		EnableGTDSweeper:      false,
		GTDSweepInterval:      1000,
	}
}
