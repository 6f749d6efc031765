package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/krispyensign/mutantstopbot/internal/series"
)

// Compile-time interface check.
var _ CandleStore = (*ParquetStore)(nil)

// ParquetStore implements CandleStore using Parquet files on disk, one file
// per instrument and granularity. It serves as a read-through cache in
// front of the brokerage candle feed.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// CandleRecord is the Parquet schema for bid/ask candle history.
type CandleRecord struct {
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	AskOpen   float64 `parquet:"ask_open"`
	AskHigh   float64 `parquet:"ask_high"`
	AskLow    float64 `parquet:"ask_low"`
	AskClose  float64 `parquet:"ask_close"`
	BidOpen   float64 `parquet:"bid_open"`
	BidHigh   float64 `parquet:"bid_high"`
	BidLow    float64 `parquet:"bid_low"`
	BidClose  float64 `parquet:"bid_close"`
	Volume    int64   `parquet:"volume"`
}

// WriteCandles merges the given candles into the instrument's history file,
// deduplicating by timestamp with new candles preferred.
func (s *ParquetStore) WriteCandles(_ context.Context, instrument, granularity string, candles []series.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	records := make([]CandleRecord, len(candles))
	for i, c := range candles {
		records[i] = toRecord(c)
	}

	path := s.candlePath(instrument, granularity)
	existing, _ := readParquetFile[CandleRecord](path)
	merged := mergeCandleRecords(existing, records)

	if err := writeParquetFile(path, merged); err != nil {
		return fmt.Errorf("writing candles for %s/%s: %w", instrument, granularity, err)
	}
	return nil
}

// ReadCandles returns up to count candles at or after from, in time order.
func (s *ParquetStore) ReadCandles(_ context.Context, instrument, granularity string, from time.Time, count int) ([]series.Candle, error) {
	path := s.candlePath(instrument, granularity)
	records, err := readParquetFile[CandleRecord](path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading candles for %s/%s: %w", instrument, granularity, err)
	}

	fromMilli := int64(0)
	if !from.IsZero() {
		fromMilli = from.UnixMilli()
	}

	candles := make([]series.Candle, 0, len(records))
	for _, r := range records {
		if r.Timestamp < fromMilli {
			continue
		}
		candles = append(candles, fromRecord(r))
		if count > 0 && len(candles) == count {
			break
		}
	}
	return candles, nil
}

// candlePath returns the filesystem path for an instrument's history.
// Layout: <dataDir>/<INSTRUMENT>/<granularity>.parquet
func (s *ParquetStore) candlePath(instrument, granularity string) string {
	return filepath.Join(s.DataDir, strings.ToUpper(instrument), granularity+".parquet")
}

func toRecord(c series.Candle) CandleRecord {
	return CandleRecord{
		Timestamp: c.Timestamp.UnixMilli(),
		Open:      c.Open, High: c.High, Low: c.Low, Close: c.Close,
		AskOpen: c.AskOpen, AskHigh: c.AskHigh, AskLow: c.AskLow, AskClose: c.AskClose,
		BidOpen: c.BidOpen, BidHigh: c.BidHigh, BidLow: c.BidLow, BidClose: c.BidClose,
		Volume: c.Volume,
	}
}

func fromRecord(r CandleRecord) series.Candle {
	return series.Candle{
		Timestamp: time.UnixMilli(r.Timestamp).UTC(),
		Open:      r.Open, High: r.High, Low: r.Low, Close: r.Close,
		AskOpen: r.AskOpen, AskHigh: r.AskHigh, AskLow: r.AskLow, AskClose: r.AskClose,
		BidOpen: r.BidOpen, BidHigh: r.BidHigh, BidLow: r.BidLow, BidClose: r.BidClose,
		Volume: r.Volume,
	}
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	// Check existence first so a cache miss is distinguishable from a
	// corrupt file.
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return parquet.ReadFile[T](path)
}

// mergeCandleRecords deduplicates candle records by timestamp, preferring
// new records over existing ones. Results are sorted by timestamp.
func mergeCandleRecords(existing, incoming []CandleRecord) []CandleRecord {
	seen := make(map[int64]CandleRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.Timestamp] = r
	}
	for _, r := range incoming {
		seen[r.Timestamp] = r
	}

	merged := make([]CandleRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}
