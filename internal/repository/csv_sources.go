package repository

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"LoserLab/internal/domain/models"
	domrepo "LoserLab/internal/domain/repository"
	"LoserLab/pkg/util"
)

// CSVUniverse reads historical constituents from a CSV with columns
// "date" and "tickers", where tickers is a comma-separated list.
type CSVUniverse struct {
	path    string
	exclude map[string]struct{}

	once  sync.Once
	snaps []models.UniverseSnapshot
	err   error
}

// NewCSVUniverse creates a universe source; tickers in exclude are dropped from every snapshot.
func NewCSVUniverse(path string, exclude []string) *CSVUniverse {
	ex := make(map[string]struct{}, len(exclude))
	for _, t := range exclude {
		ex[strings.ToUpper(strings.TrimSpace(t))] = struct{}{}
	}
	return &CSVUniverse{path: path, exclude: ex}
}

// Snapshots loads the file once and returns the same snapshots on later calls.
func (u *CSVUniverse) Snapshots(_ context.Context) ([]models.UniverseSnapshot, error) {
	u.once.Do(func() {
		f, err := os.Open(u.path)
		if err != nil {
			u.err = fmt.Errorf("open universe file: %w", err)
			return
		}
		defer f.Close()
		u.snaps, u.err = ParseUniverse(f, u.exclude)
	})
	return u.snaps, u.err
}

// ParseUniverse parses a constituents CSV. Rows with an unparseable date are skipped.
func ParseUniverse(r io.Reader, exclude map[string]struct{}) ([]models.UniverseSnapshot, error) {
	cr := csv.NewReader(bufio.NewReaderSize(r, 1<<20))
	cr.FieldsPerRecord = -1

	idx, err := readHeader(cr, "date", "tickers")
	if err != nil {
		return nil, fmt.Errorf("universe: %w", err)
	}

	var out []models.UniverseSnapshot
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("universe: %w", err)
		}
		date, ok := util.ParseDate(field(rec, idx["date"]))
		if !ok {
			continue
		}
		var tickers []string
		for _, t := range util.SplitTrim(field(rec, idx["tickers"]), ",") {
			if _, skip := exclude[strings.ToUpper(t)]; skip {
				continue
			}
			tickers = append(tickers, t)
		}
		out = append(out, models.UniverseSnapshot{EffectiveDate: date, Tickers: tickers})
	}
	return out, nil
}

// CSVMetadata holds per-ticker attributes read from a CSV with columns
// "Ticker", "Industry", "Dividend Yield" and "Volume".
type CSVMetadata struct {
	attrs map[string]models.Attributes
}

// LoadCSVMetadata reads the metadata file. A missing file yields an empty source
// so every ticker scores with default attributes.
func LoadCSVMetadata(path string) (*CSVMetadata, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return &CSVMetadata{attrs: map[string]models.Attributes{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open metadata file: %w", err)
	}
	defer f.Close()
	return ParseMetadata(f)
}

// ParseMetadata parses a metadata CSV. Industry is lowercased; blank or
// unparseable numbers read as zero.
func ParseMetadata(r io.Reader) (*CSVMetadata, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = -1

	idx, err := readHeader(cr, "ticker", "industry", "dividend yield", "volume")
	if err != nil {
		return nil, fmt.Errorf("metadata: %w", err)
	}

	attrs := make(map[string]models.Attributes)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("metadata: %w", err)
		}
		ticker := strings.TrimSpace(field(rec, idx["ticker"]))
		if ticker == "" {
			continue
		}
		a := models.DefaultAttributes()
		if ind := strings.ToLower(strings.TrimSpace(field(rec, idx["industry"]))); ind != "" {
			a.Industry = ind
		}
		a.DividendYield = parseNumber(field(rec, idx["dividend yield"]))
		a.Volume = int64(parseNumber(field(rec, idx["volume"])))
		attrs[ticker] = a
	}
	return &CSVMetadata{attrs: attrs}, nil
}

// NewStaticMetadata builds a metadata source from a map.
func NewStaticMetadata(attrs map[string]models.Attributes) *CSVMetadata {
	return &CSVMetadata{attrs: attrs}
}

func (m *CSVMetadata) Attributes(ticker string) models.Attributes {
	if a, ok := m.attrs[ticker]; ok {
		return a
	}
	return models.DefaultAttributes()
}

// Lookup reports whether ticker has metadata.
func (m *CSVMetadata) Lookup(ticker string) (models.Attributes, bool) {
	a, ok := m.attrs[ticker]
	return a, ok
}

func (m *CSVMetadata) Len() int { return len(m.attrs) }

// Industries lists the distinct industries, sorted.
func (m *CSVMetadata) Industries() []string {
	set := make(map[string]struct{})
	for _, a := range m.attrs {
		set[a.Industry] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for ind := range set {
		out = append(out, ind)
	}
	sort.Strings(out)
	return out
}

// ParsePrices parses daily bars from a CSV with columns
// ticker, date, open, high, low, close, volume. Blank prices become NaN.
func ParsePrices(r io.Reader) ([]models.PriceBar, error) {
	cr := csv.NewReader(bufio.NewReaderSize(r, 1<<20))
	cr.ReuseRecord = true

	idx, err := readHeader(cr, "ticker", "date", "open", "high", "low", "close", "volume")
	if err != nil {
		return nil, fmt.Errorf("prices: %w", err)
	}

	var out []models.PriceBar
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("prices line %d: %w", line, err)
		}
		date, ok := util.ParseDate(field(rec, idx["date"]))
		if !ok {
			return nil, fmt.Errorf("prices line %d: bad date %q", line, field(rec, idx["date"]))
		}
		out = append(out, models.PriceBar{
			Ticker: strings.TrimSpace(field(rec, idx["ticker"])),
			Date:   date,
			Open:   parsePrice(field(rec, idx["open"])),
			High:   parsePrice(field(rec, idx["high"])),
			Low:    parsePrice(field(rec, idx["low"])),
			Close:  parsePrice(field(rec, idx["close"])),
			Volume: int64(parseNumber(field(rec, idx["volume"]))),
		})
	}
	return out, nil
}

// ImportPrices reads a prices CSV file into w.
func ImportPrices(ctx context.Context, path string, w domrepo.PriceWriter) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open prices file: %w", err)
	}
	defer f.Close()

	bars, err := ParsePrices(f)
	if err != nil {
		return 0, err
	}
	if err := w.StoreBars(ctx, bars); err != nil {
		return 0, fmt.Errorf("store bars: %w", err)
	}
	return len(bars), nil
}

// readHeader maps required lowercase column names to their positions.
func readHeader(cr *csv.Reader, required ...string) (map[string]int, error) {
	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(head))
	for i, h := range head {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, name := range required {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	return idx, nil
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func parseNumber(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func parsePrice(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

var (
	_ domrepo.UniverseSource  = (*CSVUniverse)(nil)
	_ domrepo.MetadataCatalog = (*CSVMetadata)(nil)
)
