package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"scz-inmuebles/extractor"
	"scz-inmuebles/models"
	"scz-inmuebles/utils"
)

// ErrUnsupportedFormat is returned for files that are neither .xlsx nor .csv.
var ErrUnsupportedFormat = errors.New("ingest: unsupported file format")

var (
	dashedDateRegexp  = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
	compactDateRegexp = regexp.MustCompile(`(?:^|[^\d])(\d{4})(\d{2})(\d{2})(?:[^\d]|$)`)
	providerRegexp    = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9]*`)
)

// Reader turns provider exports into raw rows.
type Reader struct {
	mapper *ColumnMapper
	logger *utils.Logger
}

// NewReader creates a Reader. A nil mapper uses the default aliases.
func NewReader(mapper *ColumnMapper, logger *utils.Logger) *Reader {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	if mapper == nil {
		mapper = NewColumnMapper(nil, logger)
	}
	return &Reader{mapper: mapper, logger: logger}
}

// ReadFiles reads every path and concatenates the rows.
func (r *Reader) ReadFiles(paths []string, provider string) ([]*models.RawRow, error) {
	var all []*models.RawRow
	for _, p := range paths {
		rows, err := r.ReadFile(p, provider)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
	}
	return all, nil
}

// ReadFile reads one .xlsx or .csv export. An empty provider is taken from the
// file name prefix; the snapshot date comes from a date in the file name, or
// the file modification time.
func (r *Reader) ReadFile(path, provider string) ([]*models.RawRow, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		records, err = readXLSX(path)
	case ".csv", ".txt":
		records, err = readCSV(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, err
	}

	base := filepath.Base(path)
	if provider == "" {
		provider = ProviderFromFilename(base)
	}
	snapshot, ok := SnapshotFromFilename(base)
	if !ok {
		if info, statErr := os.Stat(path); statErr == nil {
			snapshot = info.ModTime().UTC().Truncate(24 * time.Hour)
		}
		r.logger.Warn("[ingest] No date in %s, using %s as snapshot", base, snapshot.Format("2006-01-02"))
	}

	rows := r.toRows(records, provider, base, snapshot)
	r.logger.Info("[ingest] Read %d rows from %s (provider %s, snapshot %s)",
		len(rows), base, provider, snapshot.Format("2006-01-02"))
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: open %q: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("ingest: read sheet %q of %q: %w", sheets[0], path, err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: read %q: %w", path, err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = sniffDelimiter(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var out [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ingest: parse %q: %w", path, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// sniffDelimiter picks the most frequent of , ; and tab in the first line.
func sniffDelimiter(data []byte) rune {
	line, _ := bufio.NewReader(bytes.NewReader(data)).ReadString('\n')
	best, count := ',', strings.Count(line, ",")
	for _, d := range []rune{';', '\t'} {
		if n := strings.Count(line, string(d)); n > count {
			best, count = d, n
		}
	}
	return best
}

func (r *Reader) toRows(records [][]string, provider, source string, snapshot time.Time) []*models.RawRow {
	start := 0
	for start < len(records) && isBlank(records[start]) {
		start++
	}
	if start >= len(records) {
		return nil
	}
	cols := r.mapper.Map(records[start])
	if _, ok := cols[ColTitle]; !ok {
		if _, ok := cols[ColDescription]; !ok {
			r.logger.Warn("[ingest] %s has neither a title nor a description column", source)
		}
	}

	get := func(rec []string, col string) string {
		i, ok := cols[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	rows := make([]*models.RawRow, 0, len(records)-start-1)
	for n, rec := range records[start+1:] {
		if isBlank(rec) {
			continue
		}
		row := &models.RawRow{
			ID:            get(rec, ColID),
			Title:         get(rec, ColTitle),
			Description:   get(rec, ColDescription),
			PriceText:     get(rec, ColPrice),
			AmenitiesText: get(rec, ColAmenities),
			PropertyType:  get(rec, ColType),
			Zone:          get(rec, ColZone),
			URL:           get(rec, ColURL),
			Latitude:      parseCoord(get(rec, ColLatitude)),
			Longitude:     parseCoord(get(rec, ColLongitude)),
			Provider:      provider,
			SourceFile:    source,
			SnapshotDate:  snapshot,
			RowNumber:     start + n + 2,
		}
		if v, ok := extractor.ParseMeasure(get(rec, ColRooms)); ok {
			rooms := int(v)
			row.Rooms = &rooms
		}
		if v, ok := extractor.ParseMeasure(get(rec, ColBaths)); ok {
			row.Baths = &v
		}
		rows = append(rows, row)
	}
	return rows
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// parseCoord accepts a dot or a comma as decimal separator.
func parseCoord(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return nil
	}
	return &v
}

// ProviderFromFilename returns the lowercased leading word of a file name,
// e.g. "c21" for "c21_2025-08-15.xlsx".
func ProviderFromFilename(name string) string {
	p := providerRegexp.FindString(strings.TrimSuffix(name, filepath.Ext(name)))
	if p == "" {
		return "desconocido"
	}
	return strings.ToLower(p)
}

// SnapshotFromFilename finds a YYYY-MM-DD or YYYYMMDD date in a file name.
func SnapshotFromFilename(name string) (time.Time, bool) {
	var y, m, d string
	if g := dashedDateRegexp.FindStringSubmatch(name); g != nil {
		y, m, d = g[1], g[2], g[3]
	} else if g := compactDateRegexp.FindStringSubmatch(name); g != nil {
		y, m, d = g[1], g[2], g[3]
	} else {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", y+"-"+m+"-"+d)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
