package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"scz-inmuebles/models"
)

var csvHeader = []string{
	"id", "codigo_proveedor", "titulo", "url", "precio", "moneda", "moneda_inferida",
	"habitaciones", "banos", "garajes", "superficie_terreno", "superficie_construida",
	"superficie_total", "zona", "tipo_propiedad", "caracteristicas", "latitud", "longitud",
	"fecha_snapshot", "archivo_origen", "versiones_previas", "ultima_actualizacion",
	"_extraction_method", "_llm_provider",
}

// CSVWriter exports properties to a CSV file. It is safe for concurrent use.
type CSVWriter struct {
	mu   sync.Mutex
	path string
}

// NewCSVWriter returns an exporter writing to path. Intermediate directories
// are created on Export.
func NewCSVWriter(path string) *CSVWriter {
	return &CSVWriter{path: path}
}

// Path returns the output file path.
func (c *CSVWriter) Path() string { return c.path }

// Export (re)creates the CSV file with one row per property.
func (c *CSVWriter) Export(props []*models.Property) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(c.path)
	if err != nil {
		return fmt.Errorf("csv: create file %q: %w", c.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}

	for _, p := range props {
		if err := w.Write(csvRow(p)); err != nil {
			return fmt.Errorf("csv: write row %s: %w", p.ID, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("csv: flush: %w", err)
	}
	return f.Close()
}

func csvRow(p *models.Property) []string {
	lastUpdated := ""
	if p.LastUpdated != nil {
		lastUpdated = p.LastUpdated.Format(dateLayout)
	}
	snapshot := ""
	if !p.SnapshotDate.IsZero() {
		snapshot = p.SnapshotDate.Format(dateLayout)
	}
	return []string{
		p.ID,
		p.Provider,
		p.Title,
		p.URL,
		fmtFloat(p.Price),
		string(p.Currency),
		strconv.FormatBool(p.CurrencyGuess),
		fmtInt(p.Bedrooms),
		fmtFloat(p.Bathrooms),
		fmtInt(p.Garages),
		fmtFloat(p.LotArea),
		fmtFloat(p.BuiltArea),
		fmtFloat(p.TotalArea),
		p.Zone,
		p.PropertyType,
		strings.Join(p.Amenities, "|"),
		fmtCoord(p.Latitude),
		fmtCoord(p.Longitude),
		snapshot,
		p.SourceFile,
		strconv.Itoa(p.PreviousVersions),
		lastUpdated,
		string(p.Method),
		p.LLMProvider,
	}
}

func fmtFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func fmtCoord(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 6, 64)
}

func fmtInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
