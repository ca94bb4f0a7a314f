package services

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"scz-inmuebles/extractor"
	"scz-inmuebles/models"
	"scz-inmuebles/utils"
)

// propertyNamespace scopes the deterministic property ids.
var propertyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("scz-inmuebles/propiedad"))

// Cleaner normalizes raw rows and drops the ones no extractor can use.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Cleaner{logger: logger}
}

// Clean normalizes text fields, validates structured columns and assigns each
// row a deterministic id. A row is dropped when it has no title, no price
// and no coordinates, or when its id repeats within the same input.
func (c *Cleaner) Clean(raw []*models.RawRow) []*models.RawRow {
	seen := utils.NewKeySet()
	result := make([]*models.RawRow, 0, len(raw))

	for _, r := range raw {
		if r == nil {
			continue
		}
		r.Provider = normalizeProvider(r.Provider)
		r.Title = extractor.CleanText(r.Title)
		r.Description = extractor.CleanText(r.Description)
		r.PriceText = extractor.CleanText(r.PriceText)
		r.Zone = extractor.CleanText(r.Zone)
		r.URL = strings.TrimSpace(r.URL)
		r.PropertyType = extractor.NormalizePropertyType(r.PropertyType)
		c.validateColumns(r)

		if r.Title == "" && r.PriceText == "" && r.Latitude == nil {
			c.logger.Warn("[cleaner] Dropping empty row %d of %s", r.RowNumber, r.SourceFile)
			continue
		}

		r.ID = PropertyID(r)
		if !seen.Add(r.ID) {
			c.logger.Debug("[cleaner] Repeated row %d of %s skipped", r.RowNumber, r.SourceFile)
			continue
		}
		result = append(result, r)
	}

	c.logger.Info("[cleaner] Cleaned %d → %d rows (dropped %d)",
		len(raw), len(result), len(raw)-len(result))
	return result
}

// validateColumns clears structured values that are out of range. A (0, 0)
// coordinate pair is treated as missing.
func (c *Cleaner) validateColumns(r *models.RawRow) {
	if r.Latitude != nil && r.Longitude != nil {
		lat, lon := *r.Latitude, *r.Longitude
		if (lat == 0 && lon == 0) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			c.logger.Debug("[cleaner] Invalid coordinates %.6f,%.6f in row %d", lat, lon, r.RowNumber)
			r.Latitude, r.Longitude = nil, nil
		}
	} else {
		r.Latitude, r.Longitude = nil, nil
	}
	if r.Rooms != nil && !extractor.ValidRooms(*r.Rooms) {
		r.Rooms = nil
	}
	if r.Baths != nil && !extractor.ValidBaths(*r.Baths) {
		r.Baths = nil
	}
}

// PropertyID derives a stable id from the provider, the listing identity and
// the source file, so re-reading the same export yields the same ids and a
// later snapshot of the same listing gets a new one.
func PropertyID(r *models.RawRow) string {
	identity := strings.TrimSpace(r.ID)
	if identity == "" {
		identity = normalizeURL(r.URL)
	}
	if identity == "" && (r.Title != "" || r.Description != "") {
		identity = extractor.NormalizeKey(r.Title) + "|" + extractor.NormalizeKey(r.Description)
	}
	if identity == "" {
		identity = "fila:" + strconv.Itoa(r.RowNumber)
	}
	name := normalizeProvider(r.Provider) + "|" + identity + "|" + r.SourceFile
	return uuid.NewSHA1(propertyNamespace, []byte(name)).String()
}
