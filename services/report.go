package services

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"scz-inmuebles/models"
	"scz-inmuebles/utils"
)

const maxBarWidth = 30

type ReportService struct {
	bobPerUSD float64
	logger    *utils.Logger
}

func NewReportService(bobPerUSD float64, logger *utils.Logger) *ReportService {
	if bobPerUSD <= 0 {
		bobPerUSD = DefaultDuplicateConfig().BOBPerUSD
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &ReportService{bobPerUSD: bobPerUSD, logger: logger}
}

// Summarize fills the dataset statistics of r from props. Group counts only
// consider records that went through deduplication.
func (s *ReportService) Summarize(r *models.RunReport, props []*models.Property) *models.RunReport {
	if r == nil {
		r = &models.RunReport{}
	}
	r.ListingsByProvider = make(map[string]int)
	r.ListingsByZone = make(map[string]int)
	r.MethodCounts = make(map[models.ExtractionMethod]int)
	r.Properties = len(props)
	r.CanonicalRecords, r.DuplicateRecords, r.DuplicateGroups = 0, 0, 0
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now()
	}

	var total float64
	priced := 0
	for _, p := range props {
		if p.Method != "" {
			r.MethodCounts[p.Method]++
		}
		if p.CanonicalID != "" && p.CanonicalID != p.ID {
			r.DuplicateRecords++
			continue
		}
		r.CanonicalRecords++
		if p.PreviousVersions > 0 {
			r.DuplicateGroups++
		}
		if p.Provider != "" {
			r.ListingsByProvider[p.Provider]++
		}
		if p.Zone != "" {
			r.ListingsByZone[p.Zone]++
		}

		usd, ok := s.priceUSD(p)
		if !ok {
			continue
		}
		total += usd
		priced++
		if priced == 1 || usd < r.MinPriceUSD {
			r.MinPriceUSD = usd
		}
		if priced == 1 || usd > r.MaxPriceUSD {
			r.MaxPriceUSD = usd
			r.MostExpensive = p
		}
	}

	if priced > 0 {
		r.AveragePriceUSD = round2(total / float64(priced))
		r.MinPriceUSD = round2(r.MinPriceUSD)
		r.MaxPriceUSD = round2(r.MaxPriceUSD)
	}
	return r
}

func (s *ReportService) priceUSD(p *models.Property) (float64, bool) {
	if p.Price == nil || *p.Price <= 0 {
		return 0, false
	}
	if p.Currency == models.BOB {
		return *p.Price / s.bobPerUSD, true
	}
	return *p.Price, true
}

func (s *ReportService) Print(w io.Writer, r *models.RunReport) {
	sep := strings.Repeat("═", 58)
	thin := strings.Repeat("─", 58)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  🏠 INMUEBLES SANTA CRUZ · RESUMEN DE EJECUCION\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Procesamiento\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Filas leidas          : \033[1m%d\033[0m\n", r.RowsRead)
	fmt.Fprintf(w, "  Filas descartadas     : \033[1m%d\033[0m\n", r.RowsRejected)
	fmt.Fprintf(w, "  Propiedades           : \033[1m%d\033[0m\n", r.Properties)
	fmt.Fprintf(w, "  Lotes                 : \033[1m%d\033[0m (%d ya completados)\n", r.BatchesTotal, r.BatchesSkipped)
	if r.WriteErrors > 0 {
		fmt.Fprintf(w, "  Errores de escritura  : \033[1;31m%d\033[0m\n", r.WriteErrors)
	}
	if !r.StartedAt.IsZero() && !r.FinishedAt.IsZero() {
		fmt.Fprintf(w, "  Duracion              : %s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Second))
	}
	fmt.Fprintln(w)

	st := r.Extraction
	fmt.Fprintf(w, "\033[1;33m  Extraccion\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Procesadas            : \033[1m%d\033[0m\n", st.Processed)
	fmt.Fprintf(w, "  Solo regex            : \033[1;32m%d\033[0m\n", st.RegexOnly)
	fmt.Fprintf(w, "  Hibrido / solo LLM    : \033[1m%d\033[0m / \033[1m%d\033[0m\n", st.Hybrid, st.LLMOnly)
	fmt.Fprintf(w, "  Llamadas LLM          : \033[1m%d\033[0m (cache: %d, respaldo: %d)\n", st.LLMCalls, st.CacheHits, st.FallbackUsed)
	fmt.Fprintf(w, "  Sin completar         : \033[1;31m%d\033[0m\n", st.Errors)
	if st.Processed > 0 {
		saved := float64(st.RegexOnly+st.CacheHits) / float64(st.Processed) * 100
		fmt.Fprintf(w, "  Ahorro de LLM         : \033[1;32m%.1f%%\033[0m\n", saved)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Duplicados\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Registros canonicos   : \033[1m%d\033[0m\n", r.CanonicalRecords)
	fmt.Fprintf(w, "  Registros duplicados  : \033[1m%d\033[0m\n", r.DuplicateRecords)
	fmt.Fprintf(w, "  Grupos con versiones  : \033[1m%d\033[0m\n", r.DuplicateGroups)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Precios (USD)\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.AveragePriceUSD > 0 {
		fmt.Fprintf(w, "  Promedio : \033[1;32m$us %.2f\033[0m\n", r.AveragePriceUSD)
		fmt.Fprintf(w, "  Minimo   : \033[1;32m$us %.2f\033[0m\n", r.MinPriceUSD)
		fmt.Fprintf(w, "  Maximo   : \033[1;32m$us %.2f\033[0m\n", r.MaxPriceUSD)
	} else {
		fmt.Fprintf(w, "  Sin datos de precio\n")
	}
	if p := r.MostExpensive; p != nil {
		fmt.Fprintf(w, "  Mas cara : %s", truncate(p.Title, 40))
		if p.Zone != "" {
			fmt.Fprintf(w, " (%s)", p.Zone)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)

	printCounts(w, "Propiedades por zona", r.ListingsByZone, thin)
	printCounts(w, "Propiedades por proveedor", r.ListingsByProvider, thin)

	methods := make(map[string]int, len(r.MethodCounts))
	for m, n := range r.MethodCounts {
		methods[string(m)] = n
	}
	printCounts(w, "Metodo de extraccion", methods, thin)

	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)
}

func printCounts(w io.Writer, title string, counts map[string]int, thin string) {
	fmt.Fprintf(w, "\033[1;33m  %s\033[0m\n", title)
	fmt.Fprintf(w, "  %s\n", thin)
	if len(counts) == 0 {
		fmt.Fprintf(w, "  Sin datos\n\n")
		return
	}

	type entry struct {
		name  string
		count int
	}
	var entries []entry
	top := 0
	for name, n := range counts {
		entries = append(entries, entry{name, n})
		if n > top {
			top = n
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].name < entries[j].name
	})
	if len(entries) > 10 {
		entries = entries[:10]
	}
	for _, e := range entries {
		width := e.count * maxBarWidth / top
		if width == 0 {
			width = 1
		}
		fmt.Fprintf(w, "  %-26s %s (%d)\n", truncate(e.name, 24), strings.Repeat("█", width), e.count)
	}
	fmt.Fprintln(w)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
