package engine

import (
	"strings"

	"github.com/agrosight/agrosight/internal/domain"
)

// Generic fallbacks for hits missing optional context fields. Templates
// always render something readable even from sparse data.
const (
	FallbackProducer = "Producteur"
	FallbackCrop     = "Culture"
	FallbackPlot     = "Parcelle"
)

// Render substitutes a hit's context fields into a message template.
//
// Substitution is plain string replacement of {placeholder} markers; there
// is no expression evaluation and no injection surface. Placeholders with
// no matching field pass through untouched so rule authors can see their
// typos instead of getting silent blanks.
func Render(template string, hit domain.Hit) string {
	pairs := []string{
		"{producer_id}", hit.ProducerID,
		"{producer_name}", orFallback(hit.ProducerName, FallbackProducer),
		"{crop_name}", orFallback(hit.CropName, FallbackCrop),
		"{plot_name}", orFallback(hit.PlotName, FallbackPlot),
	}
	for k, v := range hit.Fields {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func orFallback(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
