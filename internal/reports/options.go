package reports

import (
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/AngelCh415/studio-insights/internal/engine"
	"github.com/AngelCh415/studio-insights/internal/models"
)

// optionParams adds the facets that are not plain multi-selects.
var optionParams = map[string]models.Field{
	"location": models.FieldLocation,
	"time":     models.FieldTime,
}

// OptionFields lists the parameter names Options accepts, sorted.
func OptionFields() []string {
	out := append(lo.Keys(selectParams), lo.Keys(optionParams)...)
	sort.Strings(out)
	return out
}

// Options returns the distinct values of a filter parameter across the
// dataset behind report, for populating filter pickers.
func (s *Service) Options(report, param string) ([]string, error) {
	if _, ok := catalog[report]; !ok {
		return nil, unknown(report, "options")
	}
	f, ok := selectParams[param]
	if !ok {
		if f, ok = optionParams[param]; !ok {
			return nil, fmt.Errorf("%w: unknown filter %q", ErrInvalidQuery, param)
		}
	}
	var out []string
	switch report {
	case "conversion":
		out = engine.Options(s.src.Clients(), f)
	case "funnel":
		out = engine.Options(s.src.Leads(), f)
	case "classes", "formats":
		out = engine.Options(s.src.Sessions(), f)
	case "discounts":
		out = engine.Options(s.src.Sales(), f)
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}
