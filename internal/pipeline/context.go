package pipeline

import (
	"github.com/sizieks/parsers/pkg/models"
)

// ContextFrom builds the read-only unit context from a validated,
// defaults-applied unit value. Every downstream call receives the context
// explicitly; nothing reads the raw value map after this point.
func ContextFrom(handler string, value map[string]any) models.UnitContext {
	unit := models.UnitContext{
		Handler: handler,
		SKU:     asString(value["sku"]),
		SortBy:  asString(value["sortBy"]),
		// Only defaults to true at the schema layer; absent here only
		// for handlers whose schema does not declare it.
		Only:         true,
		BoundaryDate: asString(value["date"]),
		Category:     asString(value["category"]),
		DateFrom:     asString(value["dateFrom"]),
		DateTo:       asString(value["dateTo"]),
	}

	if only, ok := value["only"].(bool); ok {
		unit.Only = only
	}
	if page := asInt(value["page"]); page > 0 {
		unit.Page = page
	} else {
		unit.Page = 1
	}

	if raw, ok := value["cookies"].(map[string]any); ok {
		unit.Cookies = make(map[string]models.Cookie, len(raw))
		for name, v := range raw {
			c, ok := v.(map[string]any)
			if !ok {
				continue
			}
			unit.Cookies[name] = models.Cookie{
				Value:   asString(c["value"]),
				Domain:  asString(c["domain"]),
				Path:    asString(c["path"]),
				Expires: asString(c["expires"]),
			}
		}
	}

	return unit
}
