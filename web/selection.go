package web

import (
	"net/url"
	"strconv"
	"strings"

	"car-sales-dashboard/models"
)

// parseSelection overlays the query parameters present in q on def.
// The form posts a hidden highvol=0 ahead of the checkbox, so the last
// highvol value wins.
func parseSelection(q url.Values, def models.Selection) models.Selection {
	sel := def
	if v, ok := q["month"]; ok {
		sel.MonthYear = strings.TrimSpace(last(v))
	}
	if v, ok := q["type1"]; ok {
		sel.Type1 = last(v)
	}
	if v, ok := q["type2"]; ok {
		sel.Type2 = last(v)
	}
	if v, ok := q["highvol"]; ok {
		on, err := strconv.ParseBool(last(v))
		sel.HighVolumeOnly = err == nil && on
	}
	return sel
}

// SelectionQuery encodes sel so chart URLs reproduce the same interaction.
func SelectionQuery(sel models.Selection) string {
	q := url.Values{}
	q.Set("month", sel.MonthYear)
	q.Set("type1", sel.Type1)
	q.Set("type2", sel.Type2)
	q.Set("highvol", strconv.FormatBool(sel.HighVolumeOnly))
	return q.Encode()
}

func last(v []string) string {
	if len(v) == 0 {
		return ""
	}
	return v[len(v)-1]
}
