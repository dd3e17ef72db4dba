package handlers

import (
	"html/template"
	"math"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// printer renders numbers with thousands separators for display. CSV output
// never goes through here.
var printer = message.NewPrinter(language.English)

// FormatEUR renders a whole-euro amount, e.g. "€250,000".
func FormatEUR(v float64) string {
	return printer.Sprintf("€%.0f", math.Round(v))
}

// FormatCount renders a row count, e.g. "1,204".
func FormatCount(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatSize renders a floor area, e.g. "85 m²".
func FormatSize(v float64) string {
	if v == math.Trunc(v) {
		return printer.Sprintf("%.0f m²", v)
	}
	return printer.Sprintf("%.1f m²", v)
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"eur":   FormatEUR,
		"count": FormatCount,
		"size":  FormatSize,
		// num renders a plain number for form inputs.
		"num": func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) },
		"eurPtr": func(v *float64) string {
			if v == nil {
				return ""
			}
			return FormatEUR(*v)
		},
		"sizePtr": func(v *float64) string {
			if v == nil {
				return ""
			}
			return FormatSize(*v)
		},
		"intPtr": func(v *int) string {
			if v == nil {
				return ""
			}
			return printer.Sprintf("%d", *v)
		},
		"hasRoom": func(rooms []int, r int) bool {
			for _, v := range rooms {
				if v == r {
					return true
				}
			}
			return false
		},
	}
}
