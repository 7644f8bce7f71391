package shared

import (
	"net/http"
	"strconv"
)

// ParsePeriod reads month and year query parameters. Both absent returns
// (0, 0, true); one absent or unparsable input is a client error.
func ParsePeriod(r *http.Request) (month, year int, ok bool) {
	rawMonth := r.URL.Query().Get("month")
	rawYear := r.URL.Query().Get("year")
	if rawMonth == "" && rawYear == "" {
		return 0, 0, true
	}
	if rawMonth == "" || rawYear == "" {
		return 0, 0, false
	}
	month, err := strconv.Atoi(rawMonth)
	if err != nil {
		return 0, 0, false
	}
	year, err = strconv.Atoi(rawYear)
	if err != nil {
		return 0, 0, false
	}
	return month, year, true
}
