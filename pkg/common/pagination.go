package common

import (
	"net/http"
	"strconv"
)

// LimitParam reads a positive integer query parameter. Missing or invalid
// values yield def; values above max are capped.
func LimitParam(r *http.Request, name string, def, max int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
