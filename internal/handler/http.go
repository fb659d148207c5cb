package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

const (
	defaultPageSize = 100
	maxPageSize     = 100
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// parsePage reads the zero-based page parameter, defaulting to 0.
func parsePage(r *http.Request) (int, bool) {
	v := r.URL.Query().Get("page")
	if v == "" {
		return 0, true
	}
	page, err := strconv.Atoi(v)
	if err != nil || page < 0 {
		return 0, false
	}
	return page, true
}

// parseSize reads the page size (1..100), defaulting to defaultPageSize.
func parseSize(r *http.Request) (int, bool) {
	v := r.URL.Query().Get("size")
	if v == "" {
		return defaultPageSize, true
	}
	size, err := strconv.Atoi(v)
	if err != nil || size < 1 || size > maxPageSize {
		return 0, false
	}
	return size, true
}

// parseDirectionID reads the optional direction_id parameter (0 or 1),
// returning nil when absent.
func parseDirectionID(r *http.Request) (*int, bool) {
	v := r.URL.Query().Get("direction_id")
	if v == "" {
		return nil, true
	}
	id, err := strconv.Atoi(v)
	if err != nil || (id != 0 && id != 1) {
		return nil, false
	}
	return &id, true
}

// splitCSV splits a comma-separated query value, dropping empty items.
func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// parseOptionalSize is parseSize but distinguishes an absent parameter,
// which some list endpoints treat as "return everything".
func parseOptionalSize(r *http.Request) (*int, bool) {
	if r.URL.Query().Get("size") == "" {
		return nil, true
	}
	size, ok := parseSize(r)
	if !ok {
		return nil, false
	}
	return &size, true
}
