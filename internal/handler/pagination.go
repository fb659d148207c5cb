package handler

import (
	"net/http"
	"strconv"
	"time"
)

// PageInfo mirrors the response envelope of the public API: zero-based page
// number plus totals over the filtered, unpaginated result.
type PageInfo struct {
	Size          int `json:"size"`
	TotalElements int `json:"totalElements"`
	TotalPages    int `json:"totalPages"`
	Number        int `json:"number"`
}

type Links struct {
	Self  string  `json:"self"`
	First string  `json:"first"`
	Prev  *string `json:"prev"`
	Next  *string `json:"next"`
	Last  string  `json:"last"`
}

type PaginatedResponse struct {
	Data      interface{} `json:"data"`
	Page      PageInfo    `json:"page"`
	Links     Links       `json:"links"`
	Timestamp time.Time   `json:"timestamp"`
}

func pageURL(r *http.Request, page int) string {
	u := *r.URL
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}

func newPaginatedResponse(r *http.Request, data interface{}, total, page, size int) PaginatedResponse {
	totalPages := 0
	if total > 0 {
		totalPages = (total + size - 1) / size
	}
	lastPage := 0
	if totalPages > 0 {
		lastPage = totalPages - 1
	}

	links := Links{
		Self:  pageURL(r, page),
		First: pageURL(r, 0),
		Last:  pageURL(r, lastPage),
	}
	if page > 0 {
		prev := pageURL(r, page-1)
		links.Prev = &prev
	}
	if page < totalPages-1 {
		next := pageURL(r, page+1)
		links.Next = &next
	}

	return PaginatedResponse{
		Data:      data,
		Page:      PageInfo{Size: size, TotalElements: total, TotalPages: totalPages, Number: page},
		Links:     links,
		Timestamp: time.Now().UTC(),
	}
}
