package handler

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPaginatedResponse(t *testing.T) {
	r := httptest.NewRequest("GET", "/v1/trips?route_id=600&page=1&size=10", nil)

	resp := newPaginatedResponse(r, []string{"a"}, 25, 1, 10)

	assert.Equal(t, 25, resp.Page.TotalElements)
	assert.Equal(t, 3, resp.Page.TotalPages)
	assert.Equal(t, 1, resp.Page.Number)
	assert.Equal(t, 10, resp.Page.Size)

	assert.Contains(t, resp.Links.Self, "page=1")
	assert.Contains(t, resp.Links.First, "page=0")
	assert.Contains(t, resp.Links.Last, "page=2")
	require.NotNil(t, resp.Links.Prev)
	assert.Contains(t, *resp.Links.Prev, "page=0")
	require.NotNil(t, resp.Links.Next)
	assert.Contains(t, *resp.Links.Next, "page=2")

	// Filters survive in the links.
	assert.Contains(t, *resp.Links.Next, "route_id=600")
}

func TestNewPaginatedResponseEdges(t *testing.T) {
	r := httptest.NewRequest("GET", "/v1/trips", nil)

	resp := newPaginatedResponse(r, nil, 0, 0, 10)
	assert.Equal(t, 0, resp.Page.TotalPages)
	assert.Nil(t, resp.Links.Prev)
	assert.Nil(t, resp.Links.Next)
	assert.Contains(t, resp.Links.Last, "page=0")

	resp = newPaginatedResponse(r, []string{"a"}, 10, 0, 10)
	assert.Equal(t, 1, resp.Page.TotalPages)
	assert.Nil(t, resp.Links.Prev)
	assert.Nil(t, resp.Links.Next)
}

func TestParsePageAndSize(t *testing.T) {
	r := httptest.NewRequest("GET", "/v1/trips?page=3&size=20", nil)
	page, ok := parsePage(r)
	assert.True(t, ok)
	assert.Equal(t, 3, page)
	size, ok := parseSize(r)
	assert.True(t, ok)
	assert.Equal(t, 20, size)

	r = httptest.NewRequest("GET", "/v1/trips", nil)
	page, ok = parsePage(r)
	assert.True(t, ok)
	assert.Zero(t, page)
	size, ok = parseSize(r)
	assert.True(t, ok)
	assert.Equal(t, defaultPageSize, size)

	optional, ok := parseOptionalSize(r)
	assert.True(t, ok)
	assert.Nil(t, optional)

	for _, bad := range []string{"page=-1", "page=x", "size=0", "size=101", "size=x"} {
		r = httptest.NewRequest("GET", "/v1/trips?"+bad, nil)
		if bad[:4] == "page" {
			_, ok = parsePage(r)
		} else {
			_, ok = parseSize(r)
		}
		assert.False(t, ok, bad)
	}
}
