package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, 20, p.First)
	assert.Empty(t, p.After)
}

func TestFromRequest_Defaults(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	p := FromRequest(req)

	assert.Equal(t, 20, p.First)
	assert.Empty(t, p.After)
}

func TestFromRequest_CustomValues(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?first=50&after=YXJyYXljb25uZWN0aW9uOjE5", nil)
	p := FromRequest(req)

	assert.Equal(t, 50, p.First)
	assert.Equal(t, "YXJyYXljb25uZWN0aW9uOjE5", p.After)
}

func TestFromRequest_Clamps(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"first=0", 20},
		{"first=-3", 20},
		{"first=abc", 20},
		{"first=101", 100},
		{"first=100", 100},
		{"first=1", 1},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/products?"+tt.query, nil)
			assert.Equal(t, tt.want, FromRequest(req).First)
		})
	}
}

func TestNewPage_NilItems(t *testing.T) {
	p := NewPage[string](nil, "", false)
	assert.NotNil(t, p.Items)
	assert.Empty(t, p.Items)
	assert.False(t, p.HasNext)
}

func TestNewPage(t *testing.T) {
	p := NewPage([]int{1, 2}, "cursor-2", true)
	assert.Equal(t, []int{1, 2}, p.Items)
	assert.Equal(t, "cursor-2", p.EndCursor)
	assert.True(t, p.HasNext)
}
