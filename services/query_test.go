package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseListQuery(t *testing.T) {
	defaults := ListDefaults{Limit: 12, Max: 100, Status: StatusAll}
	items := []struct {
		name                          string
		limit, offset, search, status string
		want                          ListQuery
	}{
		{"all defaults", "", "", "", "", ListQuery{Limit: 12, Offset: 0, Status: "all"}},
		{"explicit", "5", "10", "sun", "active", ListQuery{Limit: 5, Offset: 10, Search: "sun", Status: "active"}},
		{"pizza", "pizza", "pasta", "", "", ListQuery{Limit: 12, Offset: 0, Status: "all"}},
		{"zero limit", "0", "0", "", "", ListQuery{Limit: 12, Offset: 0, Status: "all"}},
		{"negative", "-3", "-7", "", "", ListQuery{Limit: 12, Offset: 0, Status: "all"}},
		{"too big", "1000", "", "", "", ListQuery{Limit: 100, Offset: 0, Status: "all"}},
		{"trimmed", " 3 ", " 6 ", "  moon ", "inactive", ListQuery{Limit: 3, Offset: 6, Search: "moon", Status: "inactive"}},
		{"status case kept", "", "", "", "ACTIVE", ListQuery{Limit: 12, Status: "ACTIVE"}},
		{"status spaces kept", "", "", "", " active ", ListQuery{Limit: 12, Status: " active "}},
		{"unknown status kept", "", "", "", "archived", ListQuery{Limit: 12, Status: "archived"}},
	}
	for _, item := range items {
		t.Run(item.name, func(t *testing.T) {
			assert.Equal(t, item.want, ParseListQuery(item.limit, item.offset, item.search, item.status, defaults))
		})
	}
}

func TestNewPagination(t *testing.T) {
	items := []struct {
		name          string
		limit, offset int
		total         int64
		want          Pagination
	}{
		{"second of three", 12, 12, 25, Pagination{Page: 2, Limit: 12, TotalItems: 25, TotalPages: 3, HasNextPage: true, HasPreviousPage: true}},
		{"first", 12, 0, 25, Pagination{Page: 1, Limit: 12, TotalItems: 25, TotalPages: 3, HasNextPage: true}},
		{"last", 12, 24, 25, Pagination{Page: 3, Limit: 12, TotalItems: 25, TotalPages: 3, HasPreviousPage: true}},
		{"exact fit", 5, 5, 10, Pagination{Page: 2, Limit: 5, TotalItems: 10, TotalPages: 2, HasPreviousPage: true}},
		{"empty", 12, 0, 0, Pagination{Page: 1, Limit: 12}},
		{"unaligned offset", 10, 15, 40, Pagination{Page: 2, Limit: 10, TotalItems: 40, TotalPages: 4, HasNextPage: true, HasPreviousPage: true}},
	}
	for _, item := range items {
		t.Run(item.name, func(t *testing.T) {
			assert.Equal(t, item.want, NewPagination(item.limit, item.offset, item.total))
		})
	}
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "100!% real", escapeLike("100% real"))
	assert.Equal(t, "a!_b", escapeLike("a_b"))
	assert.Equal(t, "wow!!", escapeLike("wow!"))
}

func TestFileExtension(t *testing.T) {
	items := map[string]string{
		"photo.png":           ".png",
		"archive.tar.gz":      ".gz",
		"UPPER.JPG":           ".JPG",
		"noext":               "",
		"trailing.":           "",
		`C:\pics\win.jpeg`:    ".jpeg",
		"../../etc/passwd":    "",
		"weird.p/ng":          "",
		"bad.ph p":            "",
		"":                    "",
		"x.abcdefghijklmnopq": "",
	}
	for in, want := range items {
		assert.Equal(t, want, fileExtension(in), in)
	}
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "5MB", humanSize(5*1024*1024))
	assert.Equal(t, "512KB", humanSize(512*1024))
	assert.Equal(t, "1000 bytes", humanSize(1000))
}
