package pipeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"go-grid-engine/internal/model"
)

func TestPaginate(t *testing.T) {
	tests := map[string]struct {
		page, pageSize *int
		want           []string
	}{
		`first_page`:        {page: intp(0), pageSize: intp(2), want: []string{"Alice", "Bob"}},
		`last_partial_page`: {page: intp(1), pageSize: intp(3), want: []string{"Dan"}},
		`past_the_end`:      {page: intp(5), pageSize: intp(2), want: []string{}},
		`negative_page`:     {page: intp(-1), pageSize: intp(2), want: []string{}},
		`zero_page_size`:    {page: intp(0), pageSize: intp(0), want: []string{"Alice", "Bob", "Carol", "Dan"}},
		`negative_size`:     {page: intp(1), pageSize: intp(-2), want: []string{"Alice", "Bob", "Carol", "Dan"}},
		`page_without_size`: {page: intp(1), want: []string{"Alice", "Bob", "Carol", "Dan"}},
		`size_without_page`: {pageSize: intp(1), want: []string{"Alice", "Bob", "Carol", "Dan"}},
		`oversized_page`:    {page: intp(0), pageSize: intp(100), want: []string{"Alice", "Bob", "Carol", "Dan"}},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, test.want, names(Paginate(people(), test.page, test.pageSize)))
		})
	}
}

func TestPaginateHugePageIsEmpty(t *testing.T) {
	rows := make([]model.Row, 10)
	for i := range rows {
		rows[i] = model.Row{"i": i}
	}

	tests := map[string]struct {
		page, pageSize int
	}{
		`product_wraps_to_small_positive`: {page: (1 << 62) + 1, pageSize: 4},
		`product_wraps_to_negative`:       {page: 1 << 62, pageSize: 3},
		`max_page`:                        {page: math.MaxInt, pageSize: 2},
		`max_page_size`:                   {page: 1, pageSize: math.MaxInt},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require.Empty(t, Paginate(rows, intp(test.page), intp(test.pageSize)))
		})
	}

	// a page size larger than what is left must not overflow the end index
	require.Len(t, Paginate(rows, intp(0), intp(math.MaxInt)), 10)
}

func TestPaginateCoversEveryRowOnce(t *testing.T) {
	rows := people()
	var seen []string
	for page := 0; page < 3; page++ {
		seen = append(seen, names(Paginate(rows, intp(page), intp(3)))...)
	}
	require.Equal(t, names(rows), seen)
}
