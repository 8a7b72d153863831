package pagination

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		raw        string
		wantPage   int
		wantOffset int
	}{
		{raw: "", wantPage: 1, wantOffset: 0},
		{raw: "abc", wantPage: 1, wantOffset: 0},
		{raw: "0", wantPage: 1, wantOffset: 0},
		{raw: "-3", wantPage: 1, wantOffset: 0},
		{raw: "2", wantPage: 2, wantOffset: 3},
		{raw: " 4 ", wantPage: 4, wantOffset: 9},
		{raw: "99999999999999999999", wantPage: 1, wantOffset: 0},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			p := Parse(tt.raw, 3)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, 3, p.Limit())
			assert.Equal(t, tt.wantOffset, p.Offset())
		})
	}
}

func TestNewCapsOverflowingPage(t *testing.T) {
	for _, raw := range []string{"4611686018427387905", "9223372036854775807"} {
		t.Run(raw, func(t *testing.T) {
			p := Parse(raw, 3)
			assert.Positive(t, p.Offset())
			assert.GreaterOrEqual(t, p.Offset(), math.MaxInt-2*p.PerPage)
		})
	}

	p := New(math.MaxInt, 1)
	assert.Equal(t, math.MaxInt-1, p.Offset())
}

func TestNewPage(t *testing.T) {
	p := NewPage([]int{1, 2, 3}, New(1, 3), 7)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 7, p.TotalCount)

	empty := NewPage[int](nil, New(1, 3), 0)
	assert.NotNil(t, empty.Items)
	assert.Empty(t, empty.Items)
	assert.Zero(t, empty.TotalPages)
}

func TestMap(t *testing.T) {
	p := Map(NewPage([]int{1, 2}, New(2, 2), 4), strconv.Itoa)
	assert.Equal(t, []string{"1", "2"}, p.Items)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, 2, p.TotalPages)
}
