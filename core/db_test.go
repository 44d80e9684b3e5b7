package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOrdering(t *testing.T) {
	tests := []struct {
		val  string
		want []DBOrdering
	}{
		{val: "", want: nil},
		{val: "email", want: []DBOrdering{{Field: "email", Ascending: true}}},
		{val: "-date_joined, email", want: []DBOrdering{{Field: "date_joined"}, {Field: "email", Ascending: true}}},
		{val: "-,,id", want: []DBOrdering{{Field: "id", Ascending: true}}},
	}
	for _, tt := range tests {
		t.Run(tt.val, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseOrdering(tt.val))
		})
	}
}

func TestDBOrdering_String(t *testing.T) {
	assert.Equal(t, "email ASC", DBOrdering{Field: "email", Ascending: true}.String())
	assert.Equal(t, "email DESC", DBOrdering{Field: "email"}.String())
}
