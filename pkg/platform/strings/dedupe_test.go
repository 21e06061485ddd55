package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{name: "nil", in: nil, want: nil},
		{name: "only blanks", in: []string{"", "  "}, want: nil},
		{name: "keeps first position", in: []string{" kafka-2:9092", "kafka-1:9092", "kafka-2:9092 "}, want: []string{"kafka-2:9092", "kafka-1:9092"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DedupeAndTrim(tt.in))
		})
	}
}
