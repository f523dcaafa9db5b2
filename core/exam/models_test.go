package exam

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	idx := func(i int) *int { return &i }
	questions := []Question{
		{CorrectIndex: idx(0), Points: 1},
		{CorrectIndex: idx(2), Points: 3},
		{CorrectIndex: idx(1), Points: 2},
	}

	tests := []struct {
		name      string
		answers   []int
		wantScore int
	}{
		{name: "all right", answers: []int{0, 2, 1}, wantScore: 6},
		{name: "all wrong", answers: []int{1, 1, 0}, wantScore: 0},
		{name: "partial", answers: []int{0, 0, 1}, wantScore: 3},
		{name: "missing answers", answers: []int{0}, wantScore: 1},
		{name: "no answers", answers: nil, wantScore: 0},
		{name: "extra answers", answers: []int{0, 2, 1, 3, 3}, wantScore: 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, maxScore := Score(questions, tt.answers)
			assert.Equal(t, tt.wantScore, score)
			assert.Equal(t, 6, maxScore)
		})
	}
}
