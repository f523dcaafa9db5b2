package omr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	key := []string{"A", "B", "C", "D"}

	tests := []struct {
		name        string
		key         []string
		answers     []string
		wantCorrect int
		wantTotal   int
		wantScore   int
	}{
		{name: "all right", key: key, answers: []string{"A", "B", "C", "D"}, wantCorrect: 4, wantTotal: 4, wantScore: 100},
		{name: "half", key: key, answers: []string{"A", "B", "E", "E"}, wantCorrect: 2, wantTotal: 4, wantScore: 50},
		{name: "unclear", key: key, answers: []string{"?", "B", "?", "D"}, wantCorrect: 2, wantTotal: 4, wantScore: 50},
		{name: "short sheet", key: key, answers: []string{"A"}, wantCorrect: 1, wantTotal: 4, wantScore: 25},
		{name: "long sheet", key: key, answers: []string{"A", "B", "C", "D", "A", "A"}, wantCorrect: 4, wantTotal: 4, wantScore: 100},
		{name: "blank never matches", key: []string{"", "B"}, answers: []string{"", "B"}, wantCorrect: 1, wantTotal: 2, wantScore: 50},
		{name: "empty key", key: nil, answers: []string{"A", "B"}, wantCorrect: 0, wantTotal: DefaultTotal, wantScore: 0},
		{name: "rounding", key: []string{"A", "B", "C"}, answers: []string{"A", "B", "A"}, wantCorrect: 2, wantTotal: 3, wantScore: 67},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			correct, total, score := Score(tt.key, tt.answers)
			assert.Equal(t, tt.wantCorrect, correct)
			assert.Equal(t, tt.wantTotal, total)
			assert.Equal(t, tt.wantScore, score)
		})
	}
}

func TestSampleSheet(t *testing.T) {
	answers := SampleSheet(SampleAnswers)

	assert.Len(t, answers, len(SampleAnswers))
	for i, a := range answers {
		switch i {
		case 2, 6, 9, 14, 18:
			assert.NotEqual(t, SampleAnswers[i], a, "question %d", i)
		default:
			assert.Equal(t, SampleAnswers[i], a, "question %d", i)
		}
	}
	assert.Equal(t, "A", answers[2])  // key B
	assert.Equal(t, "B", answers[6])  // key A
	assert.Equal(t, "A", answers[14]) // key E

	correct, total, score := Score(SampleAnswers, answers)
	assert.Equal(t, 15, correct)
	assert.Equal(t, 20, total)
	assert.Equal(t, 75, score)

	// the key is left untouched
	assert.Equal(t, "B", SampleAnswers[2])
	assert.Equal(t, []string{"A", "B"}, SampleSheet([]string{"A", "B"}))
}

func TestParseLayout(t *testing.T) {
	tests := []struct {
		name       string
		data       string
		wantErrStr string
	}{
		{
			name: "valid",
			data: `{"regions": {"student_number": {"x": 0.1, "y": 0.1, "w": 0.4, "h": 0.2, "rows": 10, "cols": 8},
				"answers": {"x": 0.1, "y": 0.4, "w": 0.3, "h": 0.5, "rows": 20, "cols": 5}}}`,
		},
		{name: "bad json", data: `{`, wantErrStr: "decoding layout"},
		{
			name: "too many options",
			data: `{"regions": {"student_number": {"x": 0.1, "y": 0.1, "w": 0.4, "h": 0.2, "rows": 10, "cols": 8},
				"answers": {"x": 0.1, "y": 0.4, "w": 0.3, "h": 0.5, "rows": 20, "cols": 6}}}`,
			wantErrStr: "invalid layout: answers: at most 5 cols",
		},
		{
			name: "outside of the image",
			data: `{"regions": {"student_number": {"x": 0.8, "y": 0.1, "w": 0.4, "h": 0.2, "rows": 10, "cols": 8},
				"answers": {"x": 0.1, "y": 0.4, "w": 0.3, "h": 0.5, "rows": 20, "cols": 5}}}`,
			wantErrStr: "invalid layout: student_number: region must fit in the image",
		},
		{name: "missing regions", data: `{}`, wantErrStr: "invalid layout: student_number: rows and cols must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := ParseLayout([]byte(tt.data))
			if tt.wantErrStr != "" {
				if assert.Error(t, err) {
					assert.Contains(t, err.Error(), tt.wantErrStr)
				}
				return
			}
			if assert.NoError(t, err) {
				assert.Equal(t, 8, l.Regions.StudentNumber.Cols)
				assert.Equal(t, 20, l.Regions.Answers.Rows)
			}
		})
	}
}
