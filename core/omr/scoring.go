package omr

import "github.com/trezcool/darasa/core"

// SampleAnswers is the answer key of the sample sheets.
var SampleAnswers = []string{
	"A", "C", "B", "D", "E",
	"B", "A", "C", "D", "E",
	"C", "B", "A", "D", "E",
	"A", "B", "C", "D", "E",
}

const SampleStudentNumber = "22290684"

var sampleWrongIndices = []int{2, 6, 9, 14, 18}

// Score compares answers with key.
// total is len(key) (DefaultTotal for an empty key); only the first total answers count, and "" never matches.
func Score(key, answers []string) (correct, total, score int) {
	total = len(key)
	if total == 0 {
		total = DefaultTotal
	}
	for i, a := range answers {
		if i >= total {
			break
		}
		if a != "" && i < len(key) && a == key[i] {
			correct++
		}
	}
	return correct, total, core.Percent(correct, total)
}

// SampleSheet answers the key except for a few questions, answered with the first other option.
func SampleSheet(key []string) []string {
	answers := append([]string(nil), key...)
	for _, i := range sampleWrongIndices {
		if i >= len(answers) {
			continue
		}
		for _, opt := range Options {
			if opt != answers[i] {
				answers[i] = opt
				break
			}
		}
	}
	return answers
}
