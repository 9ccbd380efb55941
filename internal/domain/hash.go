package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// QuestionHash derives the content identity of a question. The hash
// covers category, text, the correct answer and the distractors, with
// distractors sorted so option order at import time does not change the
// identity.
func QuestionHash(category, text, correctAnswer string, distractors [3]string) string {
	wrong := []string{distractors[0], distractors[1], distractors[2]}
	sort.Strings(wrong)

	h := sha256.New()
	for _, part := range []string{category, text, correctAnswer, wrong[0], wrong[1], wrong[2]} {
		h.Write([]byte(strings.TrimSpace(strings.ToLower(part))))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// NewQuestion builds a catalog question with its content hash filled in.
func NewQuestion(category, difficulty, text, correctAnswer string, distractors [3]string) Question {
	return Question{
		Hash:          QuestionHash(category, text, correctAnswer, distractors),
		Category:      category,
		Difficulty:    difficulty,
		Text:          text,
		CorrectAnswer: correctAnswer,
		Distractors:   distractors,
	}
}
