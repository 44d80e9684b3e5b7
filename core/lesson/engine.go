package lesson

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/capitalizelearning/CapitalizeWebsite/core"
)

var (
	ErrAnswerNotProvided = errors.New("answer not provided")
	ErrAnswerOutOfRange  = errors.New("selected_index is not a valid option")
)

// CheckAnswer reports whether idx is the correct option of q.
func CheckAnswer(q QuizQuestion, idx int) bool {
	return idx == q.CorrectIndex
}

// SubmitAnswer records the one and only answer of a student to a question of a quiz.
// A correct answer scores the question's weight, a wrong one scores 0.
func (svc *Service) SubmitAnswer(ctx context.Context, quizID, questionID, studentID int, selected *int) (AnswerResult, error) {
	q, err := svc.GetQuestion(ctx, quizID, questionID)
	if err != nil {
		return AnswerResult{}, err
	}
	if selected == nil {
		return AnswerResult{}, core.NewValidationError(
			ErrAnswerNotProvided,
			core.FieldError{Field: "selected_index", Error: ErrAnswerNotProvided.Error()},
		)
	}
	if !validCorrectIndex(*selected, q.Options) {
		return AnswerResult{}, core.NewValidationError(
			ErrAnswerOutOfRange,
			core.FieldError{Field: "selected_index", Error: ErrAnswerOutOfRange.Error()},
		)
	}

	res := AnswerResult{IsCorrect: CheckAnswer(q, *selected), CorrectIndex: q.CorrectIndex}
	if res.IsCorrect {
		res.Score = q.Weight
	}

	if _, err = svc.repo.CreateResponse(ctx, QuizResponse{
		QuizID:        quizID,
		QuestionID:    questionID,
		StudentID:     studentID,
		SelectedIndex: *selected,
		Score:         res.Score,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		return AnswerResult{}, err
	}
	return res, nil
}

// Progress reports how far a student is through a quiz. Score is nil until the quiz is completed.
func (svc *Service) Progress(ctx context.Context, quizID, studentID int) (Progress, error) {
	qStats, err := svc.repo.QuestionStats(ctx, quizID)
	if err != nil {
		return Progress{}, errors.Wrap(err, "counting questions")
	}
	rStats, err := svc.repo.ResponseStats(ctx, quizID, studentID)
	if err != nil {
		return Progress{}, errors.Wrap(err, "counting responses")
	}

	p := Progress{
		Answered:    rStats.Count,
		Total:       qStats.Count,
		IsCompleted: isCompleted(qStats, rStats),
	}
	if p.IsCompleted {
		score := computeScore(rStats.TotalScore, qStats.TotalWeight)
		p.Score = &score
	}
	return p, nil
}

// IsCompletedBy reports whether the student has as many responses as the quiz has questions.
// A quiz without questions is never completed.
func (svc *Service) IsCompletedBy(ctx context.Context, quizID, studentID int) (bool, error) {
	p, err := svc.Progress(ctx, quizID, studentID)
	return p.IsCompleted, err
}

// Score returns the percentage score of a student on a completed quiz, or nil.
func (svc *Service) Score(ctx context.Context, quizID, studentID int) (*float64, error) {
	p, err := svc.Progress(ctx, quizID, studentID)
	return p.Score, err
}

func isCompleted(qs QuestionStats, rs ResponseStats) bool {
	return qs.Count > 0 && rs.Count == qs.Count
}

// computeScore returns 100 * totalScore / totalWeight clamped to [0, 100].
func computeScore(totalScore, totalWeight int) float64 {
	if totalWeight <= 0 {
		return 0
	}
	score := 100 * float64(totalScore) / float64(totalWeight)
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	}
	return score
}
