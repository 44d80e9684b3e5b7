package lesson

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/capitalizelearning/CapitalizeWebsite/core"
	"github.com/capitalizelearning/CapitalizeWebsite/core/school"
)

var (
	ErrContentNotFound  = core.NewNotFoundError("content not found")
	ErrQuizNotFound     = core.NewNotFoundError("quiz not found")
	ErrQuestionNotFound = core.NewNotFoundError("question not found")
	ErrAlreadyAnswered  = core.NewConflictError("question already answered")
)

type (
	Repository interface {
		CreateContent(ctx context.Context, cnt Content) (Content, error)
		// GetContent fills Content.QuizIDs.
		GetContent(ctx context.Context, id int) (Content, error)
		QueryContents(ctx context.Context) ([]Content, error)
		UpdateContent(ctx context.Context, cnt Content) (Content, error)
		DeleteContent(ctx context.Context, id int) error

		CreateQuiz(ctx context.Context, quiz Quiz) (Quiz, error)
		GetQuiz(ctx context.Context, id int) (Quiz, error)
		QueryQuizzes(ctx context.Context, contentID int) ([]Quiz, error)
		UpdateQuiz(ctx context.Context, quiz Quiz) (Quiz, error)
		DeleteQuiz(ctx context.Context, id int) error

		CreateQuestion(ctx context.Context, q QuizQuestion) (QuizQuestion, error)
		GetQuestion(ctx context.Context, id int) (QuizQuestion, error)
		QueryQuestions(ctx context.Context, quizID int) ([]QuizQuestion, error)
		UpdateQuestion(ctx context.Context, q QuizQuestion) (QuizQuestion, error)
		// DeleteQuestion also deletes the responses to the question.
		DeleteQuestion(ctx context.Context, id int) error

		// CreateResponse returns ErrAlreadyAnswered if the (quiz, question, student) triple is taken.
		CreateResponse(ctx context.Context, resp QuizResponse) (QuizResponse, error)
		QuestionStats(ctx context.Context, quizID int) (QuestionStats, error)
		ResponseStats(ctx context.Context, quizID, studentID int) (ResponseStats, error)
	}

	// MediaStore stores lesson media and returns its public URI.
	MediaStore interface {
		Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	}

	// ClassGetter resolves the optional Class of a Quiz.
	ClassGetter interface {
		GetClass(ctx context.Context, id int) (school.Class, error)
	}

	QuestionStats struct {
		Count       int `db:"count"`
		TotalWeight int `db:"total_weight"`
	}

	ResponseStats struct {
		Count      int `db:"count"`
		TotalScore int `db:"total_score"`
	}

	Service struct {
		repo    Repository
		media   MediaStore
		classes ClassGetter
	}
)

func NewService(repo Repository, media MediaStore, classes ClassGetter) *Service {
	return &Service{repo: repo, media: media, classes: classes}
}

func (svc *Service) CreateContent(ctx context.Context, nc NewContent) (Content, error) {
	now := time.Now().UTC()
	return svc.repo.CreateContent(ctx, Content{
		Title:       nc.Title,
		Description: nc.Description,
		ContentURI:  nc.ContentURI,
		ContentType: ContentType(nc.ContentType),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) GetContent(ctx context.Context, id int) (Content, error) {
	return svc.repo.GetContent(ctx, id)
}

func (svc *Service) QueryContents(ctx context.Context) ([]Content, error) {
	return svc.repo.QueryContents(ctx)
}

func (svc *Service) UpdateContent(ctx context.Context, id int, uc UpdateContent) (Content, error) {
	cnt, err := svc.repo.GetContent(ctx, id)
	if err != nil {
		return Content{}, err
	}
	if uc.Title != nil {
		cnt.Title = core.CleanString(*uc.Title)
	}
	if uc.Description != nil {
		cnt.Description = core.CleanString(*uc.Description)
	}
	if uc.ContentURI != nil {
		cnt.ContentURI = core.CleanString(*uc.ContentURI)
	}
	if uc.ContentType != nil {
		cnt.ContentType = ContentType(core.CleanString(*uc.ContentType, true /* lower */))
	}
	cnt.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateContent(ctx, cnt)
}

func (svc *Service) DeleteContent(ctx context.Context, id int) error {
	return svc.repo.DeleteContent(ctx, id)
}

// MediaKey returns the storage key of an uploaded file: "lessons/<id>/<title-slug>-<uuid><ext>".
func MediaKey(cnt Content, filename string) string {
	name := slug.Make(cnt.Title)
	if name == "" {
		name = "media"
	}
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("lessons/%d/%s-%s%s", cnt.ID, name, uuid.NewString(), ext)
}

// UploadMedia stores the media of a Content and points its ContentURI to it.
func (svc *Service) UploadMedia(ctx context.Context, id int, filename, contentType string, r io.Reader) (Content, error) {
	cnt, err := svc.repo.GetContent(ctx, id)
	if err != nil {
		return Content{}, err
	}
	uri, err := svc.media.Upload(ctx, MediaKey(cnt, filename), contentType, r)
	if err != nil {
		return Content{}, errors.Wrap(err, "uploading media")
	}
	cnt.ContentURI = uri
	cnt.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateContent(ctx, cnt)
}

func (svc *Service) CreateQuiz(ctx context.Context, contentID, ownerID int, nq NewQuiz) (Quiz, error) {
	if _, err := svc.repo.GetContent(ctx, contentID); err != nil {
		return Quiz{}, err
	}
	if nq.ClassID != nil {
		if _, err := svc.classes.GetClass(ctx, *nq.ClassID); err != nil {
			if errors.Cause(err) == school.ErrClassNotFound {
				return Quiz{}, core.NewValidationError(err, core.FieldError{Field: "class", Error: err.Error()})
			}
			return Quiz{}, err
		}
	}
	return svc.repo.CreateQuiz(ctx, Quiz{
		Title:       nq.Title,
		Description: nq.Description,
		ContentID:   contentID,
		ClassID:     null.IntFromPtr(nq.ClassID),
		OwnerID:     ownerID,
		CreatedAt:   time.Now().UTC(),
	})
}

func (svc *Service) GetQuiz(ctx context.Context, id int) (Quiz, error) {
	return svc.repo.GetQuiz(ctx, id)
}

func (svc *Service) QueryQuizzes(ctx context.Context, contentID int) ([]Quiz, error) {
	if _, err := svc.repo.GetContent(ctx, contentID); err != nil {
		return nil, err
	}
	return svc.repo.QueryQuizzes(ctx, contentID)
}

func (svc *Service) UpdateQuiz(ctx context.Context, id int, uq UpdateQuiz) (Quiz, error) {
	quiz, err := svc.repo.GetQuiz(ctx, id)
	if err != nil {
		return Quiz{}, err
	}
	if uq.Title != nil {
		quiz.Title = core.CleanString(*uq.Title)
	}
	if uq.Description != nil {
		quiz.Description = core.CleanString(*uq.Description)
	}
	return svc.repo.UpdateQuiz(ctx, quiz)
}

func (svc *Service) DeleteQuiz(ctx context.Context, id int) error {
	return svc.repo.DeleteQuiz(ctx, id)
}

func (svc *Service) AddQuestion(ctx context.Context, quizID int, nq NewQuestion) (QuizQuestion, error) {
	if _, err := svc.repo.GetQuiz(ctx, quizID); err != nil {
		return QuizQuestion{}, err
	}
	if nq.CorrectIndex == nil || !validCorrectIndex(*nq.CorrectIndex, nq.Options) {
		return QuizQuestion{}, core.NewValidationError(nil, core.FieldError{Field: "correct_index", Error: correctIndexText})
	}
	if nq.Weight < 1 {
		nq.Weight = 1
	}
	return svc.repo.CreateQuestion(ctx, QuizQuestion{
		QuizID:       quizID,
		Question:     nq.Question,
		Options:      nq.Options,
		CorrectIndex: *nq.CorrectIndex,
		Weight:       nq.Weight,
		CreatedAt:    time.Now().UTC(),
	})
}

// GetQuestion returns ErrQuestionNotFound if the question does not belong to the quiz.
func (svc *Service) GetQuestion(ctx context.Context, quizID, questionID int) (QuizQuestion, error) {
	if _, err := svc.repo.GetQuiz(ctx, quizID); err != nil {
		return QuizQuestion{}, err
	}
	q, err := svc.repo.GetQuestion(ctx, questionID)
	if err != nil {
		return QuizQuestion{}, err
	}
	if q.QuizID != quizID {
		return QuizQuestion{}, ErrQuestionNotFound
	}
	return q, nil
}

func (svc *Service) QueryQuestions(ctx context.Context, quizID int) ([]QuizQuestion, error) {
	if _, err := svc.repo.GetQuiz(ctx, quizID); err != nil {
		return nil, err
	}
	return svc.repo.QueryQuestions(ctx, quizID)
}

func (svc *Service) UpdateQuestion(ctx context.Context, quizID, questionID int, uq UpdateQuestion) (QuizQuestion, error) {
	q, err := svc.GetQuestion(ctx, quizID, questionID)
	if err != nil {
		return QuizQuestion{}, err
	}
	if uq.Question != nil {
		q.Question = core.CleanString(*uq.Question)
	}
	if uq.Options != nil {
		opts := make([]string, 0, len(uq.Options))
		for _, opt := range uq.Options {
			opts = append(opts, core.CleanString(opt))
		}
		q.Options = opts
	}
	if uq.CorrectIndex != nil {
		q.CorrectIndex = *uq.CorrectIndex
	}
	if uq.Weight != nil {
		q.Weight = *uq.Weight
	}
	if !validCorrectIndex(q.CorrectIndex, q.Options) {
		return QuizQuestion{}, core.NewValidationError(nil, core.FieldError{Field: "correct_index", Error: correctIndexText})
	}
	return svc.repo.UpdateQuestion(ctx, q)
}

func (svc *Service) DeleteQuestion(ctx context.Context, quizID, questionID int) error {
	if _, err := svc.GetQuestion(ctx, quizID, questionID); err != nil {
		return err
	}
	return svc.repo.DeleteQuestion(ctx, questionID)
}

// QuizOverview returns the quiz with its questions as students see them and the student's progress.
func (svc *Service) QuizOverview(ctx context.Context, quizID, studentID int) (QuizOverview, error) {
	quiz, err := svc.repo.GetQuiz(ctx, quizID)
	if err != nil {
		return QuizOverview{}, err
	}
	questions, err := svc.repo.QueryQuestions(ctx, quizID)
	if err != nil {
		return QuizOverview{}, err
	}
	progress, err := svc.Progress(ctx, quizID, studentID)
	if err != nil {
		return QuizOverview{}, err
	}

	views := make([]StudentQuestion, 0, len(questions))
	for _, q := range questions {
		views = append(views, q.StudentView())
	}
	return QuizOverview{Quiz: quiz, Questions: views, Progress: progress}, nil
}
