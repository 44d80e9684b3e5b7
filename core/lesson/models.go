package lesson

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/capitalizelearning/CapitalizeWebsite/core"
)

type ContentType string

const (
	ContentVideo ContentType = "video"
	ContentAudio ContentType = "audio"
	ContentText  ContentType = "text"
	ContentImage ContentType = "image"
	ContentPDF   ContentType = "pdf"
)

var ContentTypes = []string{
	string(ContentVideo), string(ContentAudio), string(ContentText), string(ContentImage), string(ContentPDF),
}

// Content is a lesson asset; ContentURI points to externally stored media.
type Content struct {
	ID          int         `json:"id" db:"id"`
	Title       string      `json:"title" db:"title"`
	Description string      `json:"description" db:"description"`
	ContentURI  string      `json:"content_uri" db:"content_uri"`
	ContentType ContentType `json:"content_type" db:"content_type"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
	QuizIDs     []int       `json:"quiz_id_list" db:"-"`
}

type Quiz struct {
	ID          int       `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	ContentID   int       `json:"content" db:"content_id"`
	ClassID     null.Int  `json:"class" db:"class_id"`
	OwnerID     int       `json:"owner" db:"owner_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// QuizQuestion is a weighted multiple-choice question. CorrectIndex is an index into Options.
type QuizQuestion struct {
	ID           int       `json:"id"`
	QuizID       int       `json:"quiz"`
	Question     string    `json:"question"`
	Options      []string  `json:"options"`
	CorrectIndex int       `json:"correct_index"`
	Weight       int       `json:"weight"`
	CreatedAt    time.Time `json:"created_at"`
}

// StudentQuestion is the view of a QuizQuestion given to students.
type StudentQuestion struct {
	ID       int      `json:"id"`
	QuizID   int      `json:"quiz"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Weight   int      `json:"weight"`
}

func (q QuizQuestion) StudentView() StudentQuestion {
	return StudentQuestion{
		ID:       q.ID,
		QuizID:   q.QuizID,
		Question: q.Question,
		Options:  q.Options,
		Weight:   q.Weight,
	}
}

// QuizResponse is the single answer of a student to a question. It is never updated.
type QuizResponse struct {
	ID            int       `json:"id" db:"id"`
	QuizID        int       `json:"quiz" db:"quiz_id"`
	QuestionID    int       `json:"question" db:"question_id"`
	StudentID     int       `json:"student" db:"student_id"`
	SelectedIndex int       `json:"selected_index" db:"selected_index"`
	Score         int       `json:"score" db:"score"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

type AnswerResult struct {
	IsCorrect    bool `json:"is_correct"`
	Score        int  `json:"score"`
	CorrectIndex int  `json:"correct_index"`
}

type Progress struct {
	Answered    int      `json:"answered"`
	Total       int      `json:"total"`
	IsCompleted bool     `json:"is_completed"`
	Score       *float64 `json:"score"`
}

// QuizOverview is what a student sees of a quiz.
type QuizOverview struct {
	Quiz      Quiz              `json:"quiz"`
	Questions []StudentQuestion `json:"questions"`
	Progress  Progress          `json:"progress"`
}

type NewContent struct {
	Title       string `json:"title" validate:"required,max=100"`
	Description string `json:"description"`
	ContentURI  string `json:"content_uri" validate:"omitempty,uri"`
	ContentType string `json:"content_type" validate:"required,contenttype"`
}

func (nc *NewContent) Clean() {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.ContentURI = core.CleanString(nc.ContentURI)
	nc.ContentType = core.CleanString(nc.ContentType, true /* lower */)
}

type UpdateContent struct {
	Title       *string `json:"title" validate:"omitempty,notblank,max=100"`
	Description *string `json:"description"`
	ContentURI  *string `json:"content_uri" validate:"omitempty,uri"`
	ContentType *string `json:"content_type" validate:"omitempty,contenttype"`
}

type NewQuiz struct {
	Title       string `json:"title" validate:"required,max=100"`
	Description string `json:"description"`
	ClassID     *int   `json:"class"`
}

func (nq *NewQuiz) Clean() {
	nq.Title = core.CleanString(nq.Title)
	nq.Description = core.CleanString(nq.Description)
}

type UpdateQuiz struct {
	Title       *string `json:"title" validate:"omitempty,notblank,max=100"`
	Description *string `json:"description"`
}

type NewQuestion struct {
	Question     string   `json:"question" validate:"required,notblank"`
	Options      []string `json:"options" validate:"required,min=2,dive,notblank"`
	CorrectIndex *int     `json:"correct_index" validate:"required"`
	Weight       int      `json:"weight" validate:"omitempty,min=1"`
}

func (nq *NewQuestion) Clean() {
	nq.Question = core.CleanString(nq.Question)
	for i := range nq.Options {
		nq.Options[i] = core.CleanString(nq.Options[i])
	}
	if nq.Weight == 0 {
		nq.Weight = 1
	}
}

type UpdateQuestion struct {
	Question     *string  `json:"question" validate:"omitempty,notblank"`
	Options      []string `json:"options" validate:"omitempty,min=2,dive,notblank"`
	CorrectIndex *int     `json:"correct_index"`
	Weight       *int     `json:"weight" validate:"omitempty,min=1"`
}

type SubmitAnswer struct {
	SelectedIndex *int `json:"selected_index"`
}
