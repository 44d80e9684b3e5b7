package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/capitalizelearning/CapitalizeWebsite/core/lesson"
	"github.com/capitalizelearning/CapitalizeWebsite/storage/database"
)

const (
	contentColumns  = `id, title, description, content_uri, content_type, created_at, updated_at`
	quizColumns     = `id, title, description, content_id, class_id, owner_id, created_at`
	questionColumns = `id, quiz_id, question, options, correct_index, weight, created_at`
)

// questionRow maps quiz_question; options is a TEXT[] column.
type questionRow struct {
	ID           int            `db:"id"`
	QuizID       int            `db:"quiz_id"`
	Question     string         `db:"question"`
	Options      pq.StringArray `db:"options"`
	CorrectIndex int            `db:"correct_index"`
	Weight       int            `db:"weight"`
	CreatedAt    time.Time      `db:"created_at"`
}

func (row questionRow) question() lesson.QuizQuestion {
	return lesson.QuizQuestion{
		ID:           row.ID,
		QuizID:       row.QuizID,
		Question:     row.Question,
		Options:      []string(row.Options),
		CorrectIndex: row.CorrectIndex,
		Weight:       row.Weight,
		CreatedAt:    row.CreatedAt,
	}
}

type lessonRepository struct {
	db *sqlx.DB
}

var _ lesson.Repository = (*lessonRepository)(nil) // interface compliance check

func NewLessonRepository(db *sqlx.DB) *lessonRepository {
	return &lessonRepository{db: db}
}

func (repo lessonRepository) trapErr(err error, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	if constraint, ok := database.UniqueViolation(err); ok && constraint == "quiz_response_quiz_question_student_key" {
		return lesson.ErrAlreadyAnswered
	}
	return errors.Wrap(err, msg)
}

func (repo lessonRepository) CreateContent(ctx context.Context, cnt lesson.Content) (lesson.Content, error) {
	err := repo.db.QueryRowxContext(
		ctx,
		`INSERT INTO content (title, description, content_uri, content_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		cnt.Title, cnt.Description, cnt.ContentURI, cnt.ContentType, cnt.CreatedAt, cnt.UpdatedAt,
	).Scan(&cnt.ID)
	if err != nil {
		return lesson.Content{}, errors.Wrap(err, "creating content")
	}
	cnt.QuizIDs = []int{}
	return cnt, nil
}

func (repo lessonRepository) GetContent(ctx context.Context, id int) (lesson.Content, error) {
	var cnt lesson.Content
	if err := repo.db.GetContext(ctx, &cnt, `SELECT `+contentColumns+` FROM content WHERE id = $1`, id); err != nil {
		return lesson.Content{}, repo.trapErr(err, lesson.ErrContentNotFound, "getting content")
	}
	cnt.QuizIDs = make([]int, 0)
	if err := repo.db.SelectContext(ctx, &cnt.QuizIDs, `SELECT id FROM quiz WHERE content_id = $1 ORDER BY id`, id); err != nil {
		return lesson.Content{}, errors.Wrap(err, "getting content quizzes")
	}
	return cnt, nil
}

func (repo lessonRepository) QueryContents(ctx context.Context) ([]lesson.Content, error) {
	contents := make([]lesson.Content, 0)
	if err := repo.db.SelectContext(ctx, &contents, `SELECT `+contentColumns+` FROM content ORDER BY created_at, id`); err != nil {
		return nil, errors.Wrap(err, "querying contents")
	}

	var links []struct {
		ContentID int `db:"content_id"`
		ID        int `db:"id"`
	}
	if err := repo.db.SelectContext(ctx, &links, `SELECT content_id, id FROM quiz ORDER BY id`); err != nil {
		return nil, errors.Wrap(err, "querying content quizzes")
	}
	quizIDs := make(map[int][]int, len(contents))
	for _, l := range links {
		quizIDs[l.ContentID] = append(quizIDs[l.ContentID], l.ID)
	}
	for i := range contents {
		contents[i].QuizIDs = quizIDs[contents[i].ID]
		if contents[i].QuizIDs == nil {
			contents[i].QuizIDs = []int{}
		}
	}
	return contents, nil
}

func (repo lessonRepository) UpdateContent(ctx context.Context, cnt lesson.Content) (lesson.Content, error) {
	res, err := repo.db.ExecContext(
		ctx,
		`UPDATE content SET title = $2, description = $3, content_uri = $4, content_type = $5, updated_at = $6 WHERE id = $1`,
		cnt.ID, cnt.Title, cnt.Description, cnt.ContentURI, cnt.ContentType, cnt.UpdatedAt,
	)
	if err = checkAffected(res, err, lesson.ErrContentNotFound, "updating content"); err != nil {
		return lesson.Content{}, err
	}
	return repo.GetContent(ctx, cnt.ID)
}

func (repo lessonRepository) DeleteContent(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM content WHERE id = $1`, id)
	return checkAffected(res, err, lesson.ErrContentNotFound, "deleting content")
}

func (repo lessonRepository) CreateQuiz(ctx context.Context, quiz lesson.Quiz) (lesson.Quiz, error) {
	err := repo.db.QueryRowxContext(
		ctx,
		`INSERT INTO quiz (title, description, content_id, class_id, owner_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		quiz.Title, quiz.Description, quiz.ContentID, quiz.ClassID, quiz.OwnerID, quiz.CreatedAt,
	).Scan(&quiz.ID)
	if err != nil {
		return lesson.Quiz{}, errors.Wrap(err, "creating quiz")
	}
	return quiz, nil
}

func (repo lessonRepository) GetQuiz(ctx context.Context, id int) (lesson.Quiz, error) {
	var quiz lesson.Quiz
	if err := repo.db.GetContext(ctx, &quiz, `SELECT `+quizColumns+` FROM quiz WHERE id = $1`, id); err != nil {
		return lesson.Quiz{}, repo.trapErr(err, lesson.ErrQuizNotFound, "getting quiz")
	}
	return quiz, nil
}

func (repo lessonRepository) QueryQuizzes(ctx context.Context, contentID int) ([]lesson.Quiz, error) {
	quizzes := make([]lesson.Quiz, 0)
	if err := repo.db.SelectContext(ctx, &quizzes, `SELECT `+quizColumns+` FROM quiz WHERE content_id = $1 ORDER BY id`, contentID); err != nil {
		return nil, errors.Wrap(err, "querying quizzes")
	}
	return quizzes, nil
}

func (repo lessonRepository) UpdateQuiz(ctx context.Context, quiz lesson.Quiz) (lesson.Quiz, error) {
	var updated lesson.Quiz
	err := repo.db.GetContext(
		ctx,
		&updated,
		`UPDATE quiz SET title = $2, description = $3, class_id = $4 WHERE id = $1 RETURNING `+quizColumns,
		quiz.ID, quiz.Title, quiz.Description, quiz.ClassID,
	)
	if err != nil {
		return lesson.Quiz{}, repo.trapErr(err, lesson.ErrQuizNotFound, "updating quiz")
	}
	return updated, nil
}

func (repo lessonRepository) DeleteQuiz(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM quiz WHERE id = $1`, id)
	return checkAffected(res, err, lesson.ErrQuizNotFound, "deleting quiz")
}

func (repo lessonRepository) CreateQuestion(ctx context.Context, q lesson.QuizQuestion) (lesson.QuizQuestion, error) {
	err := repo.db.QueryRowxContext(
		ctx,
		`INSERT INTO quiz_question (quiz_id, question, options, correct_index, weight, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		q.QuizID, q.Question, pq.StringArray(q.Options), q.CorrectIndex, q.Weight, q.CreatedAt,
	).Scan(&q.ID)
	if err != nil {
		return lesson.QuizQuestion{}, errors.Wrap(err, "creating question")
	}
	return q, nil
}

func (repo lessonRepository) GetQuestion(ctx context.Context, id int) (lesson.QuizQuestion, error) {
	var row questionRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+questionColumns+` FROM quiz_question WHERE id = $1`, id); err != nil {
		return lesson.QuizQuestion{}, repo.trapErr(err, lesson.ErrQuestionNotFound, "getting question")
	}
	return row.question(), nil
}

func (repo lessonRepository) QueryQuestions(ctx context.Context, quizID int) ([]lesson.QuizQuestion, error) {
	var rows []questionRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT `+questionColumns+` FROM quiz_question WHERE quiz_id = $1 ORDER BY id`, quizID); err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}
	questions := make([]lesson.QuizQuestion, 0, len(rows))
	for _, row := range rows {
		questions = append(questions, row.question())
	}
	return questions, nil
}

func (repo lessonRepository) UpdateQuestion(ctx context.Context, q lesson.QuizQuestion) (lesson.QuizQuestion, error) {
	var row questionRow
	err := repo.db.GetContext(
		ctx,
		&row,
		`UPDATE quiz_question SET question = $2, options = $3, correct_index = $4, weight = $5 WHERE id = $1 RETURNING `+questionColumns,
		q.ID, q.Question, pq.StringArray(q.Options), q.CorrectIndex, q.Weight,
	)
	if err != nil {
		return lesson.QuizQuestion{}, repo.trapErr(err, lesson.ErrQuestionNotFound, "updating question")
	}
	return row.question(), nil
}

// DeleteQuestion relies on quiz_response.question_id ON DELETE CASCADE.
func (repo lessonRepository) DeleteQuestion(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM quiz_question WHERE id = $1`, id)
	return checkAffected(res, err, lesson.ErrQuestionNotFound, "deleting question")
}

func (repo lessonRepository) CreateResponse(ctx context.Context, resp lesson.QuizResponse) (lesson.QuizResponse, error) {
	err := repo.db.QueryRowxContext(
		ctx,
		`INSERT INTO quiz_response (quiz_id, question_id, student_id, selected_index, score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		resp.QuizID, resp.QuestionID, resp.StudentID, resp.SelectedIndex, resp.Score, resp.CreatedAt,
	).Scan(&resp.ID)
	if err != nil {
		return lesson.QuizResponse{}, repo.trapErr(err, lesson.ErrQuestionNotFound, "creating response")
	}
	return resp, nil
}

func (repo lessonRepository) QuestionStats(ctx context.Context, quizID int) (lesson.QuestionStats, error) {
	var stats lesson.QuestionStats
	err := repo.db.GetContext(
		ctx,
		&stats,
		`SELECT COUNT(*) AS count, COALESCE(SUM(weight), 0) AS total_weight FROM quiz_question WHERE quiz_id = $1`,
		quizID,
	)
	return stats, errors.Wrap(err, "counting questions")
}

func (repo lessonRepository) ResponseStats(ctx context.Context, quizID, studentID int) (lesson.ResponseStats, error) {
	var stats lesson.ResponseStats
	err := repo.db.GetContext(
		ctx,
		&stats,
		`SELECT COUNT(*) AS count, COALESCE(SUM(score), 0) AS total_score FROM quiz_response WHERE quiz_id = $1 AND student_id = $2`,
		quizID, studentID,
	)
	return stats, errors.Wrap(err, "counting responses")
}

func checkAffected(res sql.Result, err error, notFound error, msg string) error {
	if err != nil {
		return errors.Wrap(err, msg)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, msg)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
