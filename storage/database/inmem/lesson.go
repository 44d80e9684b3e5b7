package inmemdb

import (
	"context"
	"sort"

	"github.com/capitalizelearning/CapitalizeWebsite/core/lesson"
)

type lessonRepository struct {
	db *DB
}

var _ lesson.Repository = (*lessonRepository)(nil) // interface compliance check

func NewLessonRepository(db *DB) *lessonRepository {
	return &lessonRepository{db: db}
}

// quizIDs must be called with the lock held.
func (repo *lessonRepository) quizIDs(contentID int) []int {
	ids := make([]int, 0)
	for _, q := range repo.db.quizzes {
		if q.ContentID == contentID {
			ids = append(ids, q.ID)
		}
	}
	sort.Ints(ids)
	return ids
}

func (repo *lessonRepository) CreateContent(_ context.Context, cnt lesson.Content) (lesson.Content, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cnt.ID = repo.db.nextPK("content")
	cnt.QuizIDs = nil
	repo.db.contents[cnt.ID] = &cnt
	cnt.QuizIDs = []int{}
	return cnt, nil
}

func (repo *lessonRepository) GetContent(_ context.Context, id int) (lesson.Content, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	cnt, ok := repo.db.contents[id]
	if !ok {
		return lesson.Content{}, lesson.ErrContentNotFound
	}
	c := *cnt
	c.QuizIDs = repo.quizIDs(id)
	return c, nil
}

func (repo *lessonRepository) QueryContents(_ context.Context) ([]lesson.Content, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	contents := make([]lesson.Content, 0, len(repo.db.contents))
	for _, cnt := range repo.db.contents {
		c := *cnt
		c.QuizIDs = repo.quizIDs(c.ID)
		contents = append(contents, c)
	}
	sort.Slice(contents, func(i, j int) bool { return contents[i].ID < contents[j].ID })
	return contents, nil
}

func (repo *lessonRepository) UpdateContent(_ context.Context, cnt lesson.Content) (lesson.Content, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.contents[cnt.ID]
	if !ok {
		return lesson.Content{}, lesson.ErrContentNotFound
	}
	cnt.CreatedAt = orig.CreatedAt
	cnt.QuizIDs = nil
	repo.db.contents[cnt.ID] = &cnt

	c := cnt
	c.QuizIDs = repo.quizIDs(cnt.ID)
	return c, nil
}

func (repo *lessonRepository) DeleteContent(_ context.Context, id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.contents[id]; !ok {
		return lesson.ErrContentNotFound
	}
	delete(repo.db.contents, id)
	for _, q := range repo.db.quizzes {
		if q.ContentID == id {
			repo.deleteQuiz(q.ID)
		}
	}
	return nil
}

func (repo *lessonRepository) CreateQuiz(_ context.Context, quiz lesson.Quiz) (lesson.Quiz, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.contents[quiz.ContentID]; !ok {
		return lesson.Quiz{}, lesson.ErrContentNotFound
	}
	quiz.ID = repo.db.nextPK("quiz")
	repo.db.quizzes[quiz.ID] = &quiz
	return quiz, nil
}

func (repo *lessonRepository) GetQuiz(_ context.Context, id int) (lesson.Quiz, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if quiz, ok := repo.db.quizzes[id]; ok {
		return *quiz, nil
	}
	return lesson.Quiz{}, lesson.ErrQuizNotFound
}

func (repo *lessonRepository) QueryQuizzes(_ context.Context, contentID int) ([]lesson.Quiz, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	quizzes := make([]lesson.Quiz, 0)
	for _, q := range repo.db.quizzes {
		if q.ContentID == contentID {
			quizzes = append(quizzes, *q)
		}
	}
	sort.Slice(quizzes, func(i, j int) bool { return quizzes[i].ID < quizzes[j].ID })
	return quizzes, nil
}

func (repo *lessonRepository) UpdateQuiz(_ context.Context, quiz lesson.Quiz) (lesson.Quiz, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.quizzes[quiz.ID]
	if !ok {
		return lesson.Quiz{}, lesson.ErrQuizNotFound
	}
	orig.Title = quiz.Title
	orig.Description = quiz.Description
	orig.ClassID = quiz.ClassID
	return *orig, nil
}

func (repo *lessonRepository) DeleteQuiz(_ context.Context, id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.quizzes[id]; !ok {
		return lesson.ErrQuizNotFound
	}
	repo.deleteQuiz(id)
	return nil
}

// deleteQuiz cascades to questions and responses. Must be called with the write lock held.
func (repo *lessonRepository) deleteQuiz(id int) {
	delete(repo.db.quizzes, id)
	for _, q := range repo.db.questions {
		if q.QuizID == id {
			repo.deleteQuestion(q.ID)
		}
	}
}

func (repo *lessonRepository) CreateQuestion(_ context.Context, q lesson.QuizQuestion) (lesson.QuizQuestion, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.quizzes[q.QuizID]; !ok {
		return lesson.QuizQuestion{}, lesson.ErrQuizNotFound
	}
	q.ID = repo.db.nextPK("quiz_question")
	q.Options = append([]string(nil), q.Options...)
	repo.db.questions[q.ID] = &q
	return q, nil
}

func (repo *lessonRepository) GetQuestion(_ context.Context, id int) (lesson.QuizQuestion, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if q, ok := repo.db.questions[id]; ok {
		return *q, nil
	}
	return lesson.QuizQuestion{}, lesson.ErrQuestionNotFound
}

func (repo *lessonRepository) QueryQuestions(_ context.Context, quizID int) ([]lesson.QuizQuestion, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	questions := make([]lesson.QuizQuestion, 0)
	for _, q := range repo.db.questions {
		if q.QuizID == quizID {
			questions = append(questions, *q)
		}
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].ID < questions[j].ID })
	return questions, nil
}

func (repo *lessonRepository) UpdateQuestion(_ context.Context, q lesson.QuizQuestion) (lesson.QuizQuestion, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.questions[q.ID]
	if !ok {
		return lesson.QuizQuestion{}, lesson.ErrQuestionNotFound
	}
	q.QuizID = orig.QuizID
	q.CreatedAt = orig.CreatedAt
	q.Options = append([]string(nil), q.Options...)
	repo.db.questions[q.ID] = &q
	return q, nil
}

func (repo *lessonRepository) DeleteQuestion(_ context.Context, id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.questions[id]; !ok {
		return lesson.ErrQuestionNotFound
	}
	repo.deleteQuestion(id)
	return nil
}

// deleteQuestion cascades to responses. Must be called with the write lock held.
func (repo *lessonRepository) deleteQuestion(id int) {
	delete(repo.db.questions, id)
	for rid, r := range repo.db.responses {
		if r.QuestionID == id {
			delete(repo.db.responses, rid)
		}
	}
}

func (repo *lessonRepository) CreateResponse(_ context.Context, resp lesson.QuizResponse) (lesson.QuizResponse, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.questions[resp.QuestionID]; !ok {
		return lesson.QuizResponse{}, lesson.ErrQuestionNotFound
	}
	for _, r := range repo.db.responses {
		if r.QuizID == resp.QuizID && r.QuestionID == resp.QuestionID && r.StudentID == resp.StudentID {
			return lesson.QuizResponse{}, lesson.ErrAlreadyAnswered
		}
	}
	resp.ID = repo.db.nextPK("quiz_response")
	repo.db.responses[resp.ID] = &resp
	return resp, nil
}

func (repo *lessonRepository) QuestionStats(_ context.Context, quizID int) (lesson.QuestionStats, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var stats lesson.QuestionStats
	for _, q := range repo.db.questions {
		if q.QuizID == quizID {
			stats.Count++
			stats.TotalWeight += q.Weight
		}
	}
	return stats, nil
}

func (repo *lessonRepository) ResponseStats(_ context.Context, quizID, studentID int) (lesson.ResponseStats, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var stats lesson.ResponseStats
	for _, r := range repo.db.responses {
		if r.QuizID == quizID && r.StudentID == studentID {
			stats.Count++
			stats.TotalScore += r.Score
		}
	}
	return stats, nil
}
