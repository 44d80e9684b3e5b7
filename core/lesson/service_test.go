package lesson_test

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalizelearning/CapitalizeWebsite/core"
	"github.com/capitalizelearning/CapitalizeWebsite/core/lesson"
	"github.com/capitalizelearning/CapitalizeWebsite/testutil"
)

func TestService_UploadMedia(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	cnt, err := env.LessonSvc.CreateContent(ctx, lesson.NewContent{Title: "Saving Money!", ContentType: "video"})
	require.NoError(t, err)

	cnt, err = env.LessonSvc.UploadMedia(ctx, cnt.ID, "clip.MP4", "video/mp4", strings.NewReader("data"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(cnt.ContentURI, "http://media.test/lessons/1/saving-money-"), cnt.ContentURI)
	assert.True(t, strings.HasSuffix(cnt.ContentURI, ".mp4"), cnt.ContentURI)

	data, ok := env.Media.File(strings.TrimPrefix(cnt.ContentURI, "http://media.test/"))
	require.True(t, ok)
	assert.Equal(t, "data", string(data))

	_, err = env.LessonSvc.UploadMedia(ctx, 999, "clip.mp4", "video/mp4", strings.NewReader("data"))
	assert.Equal(t, lesson.ErrContentNotFound, errors.Cause(err))
}

func TestService_CreateQuiz(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	cnt, err := env.LessonSvc.CreateContent(ctx, lesson.NewContent{Title: "Credit", ContentType: "text"})
	require.NoError(t, err)

	_, err = env.LessonSvc.CreateQuiz(ctx, 999, 1, lesson.NewQuiz{Title: "Quiz"})
	assert.Equal(t, lesson.ErrContentNotFound, errors.Cause(err))

	_, err = env.LessonSvc.CreateQuiz(ctx, cnt.ID, 1, lesson.NewQuiz{Title: "Quiz", ClassID: intPtr(999)})
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr), "got %v", err)
	assert.Equal(t, "class", vErr.Fields[0].Field)

	quiz, err := env.LessonSvc.CreateQuiz(ctx, cnt.ID, 1, lesson.NewQuiz{Title: "Quiz"})
	require.NoError(t, err)
	cnt, err = env.LessonSvc.GetContent(ctx, cnt.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{quiz.ID}, cnt.QuizIDs)

	// deleting the content deletes its quizzes
	require.NoError(t, env.LessonSvc.DeleteContent(ctx, cnt.ID))
	_, err = env.LessonSvc.GetQuiz(ctx, quiz.ID)
	assert.Equal(t, lesson.ErrQuizNotFound, errors.Cause(err))
}

func TestService_Questions(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	quiz, questions := createQuiz(t, env, 1, 1)
	q := questions[0]

	t.Run("invalid correct index", func(t *testing.T) {
		for _, idx := range []*int{nil, intPtr(-1), intPtr(3)} {
			_, err := env.LessonSvc.AddQuestion(ctx, quiz.ID, lesson.NewQuestion{
				Question: "?", Options: []string{"a", "b", "c"}, CorrectIndex: idx,
			})
			var vErr *core.ValidationError
			require.True(t, errors.As(err, &vErr), "got %v", err)
			assert.Equal(t, "correct_index", vErr.Fields[0].Field)
		}
	})

	t.Run("weight defaults to 1", func(t *testing.T) {
		got, err := env.LessonSvc.AddQuestion(ctx, quiz.ID, lesson.NewQuestion{
			Question: "?", Options: []string{"a", "b"}, CorrectIndex: intPtr(0),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, got.Weight)
	})

	t.Run("update keeps the index in range", func(t *testing.T) {
		_, err := env.LessonSvc.UpdateQuestion(ctx, quiz.ID, q.ID, lesson.UpdateQuestion{Options: []string{"x", "y"}, CorrectIndex: intPtr(2)})
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr), "got %v", err)

		weight := 5
		got, err := env.LessonSvc.UpdateQuestion(ctx, quiz.ID, q.ID, lesson.UpdateQuestion{CorrectIndex: intPtr(2), Weight: &weight})
		require.NoError(t, err)
		assert.Equal(t, 2, got.CorrectIndex)
		assert.Equal(t, 5, got.Weight)
		assert.Equal(t, q.Options, got.Options)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, env.LessonSvc.DeleteQuestion(ctx, quiz.ID, q.ID))
		_, err := env.LessonSvc.GetQuestion(ctx, quiz.ID, q.ID)
		assert.Equal(t, lesson.ErrQuestionNotFound, errors.Cause(err))
	})
}

func TestValidators(t *testing.T) {
	env := testutil.NewEnv(t)

	tests := []struct {
		name    string
		data    interface{}
		wantErr bool
	}{
		{name: "content ok", data: lesson.NewContent{Title: "T", ContentType: "pdf"}},
		{name: "unknown content type", data: lesson.NewContent{Title: "T", ContentType: "gif"}, wantErr: true},
		{name: "question ok", data: lesson.NewQuestion{Question: "?", Options: []string{"a", "b"}, CorrectIndex: intPtr(1)}},
		{name: "single option", data: lesson.NewQuestion{Question: "?", Options: []string{"a"}, CorrectIndex: intPtr(0)}, wantErr: true},
		{name: "correct index out of range", data: lesson.NewQuestion{Question: "?", Options: []string{"a", "b"}, CorrectIndex: intPtr(2)}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.Validate.Struct(tt.data)
			assert.Equal(t, tt.wantErr, err != nil, "err = %v", err)
		})
	}
}
