package sqlxrepos

import (
	"database/sql"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/capitalizelearning/CapitalizeWebsite/core/account"
	"github.com/capitalizelearning/CapitalizeWebsite/core/lesson"
	"github.com/capitalizelearning/CapitalizeWebsite/core/school"
)

func uniqueViolation(constraint string) error {
	return &pq.Error{Code: "23505", Constraint: constraint}
}

func TestAccountRepository_trapErr(t *testing.T) {
	repo := accountRepository{}
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "no rows", err: sql.ErrNoRows, want: account.ErrNotFound},
		{name: "username", err: uniqueViolation("user_username_key"), want: account.ErrUsernameExists},
		{name: "email", err: uniqueViolation("user_email_key"), want: account.ErrEmailExists},
		{name: "registration token", err: uniqueViolation("profile_registration_token_key"), want: account.ErrTokenCollision},
		{name: "phone number", err: uniqueViolation("profile_phone_number_key"), want: account.ErrPhoneNumberExists},
		{name: "waiting list email", err: &pgconn.PgError{Code: "23505", ConstraintName: "waiting_list_email_key"}, want: account.ErrAlreadyOnList},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repo.trapErr(tt.err, account.ErrNotFound, "querying"))
		})
	}

	t.Run("unknown constraint", func(t *testing.T) {
		err := repo.trapErr(uniqueViolation("profile_user_id_key"), account.ErrNotFound, "creating profile")
		assert.Contains(t, err.Error(), "creating profile")
		_, isPq := errors.Cause(err).(*pq.Error)
		assert.True(t, isPq)
	})
}

func TestLessonRepository_trapErr(t *testing.T) {
	repo := lessonRepository{}

	err := repo.trapErr(uniqueViolation("quiz_response_quiz_question_student_key"), lesson.ErrQuestionNotFound, "creating response")
	assert.Equal(t, lesson.ErrAlreadyAnswered, err)

	err = repo.trapErr(sql.ErrNoRows, lesson.ErrQuestionNotFound, "creating response")
	assert.Equal(t, lesson.ErrQuestionNotFound, err)

	err = repo.trapErr(&pq.Error{Code: "23503", Constraint: "quiz_response_question_id_fkey"}, lesson.ErrQuestionNotFound, "creating response")
	assert.NotEqual(t, lesson.ErrAlreadyAnswered, errors.Cause(err))
}

func TestSchoolRepository_trapErr(t *testing.T) {
	repo := schoolRepository{}
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "no rows", err: sql.ErrNoRows, want: school.ErrClassNotFound},
		{name: "institution short code", err: uniqueViolation("institution_short_code_key"), want: school.ErrShortCodeExists},
		{name: "class short code", err: uniqueViolation("class_short_code_key"), want: school.ErrShortCodeExists},
		{name: "phone number", err: uniqueViolation("institution_phone_number_key"), want: school.ErrPhoneNumberExists},
		{name: "enrollment", err: uniqueViolation("enrollment_student_class_key"), want: school.ErrAlreadyEnrolled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repo.trapErr(tt.err, school.ErrClassNotFound, "querying"))
		})
	}
}
