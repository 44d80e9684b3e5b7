package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/capitalizelearning/CapitalizeWebsite/core/school"
	"github.com/capitalizelearning/CapitalizeWebsite/storage/database"
)

const (
	institutionColumns = `id, short_code, name, street_address, city, state, postal_code, country, phone_number, contact_person`
	classColumns       = `id, institution_id, instructor_id, short_code, long_name, short_name, description`
	enrollmentColumns  = `id, student_id, class_id, date_enrolled`
)

type schoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *sqlx.DB) *schoolRepository {
	return &schoolRepository{db: db}
}

func (repo schoolRepository) trapErr(err error, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	if constraint, ok := database.UniqueViolation(err); ok {
		switch constraint {
		case "institution_short_code_key", "class_short_code_key":
			return school.ErrShortCodeExists
		case "institution_phone_number_key":
			return school.ErrPhoneNumberExists
		case "enrollment_student_class_key":
			return school.ErrAlreadyEnrolled
		}
	}
	return errors.Wrap(err, msg)
}

func (repo schoolRepository) CreateInstitution(ctx context.Context, inst school.Institution) (school.Institution, error) {
	err := repo.db.QueryRowxContext(
		ctx,
		`INSERT INTO institution (short_code, name, street_address, city, state, postal_code, country, phone_number, contact_person)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		inst.ShortCode, inst.Name, inst.StreetAddress, inst.City, inst.State,
		inst.PostalCode, inst.Country, inst.PhoneNumber, inst.ContactPerson,
	).Scan(&inst.ID)
	if err != nil {
		return school.Institution{}, repo.trapErr(err, school.ErrInstitutionNotFound, "creating institution")
	}
	return inst, nil
}

func (repo schoolRepository) GetInstitution(ctx context.Context, id int) (school.Institution, error) {
	var inst school.Institution
	if err := repo.db.GetContext(ctx, &inst, `SELECT `+institutionColumns+` FROM institution WHERE id = $1`, id); err != nil {
		return school.Institution{}, repo.trapErr(err, school.ErrInstitutionNotFound, "getting institution")
	}
	return inst, nil
}

func (repo schoolRepository) QueryInstitutions(ctx context.Context) ([]school.Institution, error) {
	insts := make([]school.Institution, 0)
	if err := repo.db.SelectContext(ctx, &insts, `SELECT `+institutionColumns+` FROM institution ORDER BY name, id`); err != nil {
		return nil, errors.Wrap(err, "querying institutions")
	}
	return insts, nil
}

func (repo schoolRepository) CreateClass(ctx context.Context, cls school.Class) (school.Class, error) {
	err := repo.db.QueryRowxContext(
		ctx,
		`INSERT INTO class (institution_id, instructor_id, short_code, long_name, short_name, description)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		cls.InstitutionID, cls.InstructorID, cls.ShortCode, cls.LongName, cls.ShortName, cls.Description,
	).Scan(&cls.ID)
	if err != nil {
		return school.Class{}, repo.trapErr(err, school.ErrClassNotFound, "creating class")
	}
	return cls, nil
}

func (repo schoolRepository) GetClass(ctx context.Context, id int) (school.Class, error) {
	var cls school.Class
	if err := repo.db.GetContext(ctx, &cls, `SELECT `+classColumns+` FROM class WHERE id = $1`, id); err != nil {
		return school.Class{}, repo.trapErr(err, school.ErrClassNotFound, "getting class")
	}
	return cls, nil
}

func (repo schoolRepository) QueryClasses(ctx context.Context, filter school.ClassFilter) ([]school.Class, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.InstitutionID != 0 {
		args = append(args, filter.InstitutionID)
		where = append(where, fmt.Sprintf("institution_id = $%d", len(args)))
	}
	if filter.InstructorID != 0 {
		args = append(args, filter.InstructorID)
		where = append(where, fmt.Sprintf("instructor_id = $%d", len(args)))
	}

	q := `SELECT ` + classColumns + ` FROM class`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY id`

	classes := make([]school.Class, 0)
	if err := repo.db.SelectContext(ctx, &classes, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	return classes, nil
}

func (repo schoolRepository) CreateEnrollment(ctx context.Context, enr school.Enrollment) (school.Enrollment, error) {
	err := repo.db.QueryRowxContext(
		ctx,
		`INSERT INTO enrollment (student_id, class_id, date_enrolled) VALUES ($1, $2, $3) RETURNING id`,
		enr.StudentID, enr.ClassID, enr.DateEnrolled,
	).Scan(&enr.ID)
	if err != nil {
		return school.Enrollment{}, repo.trapErr(err, school.ErrClassNotFound, "creating enrollment")
	}
	return enr, nil
}

func (repo schoolRepository) QueryEnrollments(ctx context.Context, filter school.EnrollmentFilter) ([]school.Enrollment, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.StudentID != 0 {
		args = append(args, filter.StudentID)
		where = append(where, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.ClassID != 0 {
		args = append(args, filter.ClassID)
		where = append(where, fmt.Sprintf("class_id = $%d", len(args)))
	}

	q := `SELECT ` + enrollmentColumns + ` FROM enrollment`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY date_enrolled, id`

	enrollments := make([]school.Enrollment, 0)
	if err := repo.db.SelectContext(ctx, &enrollments, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	return enrollments, nil
}
