package school

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/capitalizelearning/CapitalizeWebsite/core"
	"github.com/capitalizelearning/CapitalizeWebsite/core/account"
)

const shortCodeMaxLen = 10

var (
	ErrInstitutionNotFound = core.NewNotFoundError("institution not found")
	ErrClassNotFound       = core.NewNotFoundError("class not found")
	ErrShortCodeExists     = core.NewConflictError("short code already in use")
	ErrPhoneNumberExists   = core.NewConflictError("an institution with this phone number already exists")
	ErrAlreadyEnrolled     = core.NewConflictError("student already enrolled in this class")
)

type (
	Repository interface {
		CreateInstitution(ctx context.Context, inst Institution) (Institution, error)
		GetInstitution(ctx context.Context, id int) (Institution, error)
		QueryInstitutions(ctx context.Context) ([]Institution, error)
		// CreateClass returns ErrShortCodeExists if the short code is taken.
		CreateClass(ctx context.Context, cls Class) (Class, error)
		GetClass(ctx context.Context, id int) (Class, error)
		QueryClasses(ctx context.Context, filter ClassFilter) ([]Class, error)
		// CreateEnrollment returns ErrAlreadyEnrolled if the student is already in the class.
		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		QueryEnrollments(ctx context.Context, filter EnrollmentFilter) ([]Enrollment, error)
	}

	// UserGetter resolves users referenced by classes and enrollments.
	UserGetter interface {
		GetByID(ctx context.Context, id int) (account.User, error)
	}

	Service struct {
		repo  Repository
		users UserGetter
	}
)

func NewService(repo Repository, users UserGetter) *Service {
	return &Service{repo: repo, users: users}
}

func (svc *Service) CreateInstitution(ctx context.Context, ni NewInstitution) (Institution, error) {
	return svc.repo.CreateInstitution(ctx, Institution{
		ShortCode:     ni.ShortCode,
		Name:          ni.Name,
		StreetAddress: ni.StreetAddress,
		City:          ni.City,
		State:         ni.State,
		PostalCode:    ni.PostalCode,
		Country:       ni.Country,
		PhoneNumber:   null.NewString(ni.PhoneNumber, ni.PhoneNumber != ""),
		ContactPerson: ni.ContactPerson,
	})
}

func (svc *Service) GetInstitution(ctx context.Context, id int) (Institution, error) {
	return svc.repo.GetInstitution(ctx, id)
}

func (svc *Service) QueryInstitutions(ctx context.Context) ([]Institution, error) {
	return svc.repo.QueryInstitutions(ctx)
}

// CreateClass creates a Class, deriving its short code from the class names when none is given.
func (svc *Service) CreateClass(ctx context.Context, nc NewClass) (Class, error) {
	if _, err := svc.repo.GetInstitution(ctx, nc.InstitutionID); err != nil {
		if errors.Cause(err) == ErrInstitutionNotFound {
			return Class{}, core.NewValidationError(err, core.FieldError{Field: "institution", Error: err.Error()})
		}
		return Class{}, err
	}
	if _, err := svc.users.GetByID(ctx, nc.InstructorID); err != nil {
		if errors.Cause(err) == account.ErrNotFound {
			return Class{}, core.NewValidationError(err, core.FieldError{Field: "instructor", Error: "instructor not found"})
		}
		return Class{}, errors.Wrap(err, "finding instructor")
	}

	cls := Class{
		InstitutionID: nc.InstitutionID,
		InstructorID:  nc.InstructorID,
		ShortCode:     nc.ShortCode,
		LongName:      nc.LongName,
		ShortName:     nc.ShortName,
		Description:   nc.Description,
	}
	if cls.ShortCode != "" {
		return svc.repo.CreateClass(ctx, cls)
	}

	name := nc.ShortName
	if name == "" {
		name = nc.LongName
	}
	base := ShortCodeFrom(name)
	for n := 0; n < 10; n++ {
		cls.ShortCode = withSuffix(base, n)
		created, err := svc.repo.CreateClass(ctx, cls)
		if errors.Cause(err) != ErrShortCodeExists {
			return created, err
		}
	}
	return Class{}, ErrShortCodeExists
}

func (svc *Service) GetClass(ctx context.Context, id int) (Class, error) {
	return svc.repo.GetClass(ctx, id)
}

func (svc *Service) QueryClasses(ctx context.Context, filter ClassFilter) ([]Class, error) {
	return svc.repo.QueryClasses(ctx, filter)
}

func (svc *Service) Enroll(ctx context.Context, classID int, ne NewEnrollment) (Enrollment, error) {
	if _, err := svc.repo.GetClass(ctx, classID); err != nil {
		return Enrollment{}, err
	}
	if _, err := svc.users.GetByID(ctx, ne.StudentID); err != nil {
		if errors.Cause(err) == account.ErrNotFound {
			return Enrollment{}, core.NewValidationError(err, core.FieldError{Field: "student", Error: "student not found"})
		}
		return Enrollment{}, errors.Wrap(err, "finding student")
	}
	return svc.repo.CreateEnrollment(ctx, Enrollment{
		StudentID:    ne.StudentID,
		ClassID:      classID,
		DateEnrolled: time.Now().UTC().Truncate(24 * time.Hour),
	})
}

func (svc *Service) QueryClassEnrollments(ctx context.Context, classID int) ([]Enrollment, error) {
	if _, err := svc.repo.GetClass(ctx, classID); err != nil {
		return nil, err
	}
	return svc.repo.QueryEnrollments(ctx, EnrollmentFilter{ClassID: classID})
}

func (svc *Service) QueryStudentEnrollments(ctx context.Context, studentID int) ([]Enrollment, error) {
	return svc.repo.QueryEnrollments(ctx, EnrollmentFilter{StudentID: studentID})
}

// ShortCodeFrom derives an upper-case alphanumeric short code from name, eg. "Intro to Finance" -> "INTROTOFIN".
func ShortCodeFrom(name string) string {
	code := strings.ToUpper(strings.ReplaceAll(slug.Make(name), "-", ""))
	if len(code) > shortCodeMaxLen {
		code = code[:shortCodeMaxLen]
	}
	if code == "" {
		code = "CLASS"
	}
	return code
}

func withSuffix(code string, n int) string {
	if n == 0 {
		return code
	}
	suffix := fmt.Sprint(n)
	if len(code)+len(suffix) > shortCodeMaxLen {
		code = code[:shortCodeMaxLen-len(suffix)]
	}
	return code + suffix
}
