package inmemdb

import (
	"context"
	"sort"

	"github.com/capitalizelearning/CapitalizeWebsite/core/school"
)

type schoolRepository struct {
	db *DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) *schoolRepository {
	return &schoolRepository{db: db}
}

func (repo *schoolRepository) CreateInstitution(_ context.Context, inst school.Institution) (school.Institution, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, i := range repo.db.institutions {
		if i.ShortCode == inst.ShortCode {
			return school.Institution{}, school.ErrShortCodeExists
		}
		if inst.PhoneNumber.Valid && i.PhoneNumber.Valid && i.PhoneNumber.String == inst.PhoneNumber.String {
			return school.Institution{}, school.ErrPhoneNumberExists
		}
	}
	inst.ID = repo.db.nextPK("institution")
	repo.db.institutions[inst.ID] = &inst
	return inst, nil
}

func (repo *schoolRepository) GetInstitution(_ context.Context, id int) (school.Institution, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if inst, ok := repo.db.institutions[id]; ok {
		return *inst, nil
	}
	return school.Institution{}, school.ErrInstitutionNotFound
}

func (repo *schoolRepository) QueryInstitutions(_ context.Context) ([]school.Institution, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	insts := make([]school.Institution, 0, len(repo.db.institutions))
	for _, i := range repo.db.institutions {
		insts = append(insts, *i)
	}
	sort.Slice(insts, func(i, j int) bool {
		if insts[i].Name == insts[j].Name {
			return insts[i].ID < insts[j].ID
		}
		return insts[i].Name < insts[j].Name
	})
	return insts, nil
}

func (repo *schoolRepository) CreateClass(_ context.Context, cls school.Class) (school.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, c := range repo.db.classes {
		if c.ShortCode == cls.ShortCode {
			return school.Class{}, school.ErrShortCodeExists
		}
	}
	cls.ID = repo.db.nextPK("class")
	repo.db.classes[cls.ID] = &cls
	return cls, nil
}

func (repo *schoolRepository) GetClass(_ context.Context, id int) (school.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if cls, ok := repo.db.classes[id]; ok {
		return *cls, nil
	}
	return school.Class{}, school.ErrClassNotFound
}

func (repo *schoolRepository) QueryClasses(_ context.Context, filter school.ClassFilter) ([]school.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	classes := make([]school.Class, 0)
	for _, c := range repo.db.classes {
		if filter.InstitutionID != 0 && c.InstitutionID != filter.InstitutionID {
			continue
		}
		if filter.InstructorID != 0 && c.InstructorID != filter.InstructorID {
			continue
		}
		classes = append(classes, *c)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].ID < classes[j].ID })
	return classes, nil
}

func (repo *schoolRepository) CreateEnrollment(_ context.Context, enr school.Enrollment) (school.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.classes[enr.ClassID]; !ok {
		return school.Enrollment{}, school.ErrClassNotFound
	}
	for _, e := range repo.db.enrollments {
		if e.StudentID == enr.StudentID && e.ClassID == enr.ClassID {
			return school.Enrollment{}, school.ErrAlreadyEnrolled
		}
	}
	enr.ID = repo.db.nextPK("enrollment")
	repo.db.enrollments[enr.ID] = &enr
	return enr, nil
}

func (repo *schoolRepository) QueryEnrollments(_ context.Context, filter school.EnrollmentFilter) ([]school.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	enrollments := make([]school.Enrollment, 0)
	for _, e := range repo.db.enrollments {
		if filter.StudentID != 0 && e.StudentID != filter.StudentID {
			continue
		}
		if filter.ClassID != 0 && e.ClassID != filter.ClassID {
			continue
		}
		enrollments = append(enrollments, *e)
	}
	sort.Slice(enrollments, func(i, j int) bool { return enrollments[i].ID < enrollments[j].ID })
	return enrollments, nil
}
