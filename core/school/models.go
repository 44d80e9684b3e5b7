package school

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/capitalizelearning/CapitalizeWebsite/core"
)

type Institution struct {
	ID            int         `json:"id" db:"id"`
	ShortCode     string      `json:"short_code" db:"short_code"`
	Name          string      `json:"name" db:"name"`
	StreetAddress string      `json:"street_address" db:"street_address"`
	City          string      `json:"city" db:"city"`
	State         string      `json:"state" db:"state"`
	PostalCode    string      `json:"postal_code" db:"postal_code"`
	Country       string      `json:"country" db:"country"`
	PhoneNumber   null.String `json:"phone_number" db:"phone_number"`
	ContactPerson string      `json:"contact_person" db:"contact_person"`
}

type Class struct {
	ID            int    `json:"id" db:"id"`
	InstitutionID int    `json:"institution" db:"institution_id"`
	InstructorID  int    `json:"instructor" db:"instructor_id"`
	ShortCode     string `json:"short_code" db:"short_code"`
	LongName      string `json:"long_name" db:"long_name"`
	ShortName     string `json:"short_name" db:"short_name"`
	Description   string `json:"description" db:"description"`
}

// Enrollment links a student to a Class. DateEnrolled never changes once set.
type Enrollment struct {
	ID           int       `json:"id" db:"id"`
	StudentID    int       `json:"student" db:"student_id"`
	ClassID      int       `json:"class" db:"class_id"`
	DateEnrolled time.Time `json:"date_enrolled" db:"date_enrolled"`
}

type NewInstitution struct {
	ShortCode     string `json:"short_code" validate:"required,max=10,alphanum_"`
	Name          string `json:"name" validate:"required,max=100"`
	StreetAddress string `json:"street_address" validate:"max=100"`
	City          string `json:"city" validate:"max=50"`
	State         string `json:"state" validate:"max=50"`
	PostalCode    string `json:"postal_code" validate:"max=10"`
	Country       string `json:"country" validate:"max=50"`
	PhoneNumber   string `json:"phone_number" validate:"max=15"`
	ContactPerson string `json:"contact_person" validate:"max=100"`
}

func (ni *NewInstitution) Clean() {
	ni.ShortCode = core.CleanString(ni.ShortCode)
	ni.Name = core.CleanString(ni.Name)
	ni.StreetAddress = core.CleanString(ni.StreetAddress)
	ni.City = core.CleanString(ni.City)
	ni.State = core.CleanString(ni.State)
	ni.PostalCode = core.CleanString(ni.PostalCode)
	ni.Country = core.CleanString(ni.Country)
	ni.PhoneNumber = core.CleanString(ni.PhoneNumber)
	ni.ContactPerson = core.CleanString(ni.ContactPerson)
}

type NewClass struct {
	InstitutionID int    `json:"institution" validate:"required"`
	InstructorID  int    `json:"instructor" validate:"required"`
	ShortCode     string `json:"short_code" validate:"omitempty,max=10,alphanum_"`
	LongName      string `json:"long_name" validate:"required,max=100"`
	ShortName     string `json:"short_name" validate:"max=9"`
	Description   string `json:"description"`
}

func (nc *NewClass) Clean() {
	nc.ShortCode = core.CleanString(nc.ShortCode)
	nc.LongName = core.CleanString(nc.LongName)
	nc.ShortName = core.CleanString(nc.ShortName)
	nc.Description = core.CleanString(nc.Description)
}

type NewEnrollment struct {
	StudentID int `json:"student" validate:"required"`
}

type ClassFilter struct {
	InstitutionID int
	InstructorID  int
}

type EnrollmentFilter struct {
	StudentID int
	ClassID   int
}
