// Package inmemdb implements the core repositories in memory. It emulates the unique constraints
// and the transactions of the postgres schema, and is used by tests and local development.
package inmemdb

import (
	"sync"

	"github.com/capitalizelearning/CapitalizeWebsite/core/account"
	"github.com/capitalizelearning/CapitalizeWebsite/core/lesson"
	"github.com/capitalizelearning/CapitalizeWebsite/core/school"
)

type DB struct {
	mutex sync.RWMutex
	pk    map[string]int

	users       map[int]*account.User
	profiles    map[int]*account.Profile // by user id
	preferences map[int]*account.Preferences
	waitingList map[int]*account.WaitingList

	institutions map[int]*school.Institution
	classes      map[int]*school.Class
	enrollments  map[int]*school.Enrollment

	contents  map[int]*lesson.Content
	quizzes   map[int]*lesson.Quiz
	questions map[int]*lesson.QuizQuestion
	responses map[int]*lesson.QuizResponse
}

func Open() *DB {
	return &DB{
		pk:           make(map[string]int),
		users:        make(map[int]*account.User),
		profiles:     make(map[int]*account.Profile),
		preferences:  make(map[int]*account.Preferences),
		waitingList:  make(map[int]*account.WaitingList),
		institutions: make(map[int]*school.Institution),
		classes:      make(map[int]*school.Class),
		enrollments:  make(map[int]*school.Enrollment),
		contents:     make(map[int]*lesson.Content),
		quizzes:      make(map[int]*lesson.Quiz),
		questions:    make(map[int]*lesson.QuizQuestion),
		responses:    make(map[int]*lesson.QuizResponse),
	}
}

// nextPK must be called with the write lock held.
func (db *DB) nextPK(table string) int {
	db.pk[table]++
	return db.pk[table]
}
