// Package inmemdb implements the core repositories in memory, for tests and local runs.
package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/enrollment"
	"github.com/trezcool/darasa/core/exam"
	"github.com/trezcool/darasa/core/grading"
	"github.com/trezcool/darasa/core/omr"
	"github.com/trezcool/darasa/core/question"
	"github.com/trezcool/darasa/core/user"
)

// table keeps its rows in insertion order.
type table[T any] struct {
	rows  map[string]T
	order []string
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]T)}
}

func (t *table[T]) insert(id string, row T) {
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = row
}

func (t *table[T]) get(id string) (T, bool) {
	row, ok := t.rows[id]
	return row, ok
}

// update replaces an existing row, it reports false when there is none.
func (t *table[T]) update(id string, row T) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	t.rows[id] = row
	return true
}

func (t *table[T]) delete(id string) {
	if _, ok := t.rows[id]; !ok {
		return
	}
	delete(t.rows, id)
	for i, oid := range t.order {
		if oid == id {
			t.order = append(t.order[:i:i], t.order[i+1:]...)
			break
		}
	}
}

func (t *table[T]) all() []T {
	rows := make([]T, 0, len(t.order))
	for _, id := range t.order {
		rows = append(rows, t.rows[id])
	}
	return rows
}

func (t *table[T]) count() int { return len(t.order) }

func (t *table[T]) clone() *table[T] {
	c := &table[T]{rows: make(map[string]T, len(t.rows)), order: make([]string, len(t.order))}
	copy(c.order, t.order)
	for id, row := range t.rows {
		c.rows[id] = row
	}
	return c
}

type tables struct {
	users         *table[user.User]
	courses       *table[course.Course]
	modules       *table[course.Module]
	contents      *table[course.Content]
	enrollments   *table[enrollment.Enrollment]
	grades        *table[grading.Grade]
	results       *table[grading.ExamResult]
	questions     *table[question.Question]
	exams         *table[exam.Exam]
	examQuestions *table[exam.Question]
	attempts      *table[exam.Attempt]
	answerKeys    *table[omr.AnswerKey]
}

func (t tables) clone() tables {
	return tables{
		users:         t.users.clone(),
		courses:       t.courses.clone(),
		modules:       t.modules.clone(),
		contents:      t.contents.clone(),
		enrollments:   t.enrollments.clone(),
		grades:        t.grades.clone(),
		results:       t.results.clone(),
		questions:     t.questions.clone(),
		exams:         t.exams.clone(),
		examQuestions: t.examQuestions.clone(),
		attempts:      t.attempts.clone(),
		answerKeys:    t.answerKeys.clone(),
	}
}

type DB struct {
	mutex sync.RWMutex
	txMu  sync.Mutex
	tables
}

var _ core.Transactor = (*DB)(nil)

func Open() *DB {
	return &DB{tables: tables{
		users:         newTable[user.User](),
		courses:       newTable[course.Course](),
		modules:       newTable[course.Module](),
		contents:      newTable[course.Content](),
		enrollments:   newTable[enrollment.Enrollment](),
		grades:        newTable[grading.Grade](),
		results:       newTable[grading.ExamResult](),
		questions:     newTable[question.Question](),
		exams:         newTable[exam.Exam](),
		examQuestions: newTable[exam.Question](),
		attempts:      newTable[exam.Attempt](),
		answerKeys:    newTable[omr.AnswerKey](),
	}}
}

// InTx runs fn with a nil executor; every table is restored to its state before fn when fn fails.
// Transactions are serialized.
func (db *DB) InTx(_ context.Context, fn func(exec core.DBExecutor) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.mutex.RLock()
	snapshot := db.tables.clone()
	db.mutex.RUnlock()

	if err := fn(nil); err != nil {
		db.mutex.Lock()
		db.tables = snapshot
		db.mutex.Unlock()
		return err
	}
	return nil
}

// Flush empties every table.
func (db *DB) Flush() {
	fresh := Open()
	db.mutex.Lock()
	db.tables = fresh.tables
	db.mutex.Unlock()
}

func copyStrings(s []string) []string {
	if s == nil {
		return nil
	}
	c := make([]string, len(s))
	copy(c, s)
	return c
}
