package dummydb

import (
	"context"

	"github.com/trezcool/formportal/core/student"
)

type studentRepository struct {
	db *studentTable
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db.student}
}

func (repo *studentRepository) CreateStudent(_ context.Context, std student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[std.RollNumber]; ok {
		return student.Student{}, student.ErrExists
	}
	repo.db.table[std.RollNumber] = &std
	return std, nil
}

func (repo *studentRepository) GetStudent(_ context.Context, rollNumber string) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	std, ok := repo.db.table[rollNumber]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	return *std, nil
}
