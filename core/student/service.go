package student

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/formportal/core"
)

var (
	// errors
	ErrNotFound = errors.New("student not found")
	ErrExists   = errors.New("student already exists")
)

type (
	Repository interface {
		// CreateStudent returns ErrExists when the roll number is taken.
		CreateStudent(ctx context.Context, std Student) (Student, error)
		// GetStudent returns ErrNotFound when no student has the roll number.
		GetStudent(ctx context.Context, rollNumber string) (Student, error)
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Register validates and creates a student.
func (svc *Service) Register(ctx context.Context, ns NewStudent) (Student, error) {
	ns.Clean()
	if err := ns.Validate(); err != nil {
		return Student{}, err
	}

	std, err := svc.repo.CreateStudent(ctx, Student{
		ID:         uuid.NewString(),
		RollNumber: ns.RollNumber,
		Name:       ns.Name,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		if errors.Cause(err) == ErrExists {
			return Student{}, err
		}
		return Student{}, errors.Wrap(err, "creating student")
	}
	svc.logger.Info("student registered", std)
	return std, nil
}

func (svc *Service) Get(ctx context.Context, rollNumber string) (Student, error) {
	return svc.repo.GetStudent(ctx, core.CleanString(rollNumber))
}
