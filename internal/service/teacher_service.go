package service

import (
	"errors"

	"ielts_exam_backend/internal/model"
	"ielts_exam_backend/internal/repository"
	"ielts_exam_backend/internal/util"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TeacherService backs the teacher panel: student accounts and result
// administration. Test content itself goes through TestContentService.
type TeacherService struct {
	Users   *repository.UserRepository
	Records *repository.StudentTestRepository
	Gate    *GateCache
}

func NewTeacherService(users *repository.UserRepository, records *repository.StudentTestRepository, gate *GateCache) *TeacherService {
	return &TeacherService{Users: users, Records: records, Gate: gate}
}

func (s *TeacherService) ListStudents() ([]repository.StudentWithAttempt, error) {
	return s.Records.ListStudentsWithAttempt()
}

// CreateStudent provisions a student account; there is no self signup.
func (s *TeacherService) CreateStudent(name, email, password string) (*model.User, error) {
	if name == "" || email == "" {
		return nil, util.ValidationError("name and email are required")
	}
	if len(password) < 6 {
		return nil, util.ValidationError("password must be at least 6 characters")
	}

	if _, err := s.Users.FindByEmail(email); err == nil {
		return nil, util.ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:     name,
		Email:    email,
		Password: string(hashed),
		Role:     model.Student,
	}
	if err := s.Users.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteStudentResults wipes a student's attempt so they restart from the
// listening stage with a fresh random assignment.
func (s *TeacherService) DeleteStudentResults(studentID uint) error {
	if err := s.Records.DeleteByStudent(studentID); err != nil {
		return err
	}
	s.Gate.Invalidate(studentID)
	return nil
}
