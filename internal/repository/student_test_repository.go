package repository

import (
	"errors"
	"ielts_exam_backend/internal/model"

	"gorm.io/gorm"
)

type StudentTestRepository struct {
	DB *gorm.DB
}

func NewStudentTestRepository(db *gorm.DB) *StudentTestRepository {
	return &StudentTestRepository{DB: db}
}

// FindByStudent returns (nil, nil) when the student has no record yet.
func (r *StudentTestRepository) FindByStudent(studentID uint) (*model.StudentTest, error) {
	var st model.StudentTest
	err := r.DB.Where("student_id = ?", studentID).Take(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *StudentTestRepository) Create(st *model.StudentTest) error {
	return r.DB.Create(st).Error
}

func (r *StudentTestRepository) Save(st *model.StudentTest) error {
	return r.DB.Save(st).Error
}

func (r *StudentTestRepository) DeleteByStudent(studentID uint) error {
	return r.DB.Where("student_id = ?", studentID).Delete(&model.StudentTest{}).Error
}

func (r *StudentTestRepository) DeleteByID(id string) error {
	return r.DB.Where("id = ?", id).Delete(&model.StudentTest{}).Error
}

// StudentWithAttempt backs the teacher panel's student list.
type StudentWithAttempt struct {
	Student model.User         `json:"student"`
	Attempt *model.StudentTest `json:"attempt"`
}

func (r *StudentTestRepository) ListStudentsWithAttempt() ([]StudentWithAttempt, error) {
	var students []model.User
	if err := r.DB.Where("role = ?", model.Student).Order("created_at desc").Find(&students).Error; err != nil {
		return nil, err
	}
	if len(students) == 0 {
		return []StudentWithAttempt{}, nil
	}

	ids := make([]uint, 0, len(students))
	for _, s := range students {
		ids = append(ids, s.ID)
	}

	var attempts []model.StudentTest
	if err := r.DB.Where("student_id IN ?", ids).Find(&attempts).Error; err != nil {
		return nil, err
	}

	byStudent := make(map[uint]*model.StudentTest, len(attempts))
	for i := range attempts {
		byStudent[attempts[i].StudentID] = &attempts[i]
	}

	out := make([]StudentWithAttempt, 0, len(students))
	for _, s := range students {
		out = append(out, StudentWithAttempt{Student: s, Attempt: byStudent[s.ID]})
	}
	return out, nil
}
