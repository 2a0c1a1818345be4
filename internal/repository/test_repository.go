package repository

import (
	"errors"

	"ielts_exam_backend/internal/model"
	"ielts_exam_backend/internal/util"

	"gorm.io/gorm"
)

// TestRepository serves all three kinds' table sets through one
// implementation; every method routes table names via kind.Tables().
type TestRepository struct {
	DB *gorm.DB
}

func NewTestRepository(db *gorm.DB) *TestRepository {
	return &TestRepository{DB: db}
}

func (r *TestRepository) FindTest(kind model.TestKind, id string) (*model.Test, error) {
	var t model.Test
	err := r.DB.Table(kind.Tables().Tests).Where("id = ?", id).Take(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrTestNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TestRepository) ListTests(kind model.TestKind) ([]model.Test, error) {
	var ts []model.Test
	err := r.DB.Table(kind.Tables().Tests).Order("created_at desc").Find(&ts).Error
	return ts, err
}

// ListTestIDs feeds random assignment; capped like the original catalog scan.
func (r *TestRepository) ListTestIDs(kind model.TestKind) ([]string, error) {
	var ids []string
	err := r.DB.Table(kind.Tables().Tests).Limit(200).Pluck("id", &ids).Error
	return ids, err
}

func (r *TestRepository) CreateTest(kind model.TestKind, t *model.Test) error {
	return r.DB.Table(kind.Tables().Tests).Create(t).Error
}

func (r *TestRepository) UpdateTestScalars(kind model.TestKind, id string, fields map[string]interface{}) error {
	return r.DB.Table(kind.Tables().Tests).Where("id = ?", id).Updates(fields).Error
}

func (r *TestRepository) UpdateAudioURL(kind model.TestKind, id, audioURL string) error {
	return r.DB.Table(kind.Tables().Tests).Where("id = ?", id).Update("audio_url", audioURL).Error
}

// DeleteTest removes the test row; sections and deeper rows go with it via
// the cascade installed at migration time.
func (r *TestRepository) DeleteTest(kind model.TestKind, id string) error {
	ts := kind.Tables()
	if !ts.FixedTasks {
		if err := r.DB.Table(ts.Sections).Where("test_id = ?", id).Delete(&model.Section{}).Error; err != nil {
			return err
		}
	}
	return r.DB.Table(ts.Tests).Where("id = ?", id).Delete(&model.Test{}).Error
}

// SectionsPartOrdered is the primary section read: part grouping first, then
// ordinal. Fails on schemas that were never migrated to part_number.
func (r *TestRepository) SectionsPartOrdered(kind model.TestKind, testID string) ([]model.Section, error) {
	var ss []model.Section
	err := r.DB.Table(kind.Tables().Sections).
		Where("test_id = ?", testID).
		Order("part_number asc").
		Order("order_number asc").
		Find(&ss).Error
	return ss, err
}

// SectionsOrdinalOrdered is the degraded fallback ordering used when the
// part-aware read fails on a partially migrated schema.
func (r *TestRepository) SectionsOrdinalOrdered(kind model.TestKind, testID string) ([]model.Section, error) {
	var ss []model.Section
	err := r.DB.Table(kind.Tables().Sections).
		Where("test_id = ?", testID).
		Order("order_number asc").
		Find(&ss).Error
	return ss, err
}

func (r *TestRepository) QuestionsBySections(kind model.TestKind, sectionIDs []string) ([]model.Question, error) {
	var qs []model.Question
	err := r.DB.Table(kind.Tables().Questions).
		Where("section_id IN ?", sectionIDs).
		Order("order_number asc").
		Find(&qs).Error
	return qs, err
}

func (r *TestRepository) AnswersByQuestions(kind model.TestKind, questionIDs []string) ([]model.Answer, error) {
	var rows []model.Answer
	err := r.DB.Table(kind.Tables().Answers).Where("question_id IN ?", questionIDs).Find(&rows).Error
	return rows, err
}

func (r *TestRepository) OptionsByQuestions(kind model.TestKind, questionIDs []string) ([]model.Option, error) {
	var rows []model.Option
	err := r.DB.Table(kind.Tables().Options).Where("question_id IN ?", questionIDs).Find(&rows).Error
	return rows, err
}

func (r *TestRepository) MatchingItemsByQuestions(kind model.TestKind, questionIDs []string) ([]model.MatchingItem, error) {
	var rows []model.MatchingItem
	err := r.DB.Table(kind.Tables().MatchingItems).Where("question_id IN ?", questionIDs).Find(&rows).Error
	return rows, err
}

func (r *TestRepository) MatchingOptionsByQuestions(kind model.TestKind, questionIDs []string) ([]model.MatchingOption, error) {
	var rows []model.MatchingOption
	err := r.DB.Table(kind.Tables().MatchingOptions).Where("question_id IN ?", questionIDs).Find(&rows).Error
	return rows, err
}
