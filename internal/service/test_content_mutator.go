package service

import (
	"context"
	"strings"

	"ielts_exam_backend/internal/model"
	"ielts_exam_backend/internal/util"

	"gorm.io/gorm"
)

// ReplaceFullTest swaps a test's entire content tree in one transaction:
// scalar fields are patched, every old section and descendant row is
// deleted, and the payload is reinserted with fresh ids and regenerated
// ordinals. There is no diffing; the payload is the new truth.
func (s *TestContentService) ReplaceFullTest(ctx context.Context, kind model.TestKind, testID string, tree *TestTree, audio *AudioUpload) error {
	if !kind.Valid() {
		return util.ValidationError("unknown test kind %q", kind)
	}
	if tree == nil {
		return util.ValidationError("empty payload")
	}
	if _, err := s.Tests.FindTest(kind, testID); err != nil {
		return err
	}
	if err := validateTree(kind, tree, s.Cfg.Content.TolerateDanglingRefs); err != nil {
		return err
	}

	var audioURL *string
	if audio != nil {
		if !kind.Tables().HasAudio {
			return util.ValidationError("audio is only supported for listening tests")
		}
		url, err := s.storeAudio(ctx, testID, audio)
		if err != nil {
			return err
		}
		audioURL = &url
	}

	ts := kind.Tables()
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fields := map[string]interface{}{
			"title":       tree.Title,
			"duration":    tree.Duration,
			"description": tree.Description,
		}
		if audioURL != nil {
			fields["audio_url"] = *audioURL
		}
		if ts.FixedTasks {
			t1, t2 := writingTasks(tree)
			fields["task1_title"] = t1.Title
			fields["task1_question"] = t1.Content
			fields["task2_title"] = t2.Title
			fields["task2_question"] = t2.Content
		}
		if err := tx.Table(ts.Tests).Where("id = ?", testID).Updates(fields).Error; err != nil {
			return err
		}
		if ts.FixedTasks {
			return nil
		}

		// 删除旧内容, 子表由级联外键一并清除
		if err := tx.Table(ts.Sections).Where("test_id = ?", testID).Delete(&model.Section{}).Error; err != nil {
			return err
		}

		ordinal := 0
		for pIdx, part := range tree.Parts {
			for sIdx, sec := range part.Sections {
				ordinal++
				row := sectionRow(testID, pIdx+1, sIdx+1, ordinal, part, sec)
				if err := tx.Table(ts.Sections).Create(&row).Error; err != nil {
					return err
				}

				qRows := questionRows(row.ID, row.QuestionType, sec)
				if len(qRows) == 0 {
					continue
				}
				if err := tx.Table(ts.Questions).Create(&qRows).Error; err != nil {
					return err
				}

				for qIdx, q := range sec.Questions {
					if rows := answerRows(qRows[qIdx].ID, q); len(rows) > 0 {
						if err := tx.Table(ts.Answers).Create(&rows).Error; err != nil {
							return err
						}
					}
					if rows := optionRows(qRows[qIdx].ID, q); len(rows) > 0 {
						if err := tx.Table(ts.Options).Create(&rows).Error; err != nil {
							return err
						}
					}
				}

				// matching pool anchors to the first question; options go
				// in first so items can reference their generated ids
				if row.QuestionType == model.Matching {
					anchorID := qRows[0].ID
					poolRows, keys := matchingOptionRows(anchorID, sec)
					if len(poolRows) > 0 {
						if err := tx.Table(ts.MatchingOptions).Create(&poolRows).Error; err != nil {
							return err
						}
					}
					refToID := make(map[string]string)
					for i, opt := range poolRows {
						for _, key := range keys[i] {
							refToID[key] = opt.ID
						}
					}
					itemRows := matchingItemRows(anchorID, sec, refToID)
					if len(itemRows) > 0 {
						if err := tx.Table(ts.MatchingItems).Create(&itemRows).Error; err != nil {
							return err
						}
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.InvalidateTree(ctx, kind, testID)
	return nil
}

// validateTree rejects payloads the reinsert loop cannot represent.
func validateTree(kind model.TestKind, tree *TestTree, tolerateDangling bool) error {
	if kind == model.KindWriting {
		return nil
	}
	for pIdx, part := range tree.Parts {
		for sIdx, sec := range part.Sections {
			secType := sec.QuestionType
			if secType == "" {
				secType = model.NoteCompletion
			}
			switch secType {
			case model.MultipleChoice:
				for qIdx, q := range sec.Questions {
					if len(q.Options) == 0 {
						return util.ValidationError(
							"part %d section %d question %d: multiple choice needs at least one option",
							pIdx+1, sIdx+1, qIdx+1)
					}
				}
			case model.Matching:
				if len(sec.MatchingItems) > 0 && len(sec.Questions) == 0 {
					return util.ValidationError(
						"part %d section %d: matching pool has no question to anchor to",
						pIdx+1, sIdx+1)
				}
				refs := matchingRefSet(sec)
				for iIdx, item := range sec.MatchingItems {
					if item.MatchedOption == nil || *item.MatchedOption == "" {
						continue
					}
					if _, ok := refs[*item.MatchedOption]; !ok && !tolerateDangling {
						return util.ValidationError(
							"part %d section %d item %d: matched option %q not in pool",
							pIdx+1, sIdx+1, iIdx+1, *item.MatchedOption)
					}
				}
			}
		}
	}
	return nil
}

// matchingRefSet lists every way a payload may point at a pool entry:
// its derived label, its supplied label and its transient editor id.
func matchingRefSet(sec TreeSection) map[string]struct{} {
	refs := make(map[string]struct{})
	kept := 0
	for _, opt := range sec.MatchingOptions {
		if strings.TrimSpace(opt.Text) == "" {
			continue
		}
		refs[util.OptionLabel(kept)] = struct{}{}
		if opt.Label != "" {
			refs[opt.Label] = struct{}{}
		}
		if opt.ID != "" {
			refs[opt.ID] = struct{}{}
		}
		kept++
	}
	return refs
}

func sectionRow(testID string, partNumber, sectionNumber, ordinal int, part TreePart, sec TreeSection) model.Section {
	qt := sec.QuestionType
	if qt == "" {
		qt = model.NoteCompletion
	}
	return model.Section{
		TestID:          testID,
		PartNumber:      partNumber,
		PartDescription: part.Description,
		SectionNumber:   sectionNumber,
		OrderNumber:     ordinal,
		Title:           sec.Title,
		Content:         sec.Content,
		ImageURL:        sec.ImageURL,
		QuestionType:    qt,
		QuestionCount:   len(sec.Questions),
	}
}

func questionRows(sectionID string, secType model.QuestionType, sec TreeSection) []model.Question {
	rows := make([]model.Question, 0, len(sec.Questions))
	for i, q := range sec.Questions {
		qt := q.Type
		if qt == "" {
			qt = secType
		}
		rows = append(rows, model.Question{
			SectionID:    sectionID,
			OrderNumber:  i + 1,
			QuestionText: q.Text,
			QuestionType: qt,
		})
	}
	return rows
}

func answerRows(questionID string, q TreeQuestion) []model.Answer {
	rows := make([]model.Answer, 0, len(q.Answers))
	for i, a := range q.Answers {
		rows = append(rows, model.Answer{
			QuestionID:    questionID,
			BlankNumber:   i + 1,
			CorrectAnswer: a,
		})
	}
	return rows
}

func optionRows(questionID string, q TreeQuestion) []model.Option {
	rows := make([]model.Option, 0, len(q.Options))
	// editor ids are not checked for uniqueness, only the first match may
	// carry the correct flag
	marked := false
	for i, o := range q.Options {
		correct := !marked && q.CorrectOption != nil && o.ID != "" && o.ID == *q.CorrectOption
		if correct {
			marked = true
		}
		rows = append(rows, model.Option{
			QuestionID:  questionID,
			OptionLabel: util.OptionLabel(i),
			OptionText:  o.Text,
			IsCorrect:   correct,
		})
	}
	return rows
}

// matchingOptionRows drops blank entries and relabels the survivors by
// position. keys[i] holds every payload reference that should resolve to
// row i once it has a persisted id.
func matchingOptionRows(anchorQuestionID string, sec TreeSection) ([]model.MatchingOption, [][]string) {
	rows := make([]model.MatchingOption, 0, len(sec.MatchingOptions))
	keys := make([][]string, 0, len(sec.MatchingOptions))
	for _, opt := range sec.MatchingOptions {
		if strings.TrimSpace(opt.Text) == "" {
			continue
		}
		label := util.OptionLabel(len(rows))
		rows = append(rows, model.MatchingOption{
			QuestionID:  anchorQuestionID,
			OptionLabel: label,
			OptionText:  opt.Text,
		})
		k := []string{label}
		if opt.Label != "" && opt.Label != label {
			k = append(k, opt.Label)
		}
		if opt.ID != "" {
			k = append(k, opt.ID)
		}
		keys = append(keys, k)
	}
	return rows, keys
}

func matchingItemRows(anchorQuestionID string, sec TreeSection, refToID map[string]string) []model.MatchingItem {
	rows := make([]model.MatchingItem, 0, len(sec.MatchingItems))
	for _, item := range sec.MatchingItems {
		row := model.MatchingItem{
			QuestionID: anchorQuestionID,
			ItemText:   item.Text,
		}
		if item.MatchedOption != nil && *item.MatchedOption != "" {
			if id, ok := refToID[*item.MatchedOption]; ok {
				resolved := id
				row.CorrectOptionID = &resolved
			}
			// unresolved refs only get here under the tolerant setting
		}
		rows = append(rows, row)
	}
	return rows
}

type writingTask struct {
	Title   string
	Content string
}

// writingTasks reads the two fixed tasks back out of the tree shape.
func writingTasks(tree *TestTree) (writingTask, writingTask) {
	tasks := [2]writingTask{}
	for i := 0; i < 2 && i < len(tree.Parts); i++ {
		if len(tree.Parts[i].Sections) > 0 {
			sec := tree.Parts[i].Sections[0]
			tasks[i] = writingTask{Title: sec.Title, Content: sec.Content}
		}
	}
	return tasks[0], tasks[1]
}
