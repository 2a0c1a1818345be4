package service

import (
	"ielts_exam_backend/internal/model"
	"sort"
)

// TestTree is the nested document the exam UI consumes and edits. Ids on
// nested nodes are persisted ids after hydration and transient editor ids
// in a replace payload; the mutator never preserves them.
// swagger:model TestTree
type TestTree struct {
	ID          string         `json:"id"`
	Type        model.TestKind `json:"type"`
	Title       string         `json:"title"`
	Duration    int            `json:"duration"`
	Description string         `json:"description"`
	AudioURL    *string        `json:"audioUrl,omitempty"`
	Parts       []TreePart     `json:"parts"`
}

type TreePart struct {
	Number      int           `json:"number"`
	Description string        `json:"description"`
	Sections    []TreeSection `json:"sections"`
}

type TreeSection struct {
	ID           string             `json:"id,omitempty"`
	Title        string             `json:"title"`
	Content      string             `json:"content"`
	ImageURL     *string            `json:"imageUrl,omitempty"`
	QuestionType model.QuestionType `json:"questionType"`
	Questions    []TreeQuestion     `json:"questions"`

	// matching lives at section level: one option pool shared by the
	// section's items, anchored in storage to the first question.
	MatchingOptions []TreeMatchingOption `json:"matchingOptions,omitempty"`
	MatchingItems   []TreeMatchingItem   `json:"matchingItems,omitempty"`
}

type TreeQuestion struct {
	ID      string             `json:"id,omitempty"`
	Text    string             `json:"text"`
	Type    model.QuestionType `json:"type"`
	Answers []string           `json:"answers,omitempty"`
	Options []TreeOption       `json:"options,omitempty"`
	// CorrectOption references one of Options by id; nil when none is correct.
	CorrectOption *string `json:"correctOption,omitempty"`
}

type TreeOption struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
	Text  string `json:"text"`
}

type TreeMatchingOption struct {
	ID    string `json:"id,omitempty"`
	Label string `json:"label,omitempty"`
	Text  string `json:"text"`
}

type TreeMatchingItem struct {
	Text string `json:"text"`
	// MatchedOption accepts a pool label ("A") or a pool entry id in a
	// replace payload; after hydration it is the persisted option id.
	MatchedOption *string `json:"matchedOption"`
}

// assembleTree builds the nested document from flat rows. Pure: all reads
// happen before this point, so ordering rules live in one testable place.
func assembleTree(
	kind model.TestKind,
	test *model.Test,
	sections []model.Section,
	questions []model.Question,
	answers []model.Answer,
	options []model.Option,
	mItems []model.MatchingItem,
	mOptions []model.MatchingOption,
) *TestTree {
	tree := &TestTree{
		ID:          test.ID,
		Type:        kind,
		Title:       test.Title,
		Duration:    test.Duration,
		Description: test.Description,
		AudioURL:    test.AudioURL,
		Parts:       []TreePart{},
	}

	answersByQ := make(map[string][]model.Answer)
	for _, a := range answers {
		answersByQ[a.QuestionID] = append(answersByQ[a.QuestionID], a)
	}
	optionsByQ := make(map[string][]model.Option)
	for _, o := range options {
		optionsByQ[o.QuestionID] = append(optionsByQ[o.QuestionID], o)
	}
	mItemsByQ := make(map[string][]model.MatchingItem)
	for _, it := range mItems {
		mItemsByQ[it.QuestionID] = append(mItemsByQ[it.QuestionID], it)
	}
	mOptionsByQ := make(map[string][]model.MatchingOption)
	for _, op := range mOptions {
		mOptionsByQ[op.QuestionID] = append(mOptionsByQ[op.QuestionID], op)
	}

	questionsBySection := make(map[string][]model.Question)
	for _, q := range questions {
		questionsBySection[q.SectionID] = append(questionsBySection[q.SectionID], q)
	}

	// group sections into parts; a missing part number means Part 1
	partNumbers := []int{}
	byPart := make(map[int][]model.Section)
	for _, s := range sections {
		pn := s.PartNumber
		if pn <= 0 {
			pn = 1
		}
		if _, seen := byPart[pn]; !seen {
			partNumbers = append(partNumbers, pn)
		}
		byPart[pn] = append(byPart[pn], s)
	}
	sort.Ints(partNumbers)

	for idx, pn := range partNumbers {
		group := byPart[pn]
		sort.SliceStable(group, func(i, j int) bool {
			return sectionOrdinal(group[i]) < sectionOrdinal(group[j])
		})

		part := TreePart{
			Number:      idx + 1,
			Description: group[0].PartDescription,
			Sections:    []TreeSection{},
		}

		for _, s := range group {
			sec := TreeSection{
				ID:           s.ID,
				Title:        s.Title,
				Content:      s.Content,
				ImageURL:     s.ImageURL,
				QuestionType: s.QuestionType,
				Questions:    []TreeQuestion{},
			}
			if sec.QuestionType == "" {
				sec.QuestionType = model.NoteCompletion
			}

			secQuestions := questionsBySection[s.ID]
			sort.SliceStable(secQuestions, func(i, j int) bool {
				return secQuestions[i].OrderNumber < secQuestions[j].OrderNumber
			})

			for _, q := range secQuestions {
				tq := TreeQuestion{
					ID:   q.ID,
					Text: q.QuestionText,
					Type: q.QuestionType,
				}
				if tq.Type == "" {
					tq.Type = sec.QuestionType
				}

				qAnswers := answersByQ[q.ID]
				sort.SliceStable(qAnswers, func(i, j int) bool {
					return qAnswers[i].BlankNumber < qAnswers[j].BlankNumber
				})
				for _, a := range qAnswers {
					tq.Answers = append(tq.Answers, a.CorrectAnswer)
				}

				qOptions := optionsByQ[q.ID]
				sort.SliceStable(qOptions, func(i, j int) bool {
					return qOptions[i].OptionLabel < qOptions[j].OptionLabel
				})
				for _, o := range qOptions {
					tq.Options = append(tq.Options, TreeOption{ID: o.ID, Label: o.OptionLabel, Text: o.OptionText})
					if o.IsCorrect && tq.CorrectOption == nil {
						id := o.ID
						tq.CorrectOption = &id
					}
				}

				// matching rows anchor to the first question but belong
				// to the section as a whole
				poolOptions := mOptionsByQ[q.ID]
				sort.SliceStable(poolOptions, func(i, j int) bool {
					return poolOptions[i].OptionLabel < poolOptions[j].OptionLabel
				})
				for _, o := range poolOptions {
					sec.MatchingOptions = append(sec.MatchingOptions, TreeMatchingOption{
						ID:    o.ID,
						Label: o.OptionLabel,
						Text:  o.OptionText,
					})
				}
				for _, it := range mItemsByQ[q.ID] {
					sec.MatchingItems = append(sec.MatchingItems, TreeMatchingItem{
						Text:          it.ItemText,
						MatchedOption: it.CorrectOptionID,
					})
				}

				sec.Questions = append(sec.Questions, tq)
			}

			part.Sections = append(part.Sections, sec)
		}

		tree.Parts = append(tree.Parts, part)
	}

	return tree
}

func sectionOrdinal(s model.Section) int {
	if s.OrderNumber > 0 {
		return s.OrderNumber
	}
	return s.SectionNumber
}

// writingTree maps a writing test's two fixed tasks onto the same tree
// shape; there is no section/question pipeline behind it.
func writingTree(test *model.Test) *TestTree {
	deref := func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	}

	return &TestTree{
		ID:          test.ID,
		Type:        model.KindWriting,
		Title:       test.Title,
		Duration:    test.Duration,
		Description: test.Description,
		Parts: []TreePart{
			{
				Number:      1,
				Description: "Task 1",
				Sections: []TreeSection{
					{Title: deref(test.Task1Title), Content: deref(test.Task1Question), Questions: []TreeQuestion{}},
				},
			},
			{
				Number:      2,
				Description: "Task 2",
				Sections: []TreeSection{
					{Title: deref(test.Task2Title), Content: deref(test.Task2Question), Questions: []TreeQuestion{}},
				},
			},
		},
	}
}
