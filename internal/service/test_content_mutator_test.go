package service

import (
	"fmt"
	"testing"

	"ielts_exam_backend/internal/model"
	"ielts_exam_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matchingSection(items []TreeMatchingItem, options []TreeMatchingOption) TreeSection {
	return TreeSection{
		Title:           "Match",
		QuestionType:    model.Matching,
		Questions:       []TreeQuestion{{Text: "anchor"}},
		MatchingOptions: options,
		MatchingItems:   items,
	}
}

func treeWith(sections ...TreeSection) *TestTree {
	return &TestTree{
		Title:    "T",
		Duration: 30,
		Parts:    []TreePart{{Number: 1, Sections: sections}},
	}
}

func TestValidateTreeMultipleChoiceNeedsOptions(t *testing.T) {
	tree := treeWith(TreeSection{
		QuestionType: model.MultipleChoice,
		Questions:    []TreeQuestion{{Text: "pick one"}},
	})

	err := validateTree(model.KindReading, tree, false)
	require.Error(t, err)
	assert.True(t, util.IsValidationError(err))
}

func TestValidateTreeDanglingMatchingRef(t *testing.T) {
	tree := treeWith(matchingSection(
		[]TreeMatchingItem{{Text: "item", MatchedOption: strptr("Z")}},
		[]TreeMatchingOption{{Text: "Paris"}, {Text: "London"}},
	))

	err := validateTree(model.KindListening, tree, false)
	require.Error(t, err)
	assert.True(t, util.IsValidationError(err))

	// tolerant mode lets the payload through; the ref becomes null
	assert.NoError(t, validateTree(model.KindListening, tree, true))
}

func TestValidateTreeMatchingByLabelAndLocalID(t *testing.T) {
	tree := treeWith(matchingSection(
		[]TreeMatchingItem{
			{Text: "by label", MatchedOption: strptr("B")},
			{Text: "by local id", MatchedOption: strptr("tmp-1")},
			{Text: "unmatched", MatchedOption: nil},
		},
		[]TreeMatchingOption{{ID: "tmp-1", Text: "Paris"}, {Text: "London"}},
	))

	assert.NoError(t, validateTree(model.KindListening, tree, false))
}

func TestValidateTreeMatchingNeedsAnchor(t *testing.T) {
	sec := matchingSection(
		[]TreeMatchingItem{{Text: "item"}},
		[]TreeMatchingOption{{Text: "Paris"}},
	)
	sec.Questions = nil

	err := validateTree(model.KindListening, treeWith(sec), false)
	require.Error(t, err)
	assert.True(t, util.IsValidationError(err))
}

func TestValidateTreeWritingSkipsStructure(t *testing.T) {
	assert.NoError(t, validateTree(model.KindWriting, &TestTree{Title: "W"}, false))
}

func TestSectionRowOrdinals(t *testing.T) {
	part := TreePart{Description: "Part One"}
	sec := TreeSection{Title: "S", Content: "body", QuestionType: model.MultipleChoice, Questions: []TreeQuestion{{}, {}}}

	row := sectionRow("t1", 2, 3, 7, part, sec)

	assert.Equal(t, "t1", row.TestID)
	assert.Equal(t, 2, row.PartNumber)
	assert.Equal(t, "Part One", row.PartDescription)
	assert.Equal(t, 3, row.SectionNumber)
	assert.Equal(t, 7, row.OrderNumber)
	assert.Equal(t, 2, row.QuestionCount)
	assert.Equal(t, model.MultipleChoice, row.QuestionType)
}

func TestSectionRowDefaultsQuestionType(t *testing.T) {
	row := sectionRow("t1", 1, 1, 1, TreePart{}, TreeSection{})
	assert.Equal(t, model.NoteCompletion, row.QuestionType)
}

func TestQuestionRowsInheritSectionType(t *testing.T) {
	sec := TreeSection{Questions: []TreeQuestion{
		{Text: "a"},
		{Text: "b", Type: model.ShortAnswer},
	}}

	rows := questionRows("s1", model.Matching, sec)

	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].OrderNumber)
	assert.Equal(t, model.Matching, rows[0].QuestionType)
	assert.Equal(t, 2, rows[1].OrderNumber)
	assert.Equal(t, model.ShortAnswer, rows[1].QuestionType)
}

func TestAnswerRowsBlankNumbers(t *testing.T) {
	rows := answerRows("q1", TreeQuestion{Answers: []string{"one", "two", "three"}})

	require.Len(t, rows, 3)
	assert.Equal(t, 1, rows[0].BlankNumber)
	assert.Equal(t, "one", rows[0].CorrectAnswer)
	assert.Equal(t, 3, rows[2].BlankNumber)
}

func TestOptionRowsLabelsAndCorrectFlag(t *testing.T) {
	q := TreeQuestion{
		Options: []TreeOption{
			{ID: "tmp-a", Text: "alpha"},
			{ID: "tmp-b", Text: "beta"},
			{ID: "tmp-c", Text: "gamma"},
		},
		CorrectOption: strptr("tmp-b"),
	}

	rows := optionRows("q1", q)

	require.Len(t, rows, 3)
	assert.Equal(t, "A", rows[0].OptionLabel)
	assert.Equal(t, "B", rows[1].OptionLabel)
	assert.Equal(t, "C", rows[2].OptionLabel)
	assert.False(t, rows[0].IsCorrect)
	assert.True(t, rows[1].IsCorrect)
	assert.False(t, rows[2].IsCorrect)
}

func TestOptionRowsDuplicateIDsSingleCorrect(t *testing.T) {
	// editors may submit colliding transient ids; only one option may end
	// up flagged correct
	q := TreeQuestion{
		Options: []TreeOption{
			{ID: "dup", Text: "alpha"},
			{ID: "dup", Text: "beta"},
		},
		CorrectOption: strptr("dup"),
	}

	rows := optionRows("q1", q)

	require.Len(t, rows, 2)
	assert.True(t, rows[0].IsCorrect)
	assert.False(t, rows[1].IsCorrect)
}

func TestOptionRowsNoCorrectOption(t *testing.T) {
	rows := optionRows("q1", TreeQuestion{Options: []TreeOption{{Text: "alpha"}}})
	require.Len(t, rows, 1)
	assert.False(t, rows[0].IsCorrect)
}

func TestMatchingOptionRowsDropBlanksAndRelabel(t *testing.T) {
	sec := matchingSection(nil, []TreeMatchingOption{
		{ID: "tmp-1", Label: "A", Text: "Paris"},
		{Text: "   "},
		{ID: "tmp-3", Label: "C", Text: "London"},
	})

	rows, keys := matchingOptionRows("q1", sec)

	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].OptionLabel)
	assert.Equal(t, "Paris", rows[0].OptionText)
	// survivors are relabeled by position, so the third entry becomes B
	assert.Equal(t, "B", rows[1].OptionLabel)
	assert.Equal(t, "London", rows[1].OptionText)

	assert.Contains(t, keys[0], "A")
	assert.Contains(t, keys[0], "tmp-1")
	assert.Contains(t, keys[1], "B")
	assert.Contains(t, keys[1], "C")
	assert.Contains(t, keys[1], "tmp-3")
}

func TestMatchingItemRowsResolveRefs(t *testing.T) {
	sec := matchingSection([]TreeMatchingItem{
		{Text: "by label", MatchedOption: strptr("B")},
		{Text: "by id", MatchedOption: strptr("tmp-1")},
		{Text: "dangling", MatchedOption: strptr("Z")},
		{Text: "none", MatchedOption: nil},
	}, nil)

	refToID := map[string]string{"A": "db-1", "tmp-1": "db-1", "B": "db-2"}
	rows := matchingItemRows("q1", sec, refToID)

	require.Len(t, rows, 4)
	assert.Equal(t, "db-2", *rows[0].CorrectOptionID)
	assert.Equal(t, "db-1", *rows[1].CorrectOptionID)
	assert.Nil(t, rows[2].CorrectOptionID)
	assert.Nil(t, rows[3].CorrectOptionID)
	assert.Equal(t, "q1", rows[0].QuestionID)
}

// The hydrated shape of a matching section must survive a replace: pool
// entries keep their pairing through persisted-id references.
func TestMatchingRoundTripPairing(t *testing.T) {
	hydrated := matchingSection(
		[]TreeMatchingItem{{Text: "capital of France", MatchedOption: strptr("db-old-1")}},
		[]TreeMatchingOption{
			{ID: "db-old-1", Label: "A", Text: "Paris"},
			{ID: "db-old-2", Label: "B", Text: "London"},
		},
	)

	require.NoError(t, validateTree(model.KindListening, treeWith(hydrated), false))

	rows, keys := matchingOptionRows("q-new", hydrated)
	refToID := map[string]string{}
	for i := range rows {
		rows[i].ID = "db-new-" + rows[i].OptionLabel
		for _, k := range keys[i] {
			refToID[k] = rows[i].ID
		}
	}

	items := matchingItemRows("q-new", hydrated, refToID)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].CorrectOptionID)
	assert.Equal(t, "db-new-A", *items[0].CorrectOptionID)
	assert.Equal(t, "Paris", rows[0].OptionText)
}

func TestWritingTasksFromTree(t *testing.T) {
	tree := &TestTree{Parts: []TreePart{
		{Sections: []TreeSection{{Title: "Chart", Content: "Describe it."}}},
		{Sections: []TreeSection{{Title: "Essay", Content: "Discuss."}}},
	}}

	t1, t2 := writingTasks(tree)
	assert.Equal(t, "Chart", t1.Title)
	assert.Equal(t, "Discuss.", t2.Content)

	t1, t2 = writingTasks(&TestTree{})
	assert.Equal(t, "", t1.Title)
	assert.Equal(t, "", t2.Title)
}

// flattenTree pushes a payload through the same row builders the replace
// transaction uses, handing out deterministic ids the way storage would.
func flattenTree(testID string, tree *TestTree) (
	sections []model.Section,
	questions []model.Question,
	answers []model.Answer,
	options []model.Option,
	mItems []model.MatchingItem,
	mOptions []model.MatchingOption,
) {
	ordinal := 0
	for pIdx, part := range tree.Parts {
		for sIdx, sec := range part.Sections {
			ordinal++
			row := sectionRow(testID, pIdx+1, sIdx+1, ordinal, part, sec)
			row.ID = fmt.Sprintf("s%d", ordinal)

			qRows := questionRows(row.ID, row.QuestionType, sec)
			for i := range qRows {
				qRows[i].ID = fmt.Sprintf("%s-q%d", row.ID, i+1)
			}
			for qIdx, q := range sec.Questions {
				answers = append(answers, answerRows(qRows[qIdx].ID, q)...)
				opts := optionRows(qRows[qIdx].ID, q)
				for i := range opts {
					opts[i].ID = fmt.Sprintf("%s-o%d", qRows[qIdx].ID, i+1)
				}
				options = append(options, opts...)
			}
			if row.QuestionType == model.Matching && len(qRows) > 0 {
				poolRows, keys := matchingOptionRows(qRows[0].ID, sec)
				refToID := make(map[string]string)
				for i := range poolRows {
					poolRows[i].ID = fmt.Sprintf("%s-m%d", row.ID, i+1)
					for _, key := range keys[i] {
						refToID[key] = poolRows[i].ID
					}
				}
				mOptions = append(mOptions, poolRows...)
				mItems = append(mItems, matchingItemRows(qRows[0].ID, sec, refToID)...)
			}

			sections = append(sections, row)
			questions = append(questions, qRows...)
		}
	}
	return
}

type shapeQuestion struct {
	Text    string
	Answers []string
	Options []string
	Correct string
}

type shapeSection struct {
	Title     string
	Questions []shapeQuestion
	Pool      []string
	Pairs     map[string]string
}

type shapePart struct {
	Number   int
	Sections []shapeSection
}

// treeShape reduces a hydrated tree to its content, resolving option
// references to the option's text so ids drop out of the comparison.
func treeShape(tree *TestTree) []shapePart {
	var parts []shapePart
	for _, p := range tree.Parts {
		sp := shapePart{Number: p.Number}
		for _, s := range p.Sections {
			ss := shapeSection{Title: s.Title, Pairs: map[string]string{}}
			poolByRef := make(map[string]string)
			for _, o := range s.MatchingOptions {
				ss.Pool = append(ss.Pool, o.Text)
				if o.ID != "" {
					poolByRef[o.ID] = o.Text
				}
				if o.Label != "" {
					poolByRef[o.Label] = o.Text
				}
			}
			for _, it := range s.MatchingItems {
				if it.MatchedOption != nil {
					ss.Pairs[it.Text] = poolByRef[*it.MatchedOption]
				}
			}
			for _, q := range s.Questions {
				sq := shapeQuestion{Text: q.Text, Answers: q.Answers}
				for _, o := range q.Options {
					sq.Options = append(sq.Options, o.Text)
					if q.CorrectOption != nil && o.ID == *q.CorrectOption {
						sq.Correct = o.Text
					}
				}
				ss.Questions = append(ss.Questions, sq)
			}
			sp.Sections = append(sp.Sections, ss)
		}
		parts = append(parts, sp)
	}
	return parts
}

func TestReplaceThenHydrateRoundTripStable(t *testing.T) {
	test := &model.Test{UUIDBase: uuidBase("t1"), Title: "Mixed", Duration: 60}

	payload := &TestTree{
		Title:    "Mixed",
		Duration: 60,
		Parts: []TreePart{
			{Description: "Part One", Sections: []TreeSection{
				{Title: "Notes", QuestionType: model.NoteCompletion, Questions: []TreeQuestion{
					{Text: "fill one", Answers: []string{"one", "two"}},
					{Text: "fill two", Answers: []string{"three"}},
				}},
				{Title: "Choice", QuestionType: model.MultipleChoice, Questions: []TreeQuestion{
					{Text: "pick", Options: []TreeOption{
						{ID: "tmp-x", Text: "alpha"},
						{ID: "tmp-y", Text: "beta"},
					}, CorrectOption: strptr("tmp-y")},
				}},
			}},
			{Description: "Part Two", Sections: []TreeSection{
				matchingSection(
					[]TreeMatchingItem{
						{Text: "capital of France", MatchedOption: strptr("A")},
						{Text: "capital of England", MatchedOption: strptr("B")},
					},
					[]TreeMatchingOption{{Text: "Paris"}, {Text: "London"}},
				),
			}},
		},
	}

	require.NoError(t, validateTree(model.KindReading, payload, false))

	secs, qs, ans, opts, items, pool := flattenTree("t1", payload)
	first := assembleTree(model.KindReading, test, secs, qs, ans, opts, items, pool)

	// the hydrated tree, replaced unchanged, must hydrate back to the
	// same content even though every id was reissued
	require.NoError(t, validateTree(model.KindReading, first, false))
	secs, qs, ans, opts, items, pool = flattenTree("t1", first)
	second := assembleTree(model.KindReading, test, secs, qs, ans, opts, items, pool)

	assert.Equal(t, treeShape(first), treeShape(second))

	shape := treeShape(second)
	require.Len(t, shape, 2)
	notes := shape[0].Sections[0]
	assert.Equal(t, []string{"one", "two"}, notes.Questions[0].Answers)
	assert.Equal(t, []string{"three"}, notes.Questions[1].Answers)
	assert.Equal(t, "beta", shape[0].Sections[1].Questions[0].Correct)
	match := shape[1].Sections[0]
	assert.Equal(t, []string{"Paris", "London"}, match.Pool)
	assert.Equal(t, "Paris", match.Pairs["capital of France"])
	assert.Equal(t, "London", match.Pairs["capital of England"])
}
