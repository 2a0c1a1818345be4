package model

import "fmt"

// TestKind selects one of the three exam stages' content table sets.
type TestKind string

const (
	KindListening TestKind = "listening"
	KindReading   TestKind = "reading"
	KindWriting   TestKind = "writing"
)

// TableSet maps a TestKind onto its storage tables. Writing has no
// section/question pipeline: its two tasks live on the test row itself.
type TableSet struct {
	Tests           string
	Sections        string
	Questions       string
	Answers         string
	Options         string
	MatchingItems   string
	MatchingOptions string

	HasAudio   bool // listening carries an uploaded audio asset
	FixedTasks bool // writing carries two fixed tasks instead of parts
}

var tableSets = map[TestKind]TableSet{
	KindListening: {
		Tests:           "listening_tests",
		Sections:        "listening_sections",
		Questions:       "listening_questions",
		Answers:         "listening_answers",
		Options:         "listening_options",
		MatchingItems:   "listening_matching_items",
		MatchingOptions: "listening_matching_options",
		HasAudio:        true,
	},
	KindReading: {
		Tests:           "reading_tests",
		Sections:        "reading_sections",
		Questions:       "reading_questions",
		Answers:         "reading_answers",
		Options:         "reading_options",
		MatchingItems:   "reading_matching_items",
		MatchingOptions: "reading_matching_options",
	},
	KindWriting: {
		Tests:      "writing_tests",
		FixedTasks: true,
	},
}

func (k TestKind) Valid() bool {
	_, ok := tableSets[k]
	return ok
}

func (k TestKind) Tables() TableSet {
	return tableSets[k]
}

func ParseTestKind(s string) (TestKind, error) {
	k := TestKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unsupported test kind %q", s)
	}
	return k, nil
}

func AllTestKinds() []TestKind {
	return []TestKind{KindListening, KindReading, KindWriting}
}
