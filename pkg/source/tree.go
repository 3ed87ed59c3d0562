package source

import (
	"path/filepath"

	"github.com/muninhq/munin/pkg/artifact"
)

// Tree locates the file-backed sources under one root directory and adapts
// them to the sync orchestrator's source interfaces.
//
// Default layout:
//
//	<root>/roadmap.md
//	<root>/questions.json
//	<root>/decisions.json
//	<root>/assessments/architecture.json
//	<root>/assessments/competitive.json
//
// Any path may be overridden individually after calling NewTree.
type Tree struct {
	RoadmapPath    string
	QuestionsPath  string
	DecisionsPath  string
	AssessmentsDir string
}

// NewTree returns a Tree with the default layout rooted at root.
func NewTree(root string) *Tree {
	return &Tree{
		RoadmapPath:    filepath.Join(root, "roadmap.md"),
		QuestionsPath:  filepath.Join(root, "questions.json"),
		DecisionsPath:  filepath.Join(root, "decisions.json"),
		AssessmentsDir: filepath.Join(root, "assessments"),
	}
}

// Items parses the roadmap file.
func (t *Tree) Items() ([]*artifact.RoadmapItem, error) {
	return RoadmapFile(t.RoadmapPath)
}

// Questions reads the question store.
func (t *Tree) Questions() ([]*artifact.Question, error) {
	return QuestionFile(t.QuestionsPath)
}

// Decisions reads the decision store.
func (t *Tree) Decisions() ([]*artifact.Decision, error) {
	return DecisionFile(t.DecisionsPath)
}

// Assessment reads one typed assessment envelope.
func (t *Tree) Assessment(atype artifact.AssessmentType) (*artifact.Assessment, []*artifact.Gap, error) {
	return AssessmentFile(t.AssessmentsDir, atype)
}
