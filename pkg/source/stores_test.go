package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muninhq/munin/pkg/artifact"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDecisionFile(t *testing.T) {
	t.Run("reads the store", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "decisions.json", `[
			{"id": "dec-1", "statement": "Use badger", "owner": "platform", "status": "accepted",
			 "resolves_question": "q-1", "implications": ["Chunk store stays embedded"]},
			{"id": "dec-2", "statement": "Adopt event sourcing", "owner": "platform", "status": "accepted"}
		]`)

		decisions, err := DecisionFile(path)
		require.NoError(t, err)
		require.Len(t, decisions, 2)
		assert.Equal(t, "dec-1", decisions[0].ID)
		assert.Equal(t, "q-1", decisions[0].ResolvesQuestion)
		assert.Equal(t, []string{"Chunk store stays embedded"}, decisions[0].Implications)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := DecisionFile(filepath.Join(t.TempDir(), "absent.json"))
		assert.ErrorIs(t, err, ErrSourceMissing)
	})

	t.Run("record without id", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "decisions.json", `[{"statement": "anonymous"}]`)
		_, err := DecisionFile(path)
		assert.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "decisions.json", `{`)
		_, err := DecisionFile(path)
		assert.Error(t, err)
	})
}

func TestQuestionFile(t *testing.T) {
	t.Run("defaults empty status to pending", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "questions.json", `[
			{"id": "q-1", "text": "Which DB?", "status": "answered"},
			{"id": "q-2", "text": "Which region?"}
		]`)

		questions, err := QuestionFile(path)
		require.NoError(t, err)
		require.Len(t, questions, 2)
		assert.Equal(t, artifact.QuestionAnswered, questions[0].Status)
		assert.Equal(t, artifact.QuestionPending, questions[1].Status)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := QuestionFile(filepath.Join(t.TempDir(), "absent.json"))
		assert.ErrorIs(t, err, ErrSourceMissing)
	})
}

func TestAssessmentFile(t *testing.T) {
	const envelope = `{
		"summary": "The event pipeline lacks backpressure.",
		"gaps": [
			{"description": "No backpressure on ingest", "severity": "high"},
			{"id": "gap-custom", "description": "Missing runbooks", "severity": "low"}
		]
	}`

	t.Run("reads envelope and mints gap ids", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "architecture.json", envelope)

		assessment, gaps, err := AssessmentFile(dir, artifact.AssessmentArchitecture)
		require.NoError(t, err)

		assert.Equal(t, "assessment-architecture", assessment.ID)
		assert.Equal(t, artifact.AssessmentArchitecture, assessment.Type)
		assert.Equal(t, "The event pipeline lacks backpressure.", assessment.Summary)
		assert.NotEmpty(t, assessment.Raw, "the collaborator payload is preserved verbatim")

		require.Len(t, gaps, 2)
		assert.Contains(t, gaps[0].ID, "gap-")
		assert.Equal(t, "gap-custom", gaps[1].ID, "explicit ids are kept")
		for _, gap := range gaps {
			assert.Equal(t, assessment.ID, gap.AssessmentID)
		}
	})

	t.Run("minted gap ids are stable across reads", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "competitive.json", envelope)

		_, first, err := AssessmentFile(dir, artifact.AssessmentCompetitive)
		require.NoError(t, err)
		_, second, err := AssessmentFile(dir, artifact.AssessmentCompetitive)
		require.NoError(t, err)

		require.Equal(t, len(first), len(second))
		for i := range first {
			assert.Equal(t, first[i].ID, second[i].ID)
		}
	})

	t.Run("missing envelope", func(t *testing.T) {
		_, _, err := AssessmentFile(t.TempDir(), artifact.AssessmentArchitecture)
		assert.ErrorIs(t, err, ErrSourceMissing)
	})
}

func TestTreeLayout(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "roadmap.md", "## Now\n### Item A\nBody.\n")
	writeFile(t, root, "questions.json", `[{"id": "q-1", "text": "?"}]`)
	writeFile(t, root, "decisions.json", `[{"id": "dec-1", "statement": "s"}]`)
	writeFile(t, root, filepath.Join("assessments", "architecture.json"), `{"summary": "ok"}`)

	tree := NewTree(root)

	items, err := tree.Items()
	require.NoError(t, err)
	assert.Len(t, items, 1)

	questions, err := tree.Questions()
	require.NoError(t, err)
	assert.Len(t, questions, 1)

	decisions, err := tree.Decisions()
	require.NoError(t, err)
	assert.Len(t, decisions, 1)

	assessment, gaps, err := tree.Assessment(artifact.AssessmentArchitecture)
	require.NoError(t, err)
	assert.Equal(t, "assessment-architecture", assessment.ID)
	assert.Empty(t, gaps)

	_, _, err = tree.Assessment(artifact.AssessmentCompetitive)
	assert.ErrorIs(t, err, ErrSourceMissing)
}
