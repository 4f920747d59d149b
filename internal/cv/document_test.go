package cv

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() Document {
	doc := New()
	doc.Basic = Basic{Name: "Ada", Email: "ada@example.com"}
	doc.Education = []Record{
		{"degree": "BSc", "institution": "X", "percentage": "80"},
		{"degree": "MSc", "institution": "Y", "percentage": "90"},
		{"degree": "PhD", "institution": "Z", "percentage": "95"},
	}
	doc.Skills = []Record{{"name": "Go", "percentage": "90"}}
	return doc
}

func TestSetFieldDoesNotMutateReceiver(t *testing.T) {
	doc := sampleDocument()

	updated, err := doc.SetField(GroupBasic, "name", "Grace")
	require.NoError(t, err)

	assert.Equal(t, "Grace", updated.Basic.Name)
	assert.Equal(t, "Ada", doc.Basic.Name)
}

func TestSetFieldDesign(t *testing.T) {
	doc := New()

	updated, err := doc.SetField(GroupDesign, "fontSize", "18")
	require.NoError(t, err)
	assert.Equal(t, 18, updated.Design.FontSize)

	_, err = doc.SetField(GroupDesign, "fontSize", "0")
	assert.True(t, IsValidation(err))

	_, err = doc.SetField(GroupDesign, "accentColor", "blue")
	assert.True(t, IsValidation(err))

	_, err = doc.SetField(GroupDesign, "shadow", "1px")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestSetItemCopyOnWrite(t *testing.T) {
	doc := sampleDocument()

	updated, err := doc.SetItem(SectionEducation, 1, "degree", "MA")
	require.NoError(t, err)

	assert.Equal(t, "MA", updated.Education[1].Get("degree"))
	assert.Equal(t, "MSc", doc.Education[1].Get("degree"))
}

func TestSetItemOutOfRange(t *testing.T) {
	doc := sampleDocument()

	_, err := doc.SetItem(SectionEducation, 3, "degree", "MA")
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = doc.SetItem(SectionEducation, -1, "degree", "MA")
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestSetItemRejectsUnknownField(t *testing.T) {
	doc := sampleDocument()

	_, err := doc.SetItem(SectionSkills, 0, "level", "expert")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestSetItemSkillPercentageBoundary(t *testing.T) {
	doc := sampleDocument()

	for _, ok := range []string{"0", "100", "", "50.5", " 75 "} {
		_, err := doc.SetItem(SectionSkills, 0, "percentage", ok)
		assert.NoError(t, err, ok)
	}
	for _, bad := range []string{"-1", "101", "100.1", "ninety", "NaN", "Inf"} {
		_, err := doc.SetItem(SectionSkills, 0, "percentage", bad)
		assert.True(t, IsValidation(err), bad)
	}
}

func TestRemoveItemRepacks(t *testing.T) {
	doc := sampleDocument()

	updated, err := doc.RemoveItem(SectionEducation, 1)
	require.NoError(t, err)

	require.Len(t, updated.Education, 2)
	assert.Equal(t, "BSc", updated.Education[0].Get("degree"))
	assert.Equal(t, "PhD", updated.Education[1].Get("degree"))
	assert.Len(t, doc.Education, 3)

	_, err = doc.RemoveItem(SectionEducation, 3)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestAppendThenRemoveRestoresSequence(t *testing.T) {
	for _, s := range Sections {
		doc := sampleDocument()

		appended, n, err := doc.AppendItem(s)
		require.NoError(t, err)
		assert.Equal(t, doc.Len(s)+1, n)
		assert.Empty(t, appended.Items(s)[n-1])

		restored, err := appended.RemoveItem(s, n-1)
		require.NoError(t, err)
		assert.Equal(t, doc.Items(s), restored.Items(s), s)
	}
}

func TestUnknownSection(t *testing.T) {
	_, _, err := New().AppendItem(Section("hobbies"))
	assert.ErrorIs(t, err, ErrUnknownSection)
}

func TestCloneDoesNotAlias(t *testing.T) {
	doc := sampleDocument()
	cp := doc.Clone()
	cp.Education[0]["degree"] = "changed"
	cp.Design.AccentColor = "#ffffff"

	assert.Equal(t, "BSc", doc.Education[0].Get("degree"))
	assert.Equal(t, "#4F46E5", doc.Design.AccentColor)
}

func TestNormalizeDropsUnknownFields(t *testing.T) {
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(`{
		"basic": {"name": "Ada"},
		"skills": [{"name": "Go", "percentage": 90, "color": "red"}],
		"social": null
	}`), &doc))

	norm := doc.Normalize()
	assert.Equal(t, Record{"name": "Go", "percentage": "90"}, norm.Skills[0])
	assert.NotNil(t, norm.Social)
	assert.Empty(t, norm.Social)
}

func TestFractionalPercentageFromJSON(t *testing.T) {
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(`{"skills": [{"name": "Go", "percentage": 50.5}]}`), &doc))

	doc = doc.Normalize()
	assert.Equal(t, "50.5", doc.Skills[0].Get("percentage"))
	assert.NoError(t, doc.Validate())
}

func TestValidate(t *testing.T) {
	doc := sampleDocument()
	require.NoError(t, doc.Validate())

	doc.Skills = []Record{{"name": "Go", "percentage": "50.5"}}
	require.NoError(t, doc.Validate())
	doc.Skills = []Record{{"name": "Go", "percentage": "100.1"}}
	require.True(t, IsValidation(doc.Validate()))
	doc.Skills = nil

	doc.Social = []Record{{"platform": "GitHub", "link": "github.com/ada"}}
	var verr *ValidationError
	require.True(t, errors.As(doc.Validate(), &verr))
	assert.Equal(t, "social[0].link", verr.Field)
}

func TestRules(t *testing.T) {
	assert.True(t, ValidEmail("a@b.co"))
	assert.False(t, ValidEmail("a@b"))
	assert.False(t, ValidEmail("a.com"))
	assert.False(t, ValidEmail(""))

	assert.True(t, ValidAbsoluteURL("https://x.com"))
	assert.False(t, ValidAbsoluteURL("x.com"))
}
