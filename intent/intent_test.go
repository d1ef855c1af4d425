package intent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tbxark/voiceform/intent"
	"github.com/tbxark/voiceform/types"
)

func testFields() []types.FieldDefinition {
	return []types.FieldDefinition{
		{Name: "full_name", Kind: types.KindShortText, Label: "Full Name"},
		{Name: "email", Kind: types.KindEmail, Label: "Email Address"},
		{Name: "phone", Kind: types.KindPhone, Label: "Phone Number"},
		{Name: "birth_date", Kind: types.KindDate, Label: "Date of Birth"},
	}
}

func TestClassify_SkipPhrases(t *testing.T) {
	for _, text := range []string{
		"skip",
		"skip this one",
		"I'd rather not say",
		"I prefer not to answer",
		"leave it blank please",
		"no thanks",
	} {
		c := intent.Classify(text, testFields())
		assert.Equal(t, intent.Skip, c.Kind, "text %q", text)
	}
}

func TestClassify_SkipWholeWordOnly(t *testing.T) {
	c := intent.Classify("my next door neighbor is John", testFields())
	assert.NotEqual(t, intent.Skip, c.Kind)
}

func TestClassify_CorrectionWithValue(t *testing.T) {
	c := intent.Classify("fix my email to John.Doe@gmail.com", testFields())
	assert.Equal(t, intent.Correction, c.Kind)
	assert.Equal(t, "email", c.Field)
	assert.Equal(t, "John.Doe@gmail.com", c.Value)
	assert.InDelta(t, 0.9, c.Confidence, 1e-9)
}

func TestClassify_CorrectionShouldBe(t *testing.T) {
	c := intent.Classify("my phone should be 555 123 4567", testFields())
	assert.Equal(t, intent.Correction, c.Kind)
	assert.Equal(t, "phone", c.Field)
	assert.Equal(t, "555 123 4567", c.Value)
}

func TestClassify_CorrectionIsActually(t *testing.T) {
	c := intent.Classify("actually my name is wrong, my name is actually Om Patel", testFields())
	assert.Equal(t, intent.Correction, c.Kind)
	assert.Equal(t, "full_name", c.Field)
	assert.Equal(t, "Om Patel", c.Value)
}

func TestClassify_CorrectionKeywordWithoutValue(t *testing.T) {
	c := intent.Classify("my email is wrong", testFields())
	assert.Equal(t, intent.Correction, c.Kind)
	assert.Equal(t, "email", c.Field)
	assert.Empty(t, c.Value)
	assert.InDelta(t, 0.7, c.Confidence, 1e-9)
}

func TestClassify_CorrectionNoTarget(t *testing.T) {
	c := intent.Classify("that's wrong", testFields())
	assert.Equal(t, intent.Correction, c.Kind)
	assert.Empty(t, c.Field)
}

func TestClassify_Removal(t *testing.T) {
	c := intent.Classify("remove my phone number", testFields())
	assert.Equal(t, intent.Removal, c.Kind)
	assert.Equal(t, "phone", c.Field)
}

func TestClassify_RemovalGetRidOf(t *testing.T) {
	c := intent.Classify("get rid of my email", testFields())
	assert.Equal(t, intent.Removal, c.Kind)
	assert.Equal(t, "email", c.Field)
}

func TestClassify_RemovalNoTarget(t *testing.T) {
	c := intent.Classify("delete that", testFields())
	assert.Equal(t, intent.Removal, c.Kind)
	assert.Empty(t, c.Field)
}

func TestClassify_PlainAnswer(t *testing.T) {
	c := intent.Classify("Om Patel", testFields())
	assert.Equal(t, intent.Answer, c.Kind)
	assert.InDelta(t, 0.5, c.Confidence, 1e-9)
}

func TestClassify_AnswerMentioningField(t *testing.T) {
	c := intent.Classify("my email is om@gmail.com", testFields())
	assert.Equal(t, intent.Answer, c.Kind)
	assert.Equal(t, "email", c.Field)
}

func TestClassify_CorrectionValueSurvivesUnicodeCasing(t *testing.T) {
	// "İ" grows by a byte under lowercasing, so the value must come from
	// the raw text, not from offsets into the lowered copy.
	c := intent.Classify("İ got it wrong, fix my email to John.Doe@example.com", testFields())
	assert.Equal(t, intent.Correction, c.Kind)
	assert.Equal(t, "email", c.Field)
	assert.Equal(t, "John.Doe@example.com", c.Value)
}

func TestClassify_CorrectionMixedCaseKeyword(t *testing.T) {
	c := intent.Classify("Fix my Email to Jane@example.com", testFields())
	assert.Equal(t, intent.Correction, c.Kind)
	assert.Equal(t, "email", c.Field)
	assert.Equal(t, "Jane@example.com", c.Value)
}

func TestClassify_FieldSynonyms(t *testing.T) {
	c := intent.Classify("change my cell to 555 123 4567", testFields())
	assert.Equal(t, intent.Correction, c.Kind)
	assert.Equal(t, "phone", c.Field)
}
