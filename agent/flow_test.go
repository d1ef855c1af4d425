package agent_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbxark/voiceform/agent"
	"github.com/tbxark/voiceform/oracle"
	"github.com/tbxark/voiceform/session"
	"github.com/tbxark/voiceform/types"
)

// fakeOracle scripts Decide responses and counts calls.
type fakeOracle struct {
	decide func(req *oracle.Request) (*oracle.Decision, error)
	calls  int
}

func (f *fakeOracle) Decide(_ context.Context, req *oracle.Request) (*oracle.Decision, error) {
	f.calls++
	if f.decide == nil {
		return nil, errors.New("unscripted oracle call")
	}
	return f.decide(req)
}

func strPtr(s string) *string { return &s }

func testForm() *types.FormSchema {
	min, max := 1.0, 10.0
	return &types.FormSchema{
		ID:    "registration",
		Title: "Registration",
		Fields: []types.FieldDefinition{
			{Name: "full_name", Kind: types.KindShortText, Label: "Full Name", Required: true, Order: 1},
			{Name: "email", Kind: types.KindEmail, Label: "Email Address", Required: true, Order: 2},
			{Name: "experience", Kind: types.KindNumericScale, Label: "Experience", Min: &min, Max: &max, Order: 3},
		},
	}
}

func newTestFlow(t *testing.T, orc oracle.Oracle) (*agent.Flow, *session.Registry) {
	t.Helper()
	registry := session.NewRegistry(session.WithEvictionInterval(0))
	t.Cleanup(registry.Close)
	return agent.NewFlow(registry, orc), registry
}

func answersOracle(updates map[string]*string) *fakeOracle {
	return &fakeOracle{decide: func(*oracle.Request) (*oracle.Decision, error) {
		return &oracle.Decision{Action: "set", Updates: updates}, nil
	}}
}

func TestStart_AsksFirstField(t *testing.T) {
	flow, _ := newTestFlow(t, &fakeOracle{})
	result, err := flow.Start("s1", testForm())
	require.NoError(t, err)
	assert.Equal(t, "s1", result.SessionID)
	assert.False(t, result.Complete)
	assert.Contains(t, result.NextQuestion, "full name")

	snap, found := flow.Info("s1")
	require.True(t, found)
	assert.True(t, snap.Started)
	assert.Equal(t, "full_name", snap.CurrentField)
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, types.RoleSystem, snap.Messages[0].Role)
	assert.Equal(t, types.RoleAgent, snap.Messages[1].Role)
}

func TestStart_RejectsBrokenSchema(t *testing.T) {
	flow, registry := newTestFlow(t, &fakeOracle{})
	_, err := flow.Start("s1", &types.FormSchema{ID: "empty"})
	require.ErrorIs(t, err, agent.ErrSchema)
	assert.Equal(t, 0, registry.Len(), "no session is created for a broken schema")

	dup := testForm()
	dup.Fields = append(dup.Fields, dup.Fields[0])
	_, err = flow.Start("s1", dup)
	assert.ErrorIs(t, err, agent.ErrSchema)
}

func TestTurn_FirstTurnSkipsOracle(t *testing.T) {
	orc := &fakeOracle{}
	flow, _ := newTestFlow(t, orc)

	resp, err := flow.Turn(context.Background(), "s1", testForm(), "hi there")
	require.NoError(t, err)
	assert.Equal(t, 0, orc.calls, "first turn never consults the oracle")
	assert.Equal(t, types.ActionAsk, resp.Action.Kind())
	assert.Contains(t, resp.Reply, "full name")
	assert.False(t, resp.Complete)
}

func TestTurn_AnswerCommitsValidatedValue(t *testing.T) {
	orc := answersOracle(map[string]*string{"full_name": strPtr("my name is om patel")})
	flow, _ := newTestFlow(t, orc)
	form := testForm()
	_, err := flow.Start("s1", form)
	require.NoError(t, err)

	resp, err := flow.Turn(context.Background(), "s1", form, "my name is om patel")
	require.NoError(t, err)
	assert.Equal(t, 1, orc.calls)
	assert.Equal(t, types.ActionSet, resp.Action.Kind())
	assert.Equal(t, "Om Patel", resp.FormState["full_name"])
	assert.Contains(t, resp.Reply, "email", "moves on to the next pending field")

	snap, _ := flow.Info("s1")
	assert.Equal(t, "email", snap.CurrentField)
	assert.Equal(t, types.StatusCollected, snap.Fields["full_name"].Status)
}

func TestTurn_UnknownFieldDroppedSilently(t *testing.T) {
	orc := answersOracle(map[string]*string{
		"full_name":      strPtr("Om Patel"),
		"favorite_color": strPtr("teal"),
	})
	flow, _ := newTestFlow(t, orc)
	form := testForm()
	_, _ = flow.Start("s1", form)

	resp, err := flow.Turn(context.Background(), "s1", form, "Om Patel and I like teal")
	require.NoError(t, err)
	assert.Equal(t, "Om Patel", resp.FormState["full_name"])
	assert.NotContains(t, resp.FormState, "favorite_color")
	assert.NotContains(t, resp.Reply, "favorite_color")
}

func TestTurn_FirstInvalidRejectsWholeBatch(t *testing.T) {
	orc := answersOracle(map[string]*string{
		"full_name": strPtr("1234"),
		"email":     strPtr("valid@example.com"),
	})
	flow, _ := newTestFlow(t, orc)
	form := testForm()
	_, _ = flow.Start("s1", form)

	resp, err := flow.Turn(context.Background(), "s1", form, "1234 and valid@example.com")
	require.NoError(t, err)
	assert.Equal(t, types.ActionAsk, resp.Action.Kind())
	assert.Empty(t, resp.FormState, "nothing commits when the first field fails")
	assert.Contains(t, resp.Reply, "try again")

	snap, _ := flow.Info("s1")
	assert.Equal(t, types.StatusInvalid, snap.Fields["full_name"].Status)
	assert.Equal(t, 1, snap.Fields["full_name"].Attempts)
}

func TestTurn_RepeatedFailuresSoftenReask(t *testing.T) {
	orc := answersOracle(map[string]*string{"email": strPtr("not an email")})
	flow, _ := newTestFlow(t, orc)
	form := testForm()
	_, _ = flow.Start("s1", form)

	var resp *agent.Response
	var err error
	for i := 0; i < 3; i++ {
		resp, err = flow.Turn(context.Background(), "s1", form, "not an email")
		require.NoError(t, err)
	}
	assert.Contains(t, resp.Reply, "No worries")
}

func TestTurn_SkipRequiredFieldIsRefused(t *testing.T) {
	orc := &fakeOracle{}
	flow, _ := newTestFlow(t, orc)
	form := testForm()
	_, _ = flow.Start("s1", form)

	resp, err := flow.Turn(context.Background(), "s1", form, "skip")
	require.NoError(t, err)
	assert.Equal(t, 0, orc.calls, "skip resolves locally")
	assert.Equal(t, types.ActionAsk, resp.Action.Kind())
	assert.Contains(t, resp.Reply, "I do need your full name")

	snap, _ := flow.Info("s1")
	assert.Equal(t, types.StatusPending, snap.Fields["full_name"].Status)
	assert.Equal(t, "full_name", snap.CurrentField)
}

func TestTurn_SkipOptionalFieldMovesOn(t *testing.T) {
	orc := &fakeOracle{}
	flow, _ := newTestFlow(t, orc)
	form := testForm()
	_, _ = flow.Start("s1", form)

	resp, err := flow.Turn(context.Background(), "s1", form, "skip the experience")
	require.NoError(t, err)
	assert.Equal(t, types.ActionAsk, resp.Action.Kind())
	assert.Contains(t, resp.Reply, "No problem")

	snap, _ := flow.Info("s1")
	assert.Equal(t, types.StatusSkipped, snap.Fields["experience"].Status)
}

func TestTurn_OracleFailureKeepsFocus(t *testing.T) {
	orc := &fakeOracle{decide: func(*oracle.Request) (*oracle.Decision, error) {
		return nil, errors.New("upstream unavailable")
	}}
	flow, _ := newTestFlow(t, orc)
	form := testForm()
	_, _ = flow.Start("s1", form)

	resp, err := flow.Turn(context.Background(), "s1", form, "Om Patel")
	require.NoError(t, err, "oracle failure degrades, it does not abort the turn")
	assert.Equal(t, types.ActionError, resp.Action.Kind())
	assert.Contains(t, resp.Reply, "Sorry")
	assert.Contains(t, resp.Reply, "full name", "the current question is repeated")
	assert.Empty(t, resp.FormState)

	snap, _ := flow.Info("s1")
	assert.Equal(t, "full_name", snap.CurrentField)
}

func TestTurn_OracleFailureWithoutFocusApologizesCleanly(t *testing.T) {
	form := &types.FormSchema{
		ID: "single",
		Fields: []types.FieldDefinition{
			{Name: "full_name", Kind: types.KindShortText, Label: "Full Name", Required: true, Order: 1},
		},
	}
	orc := answersOracle(map[string]*string{"full_name": strPtr("Om Patel")})
	flow, _ := newTestFlow(t, orc)
	_, _ = flow.Start("s1", form)

	resp, err := flow.Turn(context.Background(), "s1", form, "Om Patel")
	require.NoError(t, err)
	require.True(t, resp.Complete)

	snap, _ := flow.Info("s1")
	require.Empty(t, snap.CurrentField)

	// With no field in focus there is no question to repeat; the apology
	// must stand alone rather than trail off into a dangling prompt.
	orc.decide = func(*oracle.Request) (*oracle.Decision, error) {
		return nil, errors.New("upstream unavailable")
	}
	resp, err = flow.Turn(context.Background(), "s1", form, "one more thing")
	require.NoError(t, err)
	assert.Equal(t, types.ActionError, resp.Action.Kind())
	assert.Equal(t, "Sorry, I ran into a problem understanding that. Could you say it again?", resp.Reply)
}

func TestTurn_HistoryWindowKeepsPreamble(t *testing.T) {
	var captured [][]types.Message
	orc := &fakeOracle{decide: func(req *oracle.Request) (*oracle.Decision, error) {
		captured = append(captured, req.History)
		return &oracle.Decision{Action: "ask", Ask: "Could you spell that out?"}, nil
	}}
	registry := session.NewRegistry(session.WithEvictionInterval(0))
	t.Cleanup(registry.Close)
	flow := agent.NewFlow(registry, orc, agent.WithHistoryWindow(2))
	form := testForm()
	_, _ = flow.Start("s1", form)

	for i := 0; i < 4; i++ {
		_, err := flow.Turn(context.Background(), "s1", form, fmt.Sprintf("attempt %d", i))
		require.NoError(t, err)
	}

	require.NotEmpty(t, captured)
	last := captured[len(captured)-1]
	require.NotEmpty(t, last)
	assert.Equal(t, types.RoleSystem, last[0].Role, "the opening context survives trimming")

	nonSystem := 0
	for _, msg := range last {
		if msg.Role != types.RoleSystem {
			nonSystem++
		}
	}
	assert.LessOrEqual(t, nonSystem, 2)
}

func TestTurn_CompletionWinsOverOracleAsk(t *testing.T) {
	orc := &fakeOracle{decide: func(*oracle.Request) (*oracle.Decision, error) {
		return &oracle.Decision{
			Action:  "ask",
			Updates: map[string]*string{"email": strPtr("om@example.com")},
			Ask:     "Anything else?",
		}, nil
	}}
	flow, _ := newTestFlow(t, orc)
	form := testForm()
	_, _ = flow.Start("s1", form)

	orc.decide = func(*oracle.Request) (*oracle.Decision, error) {
		return &oracle.Decision{Action: "set", Updates: map[string]*string{"full_name": strPtr("Om Patel")}}, nil
	}
	_, err := flow.Turn(context.Background(), "s1", form, "Om Patel")
	require.NoError(t, err)
	_, err = flow.Turn(context.Background(), "s1", form, "skip the experience")
	require.NoError(t, err)

	orc.decide = func(*oracle.Request) (*oracle.Decision, error) {
		return &oracle.Decision{
			Action:  "ask",
			Updates: map[string]*string{"email": strPtr("om@example.com")},
			Ask:     "Anything else?",
		}, nil
	}
	resp, err := flow.Turn(context.Background(), "s1", form, "om@example.com")
	require.NoError(t, err)
	assert.Equal(t, types.ActionDone, resp.Action.Kind(), "all required fields collected forces completion")
	assert.True(t, resp.Complete)
	assert.Contains(t, resp.Reply, "Thank you for your response!")

	snap, _ := flow.Info("s1")
	assert.True(t, snap.Completed)
	assert.Empty(t, snap.CurrentField)
}

func TestTurn_CorrectionBypassesOracle(t *testing.T) {
	orc := answersOracle(map[string]*string{"email": strPtr("old@example.com")})
	flow, _ := newTestFlow(t, orc)
	form := testForm()
	_, _ = flow.Start("s1", form)
	_, err := flow.Turn(context.Background(), "s1", form, "old@example.com")
	require.NoError(t, err)
	callsBefore := orc.calls

	resp, err := flow.Turn(context.Background(), "s1", form, "fix my email to new@example.com")
	require.NoError(t, err)
	assert.Equal(t, callsBefore, orc.calls, "identified corrections resolve locally")
	assert.Equal(t, types.ActionCorrect, resp.Action.Kind())
	assert.Equal(t, "new@example.com", resp.FormState["email"])
	assert.Contains(t, resp.Reply, "Updated your email address")
}

func TestTurn_CorrectionMovesFocusToNextPendingField(t *testing.T) {
	orc := answersOracle(map[string]*string{"email": strPtr("old@example.com")})
	flow, _ := newTestFlow(t, orc)
	form := testForm()
	_, _ = flow.Start("s1", form)
	_, err := flow.Turn(context.Background(), "s1", form, "old@example.com")
	require.NoError(t, err)

	resp, err := flow.Turn(context.Background(), "s1", form, "fix my email to new@example.com")
	require.NoError(t, err)
	assert.Equal(t, types.ActionCorrect, resp.Action.Kind())
	assert.Contains(t, resp.Reply, "full name", "the next pending question rides along")

	snap, _ := flow.Info("s1")
	assert.Equal(t, "full_name", snap.CurrentField, "focus follows the question, not the corrected field")

	// A bare skip after the correction must target the field being asked,
	// not the field that was just corrected.
	resp, err = flow.Turn(context.Background(), "s1", form, "skip")
	require.NoError(t, err)
	assert.Equal(t, types.ActionAsk, resp.Action.Kind())
	assert.Contains(t, resp.Reply, "full name")
	assert.NotContains(t, resp.Reply, "email")

	snap, _ = flow.Info("s1")
	assert.Equal(t, types.StatusCollected, snap.Fields["email"].Status)
	assert.Equal(t, "new@example.com", *snap.Fields["email"].Value)
}

func TestTurn_CorrectionWithInvalidValueReasks(t *testing.T) {
	orc := &fakeOracle{}
	flow, _ := newTestFlow(t, orc)
	form := testForm()
	_, _ = flow.Start("s1", form)

	resp, err := flow.Turn(context.Background(), "s1", form, "change my email to not-an-address")
	require.NoError(t, err)
	assert.Equal(t, types.ActionAsk, resp.Action.Kind())
	assert.NotContains(t, resp.FormState, "email")
}

func TestTurn_RemovalClearsField(t *testing.T) {
	orc := answersOracle(map[string]*string{"email": strPtr("om@example.com")})
	flow, _ := newTestFlow(t, orc)
	form := testForm()
	_, _ = flow.Start("s1", form)
	_, err := flow.Turn(context.Background(), "s1", form, "om@example.com")
	require.NoError(t, err)

	resp, err := flow.Turn(context.Background(), "s1", form, "remove my email")
	require.NoError(t, err)
	assert.Equal(t, types.ActionRemove, resp.Action.Kind())
	assert.NotContains(t, resp.FormState, "email")
	assert.False(t, resp.Complete)

	snap, _ := flow.Info("s1")
	assert.Equal(t, types.StatusPending, snap.Fields["email"].Status)
}

func TestTurn_PasswordNeverEchoed(t *testing.T) {
	form := &types.FormSchema{
		ID: "secure",
		Fields: []types.FieldDefinition{
			{Name: "password", Kind: types.KindPassword, Label: "Password", Required: true, Order: 1},
			{Name: "email", Kind: types.KindEmail, Label: "Email", Required: true, Order: 2},
		},
	}
	orc := &fakeOracle{}
	flow, _ := newTestFlow(t, orc)
	_, _ = flow.Start("s1", form)

	resp, err := flow.Turn(context.Background(), "s1", form, "update my password to hunter22")
	require.NoError(t, err)
	assert.Equal(t, types.ActionCorrect, resp.Action.Kind())
	assert.NotContains(t, resp.Reply, "hunter22")
	assert.Contains(t, resp.Reply, "********")
}

func TestResetAndInfo(t *testing.T) {
	flow, _ := newTestFlow(t, &fakeOracle{})
	_, _ = flow.Start("s1", testForm())

	assert.True(t, flow.Reset("s1"))
	assert.False(t, flow.Reset("s1"))
	_, found := flow.Info("s1")
	assert.False(t, found)
}

// Random mix of answers, skips, and removals must keep the completion
// invariant: complete exactly when every required field is collected.
func TestTurn_CompletionInvariantUnderRandomSequence(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	form := testForm()

	for run := 0; run < 20; run++ {
		var scripted *oracle.Decision
		orc := &fakeOracle{decide: func(*oracle.Request) (*oracle.Decision, error) {
			return scripted, nil
		}}
		flow, _ := newTestFlow(t, orc)
		id := fmt.Sprintf("s%d", run)
		_, err := flow.Start(id, form)
		require.NoError(t, err)

		values := map[string]string{
			"full_name":  "Om Patel",
			"email":      "om@example.com",
			"experience": "7",
		}
		for turn := 0; turn < 12; turn++ {
			field := form.Fields[rng.Intn(len(form.Fields))]
			var resp *agent.Response
			switch rng.Intn(3) {
			case 0: // answer via oracle
				v := values[field.Name]
				scripted = &oracle.Decision{Action: "set", Updates: map[string]*string{field.Name: &v}}
				resp, err = flow.Turn(context.Background(), id, form, v)
			case 1: // removal
				resp, err = flow.Turn(context.Background(), id, form, "remove my "+field.Name)
			default: // skip
				resp, err = flow.Turn(context.Background(), id, form, "skip the "+field.Name)
			}
			require.NoError(t, err)

			snap, found := flow.Info(id)
			require.True(t, found)
			allRequired := true
			for _, f := range form.Fields {
				if f.Required && snap.Fields[f.Name].Status != types.StatusCollected {
					allRequired = false
				}
			}
			assert.Equal(t, allRequired, resp.Complete,
				"run %d turn %d: completion must track required fields exactly", run, turn)
		}
	}
}
