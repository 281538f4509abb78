package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandroruanova/outage-analytics-service/internal/core/domain"
	apperrors "github.com/alejandroruanova/outage-analytics-service/internal/pkg/errors"
	"github.com/alejandroruanova/outage-analytics-service/internal/pkg/logger"
)

// fakeCompleter records requests and replies with a fixed answer.
type fakeCompleter struct {
	requests []CompletionRequest
	reply    string
	err      error
}

func (f *fakeCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func outages(n int) []domain.Outage {
	out := make([]domain.Outage, n)
	for i := range out {
		d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
		out[i] = domain.Outage{
			Concession: "JAURU",
			OccurredAt: &d,
			LineID:     fmt.Sprintf("LT %d", i),
			Cause:      "DAT",
			Phase:      "AN",
		}
	}
	return out
}

func TestBuildContext_Small(t *testing.T) {
	dc := BuildContext(outages(2), 0)

	assert.Equal(t, []string{"Concessão", "Data", "FT", "Causa", "Fase"}, dc.Columns)
	assert.Empty(t, dc.Note)
	assert.Equal(t, 2, dc.Rows)

	lines := strings.Split(strings.TrimSpace(dc.Markdown), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "| Concessão | Data | FT | Causa | Fase |", lines[0])
	assert.Equal(t, "| :--- | :--- | :--- | :--- | :--- |", lines[1])
	assert.Equal(t, "| JAURU | 2024-01-01 | LT 0 | DAT | AN |", lines[2])
	assert.Equal(t, len(dc.Markdown)/4+300, dc.EstimatedTokens)
}

func TestBuildContext_SamplesHeadAndTail(t *testing.T) {
	dc := BuildContext(outages(1000), 400)

	assert.Equal(t, 400, dc.Rows)
	assert.Equal(t, 1000, dc.TotalRows)
	assert.Equal(t, "(Nota: Exibindo amostra de 400 linhas de um total de 1000).", dc.Note)
	assert.Contains(t, dc.Markdown, "| LT 199 |")
	assert.Contains(t, dc.Markdown, "| LT 800 |")
	assert.NotContains(t, dc.Markdown, "| LT 200 |")
	assert.NotContains(t, dc.Markdown, "| LT 799 |")
}

func TestBuildContext_EscapesPipes(t *testing.T) {
	dc := BuildContext([]domain.Outage{{Concession: "A|B"}}, 10)
	assert.Contains(t, dc.Markdown, `| A\|B |`)
}

func TestSystemPrompt(t *testing.T) {
	dc := &DataContext{Note: "(Nota: x).", Markdown: "| a |\n"}
	prompt := SystemPrompt(dc)
	assert.Contains(t, prompt, "especialista em análise de desligamentos")
	assert.Contains(t, prompt, "(Nota: x).")
	assert.Contains(t, prompt, "### DADOS:\n| a |")
	assert.Contains(t, prompt, "Sempre cite a 'Fase' e a 'Causa'")
}

func TestConversation_Ask(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC))
	domain.SetClock(fake)
	t.Cleanup(func() { domain.SetClock(nil) })

	completer := &fakeCompleter{reply: "Foram 3 desligamentos."}
	conv := NewConversation(ModelGPT4o)

	answer, err := conv.Ask(context.Background(), completer, "SYS", "Quantos?")
	require.NoError(t, err)
	assert.Equal(t, "Foram 3 desligamentos.", answer)

	_, err = conv.Ask(context.Background(), completer, "SYS", "E em 2024?")
	require.NoError(t, err)

	require.Len(t, completer.requests, 2)
	second := completer.requests[1]
	assert.Equal(t, ModelGPT4o, second.Model)
	assert.Equal(t, 0.0, second.Temperature)
	require.Len(t, second.Messages, 4)
	assert.Equal(t, RoleSystem, second.Messages[0].Role)
	assert.Equal(t, "SYS", second.Messages[0].Content)
	assert.Equal(t, "Quantos?", second.Messages[1].Content)
	assert.Equal(t, RoleAssistant, second.Messages[2].Role)
	assert.Equal(t, "E em 2024?", second.Messages[3].Content)

	assert.Len(t, conv.History, 4)
	assert.Equal(t, fake.Now(), conv.UpdatedAt)

	conv.Reset()
	assert.Empty(t, conv.History)
}

func TestConversation_AskFailure(t *testing.T) {
	conv := NewConversation(ModelGPT4oMini)

	_, err := conv.Ask(context.Background(), &fakeCompleter{err: errors.New("timeout")}, "SYS", "Oi")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeLLMRequestFailed))
	assert.Len(t, conv.History, 1)

	_, err = conv.Ask(context.Background(), nil, "SYS", "Oi")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeLLMNotConfigured))

	_, err = conv.Ask(context.Background(), &fakeCompleter{}, "SYS", "   ")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))
}

func TestValidateModel(t *testing.T) {
	assert.NoError(t, ValidateModel("gpt-4o", DefaultModels))
	assert.True(t, apperrors.HasCode(ValidateModel("gpt-3.5", DefaultModels), apperrors.ErrCodeInvalidInput))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	conv := NewConversation(ModelGPT4o)
	conv.History = append(conv.History, Message{Role: RoleUser, Content: "oi"})
	require.NoError(t, store.Save(ctx, conv))

	// Mutating the caller's copy does not leak into the store.
	conv.History[0].Content = "mudou"

	got, err := store.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "oi", got.History[0].Content)

	require.NoError(t, store.Delete(ctx, conv.ID))
	_, err = store.Get(ctx, conv.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeRecordNotFound))
}

func TestService_Ask(t *testing.T) {
	ctx := context.Background()
	completer := &fakeCompleter{reply: "ok"}
	svc := NewService(completer, nil, Config{}, logger.Discard())

	first, err := svc.Ask(ctx, outages(3), Question{Text: "Quantos?"})
	require.NoError(t, err)
	assert.Equal(t, ModelGPT4oMini, first.Model)
	assert.NotEqual(t, uuid.Nil, first.SessionID)
	assert.Equal(t, 3, first.Context.Rows)

	second, err := svc.Ask(ctx, outages(3), Question{SessionID: first.SessionID, Model: ModelGPT4o, Text: "E?"})
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Len(t, second.History, 4)
	assert.Contains(t, completer.requests[1].Messages[0].Content, "| JAURU |")

	require.NoError(t, svc.Reset(ctx, first.SessionID))
	conv, err := svc.History(ctx, first.SessionID)
	require.NoError(t, err)
	assert.Empty(t, conv.History)
}

func TestService_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewService(nil, nil, Config{}, nil).Ask(ctx, nil, Question{Text: "x"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeLLMNotConfigured))

	svc := NewService(&fakeCompleter{}, nil, Config{}, logger.Discard())
	_, err = svc.Ask(ctx, nil, Question{Model: "gpt-5", Text: "x"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))

	_, err = svc.Ask(ctx, nil, Question{SessionID: uuid.New(), Text: "x"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))

	store := NewMemoryStore()
	failing := NewService(&fakeCompleter{err: errors.New("boom")}, store, Config{}, logger.Discard())
	_, err = failing.Ask(ctx, nil, Question{Text: "x"})
	appErr, ok := apperrors.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeLLMRequestFailed, appErr.Code)

	// The failed question is kept in the saved session.
	id, err := uuid.Parse(appErr.Details["session_id"].(string))
	require.NoError(t, err)
	conv, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Len(t, conv.History, 1)
}
