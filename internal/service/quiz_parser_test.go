package service

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleBank = `
# Fire safety
? What extinguishes an electrical fire? | AgACAgIAAx
+ CO2 extinguisher
- Water
- Foam

? Where is the assembly point marked?
- On the roof
+ On the site plan

# Electrical
? Who may open a switchboard?
+ An authorised electrician
`

func TestReadQuestionBank(t *testing.T) {
	categories, err := ReadQuestionBank(strings.NewReader(sampleBank))
	require.NoError(t, err)
	require.Len(t, categories, 2)

	fire := categories[0]
	require.Equal(t, "Fire safety", fire.Name)
	require.Len(t, fire.Questions, 2)
	require.Equal(t, "What extinguishes an electrical fire?", fire.Questions[0].Text)
	require.Equal(t, "AgACAgIAAx", fire.Questions[0].Media)
	require.Len(t, fire.Questions[0].Options, 3)
	require.True(t, fire.Questions[0].Options[0].IsCorrect)
	require.Empty(t, fire.Questions[1].Media)

	require.Equal(t, "Electrical", categories[1].Name)
	require.Len(t, categories[1].Questions, 1)
}

func TestReadQuestionBankErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "empty", input: "\n\n", wantErr: "no valid categories"},
		{name: "question outside category", input: "? Q\n+ A\n", wantErr: "line 1"},
		{name: "option without question", input: "# C\n+ A\n", wantErr: "line 2"},
		{name: "no correct option", input: "# C\n? Q\n- A\n- B\n", wantErr: "exactly one correct"},
		{name: "two correct options", input: "# C\n? Q\n+ A\n+ B\n", wantErr: "exactly one correct"},
		{name: "too many options", input: "# C\n? Q\n+ A\n- B\n- C\n- D\n- E\n", wantErr: "1..4 options"},
		{name: "unknown marker", input: "# C\n! nope\n", wantErr: "unknown marker"},
		{name: "empty category name", input: "#\n", wantErr: "category name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadQuestionBank(strings.NewReader(tt.input))
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadQuestionBankFallsBackToDefault(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	categories := LoadQuestionBank(filepath.Join(t.TempDir(), "missing.txt"), logger)
	require.Equal(t, DefaultQuestionBank(), categories)
}

func TestLoadQuestionBankFromFile(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	path := filepath.Join(t.TempDir(), "questions.txt")
	require.NoError(t, os.WriteFile(path, []byte(sampleBank), 0o600))

	categories := LoadQuestionBank(path, logger)
	require.Len(t, categories, 2)
}

func TestDefaultQuestionBankIsValid(t *testing.T) {
	for _, category := range DefaultQuestionBank() {
		for _, question := range category.Questions {
			require.NoError(t, validateQuestion(question), question.Text)
		}
	}
}
