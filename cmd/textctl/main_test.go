package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/text-analyzer/internal/auth/apikey"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/internal/history"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/internal/wordfreq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, dir, historyBlock string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	content := "sentiment:\n  lexiconPath: " + filepath.Join(dir, "missing.txt") + "\n" + historyBlock
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	a := newApp()
	a.Writer = &out
	a.ErrWriter = &errOut
	err := a.Run(append([]string{"textctl"}, args...))
	return out.String(), err
}

func TestWordsCommand(t *testing.T) {
	cfg := writeConfig(t, t.TempDir(), "history:\n  driver: none\n")

	out, err := run(t, "--config", cfg, "-q", "words", "--text", "Gato, perro y gato. El gato duerme.", "--top", "2")
	require.NoError(t, err)

	var words wordfreq.Frequencies
	require.NoError(t, yaml.Unmarshal([]byte(out), &words))
	require.Len(t, words, 2)
	assert.Equal(t, wordfreq.WordCount{Word: "gato", Count: 3}, words[0])
	assert.Equal(t, "perro", words[1].Word)
}

func TestWordsCommandJSON(t *testing.T) {
	cfg := writeConfig(t, t.TempDir(), "history:\n  driver: none\n")

	out, err := run(t, "--config", cfg, "-q", "words", "--text", "sol sol luna", "--format", "json")
	require.NoError(t, err)

	var words wordfreq.Frequencies
	require.NoError(t, json.Unmarshal([]byte(out), &words))
	assert.Equal(t, wordfreq.Frequencies{{Word: "sol", Count: 2}, {Word: "luna", Count: 1}}, words)
}

func TestAnalyzeCommandFromFile(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir, "history:\n  driver: none\n")
	file := filepath.Join(dir, "notas.txt")
	require.NoError(t, os.WriteFile(file, []byte("\xef\xbb\xbfEl río corre y el río canta."), 0o600))

	out, err := run(t, "--config", cfg, "-q", "analyze", "--file", file)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "# Vista previa del texto:\n# El río corre"))

	var report struct {
		Tone     string               `yaml:"tone"`
		TopWords wordfreq.Frequencies `yaml:"top_words"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &report))
	assert.Equal(t, "neutral", report.Tone)
	require.NotEmpty(t, report.TopWords)
	assert.Equal(t, wordfreq.WordCount{Word: "río", Count: 2}, report.TopWords[0])
}

func TestAnalyzeCommandEmptyText(t *testing.T) {
	cfg := writeConfig(t, t.TempDir(), "history:\n  driver: none\n")

	_, err := run(t, "--config", cfg, "-q", "analyze", "--text", "   ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty text")
}

func TestAnalyzeRejectsBothInputs(t *testing.T) {
	cfg := writeConfig(t, t.TempDir(), "history:\n  driver: none\n")

	_, err := run(t, "--config", cfg, "-q", "analyze", "--text", "hola", "--file", "x.txt")
	assert.Error(t, err)
}

func TestAnalyzeSaveThenHistory(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "history.db")
	cfg := writeConfig(t, dir, "history:\n  driver: sqlite\n  sqlitePath: "+db+"\n")

	_, err := run(t, "--config", cfg, "-q", "analyze", "--save", "--text", "La casa es azul")
	require.NoError(t, err)

	out, err := run(t, "--config", cfg, "-q", "history", "--format", "json")
	require.NoError(t, err)

	var records []history.Record
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "La casa es azul", records[0].Preview)
}

func TestHistoryDisabled(t *testing.T) {
	cfg := writeConfig(t, t.TempDir(), "history:\n  driver: none\n")

	_, err := run(t, "--config", cfg, "-q", "history")
	assert.Error(t, err)
}

func TestStopwordsCommand(t *testing.T) {
	out, err := run(t, "stopwords")
	require.NoError(t, err)
	assert.Contains(t, strings.Split(out, "\n"), "el")
}

func TestKeygenCommand(t *testing.T) {
	out, err := run(t, "keygen")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	raw := strings.TrimSpace(strings.TrimPrefix(lines[0], "key:"))
	hash := strings.TrimSpace(strings.TrimPrefix(lines[1], "sha256:"))
	assert.Equal(t, apikey.HashKey(raw), hash)
}
