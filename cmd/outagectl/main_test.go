package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandroruanova/outage-analytics-service/internal/infrastructure/export"
)

const outagesCSV = "Concessão;Data;FT;Causa;Fase;Torre\n" +
	"JAURU;2024-03-01;LT A;Queimada;A;Torre 05\n" +
	"JAURU;2024-04-01;LT A;Queimada;A;T5\n" +
	"JAURU;2023-05-01;LT A;Outros;B;T7\n"

const resistanceCSV = "Linha de Transmissão;Torre;Resistência\n" +
	"LT A;005;12,5\n" +
	"LT A;5;7,5\n" +
	"LT A;T7;4\n"

func isolateEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("DB_ENABLED", "false")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("LOOKUP_FILE", "")
	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCriticalityCommand_CSV(t *testing.T) {
	dir := isolateEnv(t)
	outages := writeFile(t, dir, "ocorrencias.csv", outagesCSV)
	resistance := writeFile(t, dir, "lt_torre.csv", resistanceCSV)

	out, err := execute("criticality", "--outages", outages, "--resistance", resistance, "--format", "csv")
	require.NoError(t, err)

	scores, err := export.ReadScores(bytes.NewBufferString(out))
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.InDelta(t, 20.0, scores[0].Score, 1e-9)
	assert.InDelta(t, 4.0, scores[1].Score, 1e-9)
}

func TestCriticalityCommand_UnknownFormat(t *testing.T) {
	dir := isolateEnv(t)
	outages := writeFile(t, dir, "ocorrencias.csv", outagesCSV)
	resistance := writeFile(t, dir, "lt_torre.csv", resistanceCSV)

	_, err := execute("criticality", "--outages", outages, "--resistance", resistance, "--format", "xml")
	assert.ErrorContains(t, err, "unknown format")
}

func TestCriticalityCommand_MissingWorkbook(t *testing.T) {
	isolateEnv(t)
	t.Setenv("OUTAGES_WORKBOOK", "")

	_, err := execute("criticality")
	assert.ErrorContains(t, err, "--outages is required")
}

func TestAnalyticsCommand(t *testing.T) {
	dir := isolateEnv(t)
	outages := writeFile(t, dir, "ocorrencias.csv", outagesCSV)

	out, err := execute("analytics", "--outages", outages, "--year", "2024")
	require.NoError(t, err)
	assert.Contains(t, out, `"total": 2`)
}

func TestAskCommand_NotConfigured(t *testing.T) {
	dir := isolateEnv(t)
	outages := writeFile(t, dir, "ocorrencias.csv", outagesCSV)

	_, err := execute("ask", "--outages", outages, "quais", "linhas?")
	assert.Error(t, err)
}

func TestSyncCommand_RequiresPaths(t *testing.T) {
	isolateEnv(t)
	t.Setenv("SYNC_BASE_WORKBOOK", "")
	t.Setenv("SYNC_UPDATE_WORKBOOK", "")
	t.Setenv("SYNC_OUTPUT_WORKBOOK", "")

	_, err := execute("sync")
	assert.Error(t, err)
}
