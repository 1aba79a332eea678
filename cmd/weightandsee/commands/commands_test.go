package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weightandsee/core/internal/domain/entities"
)

func run(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_OUTPUT", "stderr")

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--data-dir", dataDir}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func TestListCreatesDefaults(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "list")
	require.NoError(t, err)

	assert.Contains(t, out, "Bench Press")
	assert.Contains(t, out, "Squat")
	_, err = os.Stat(filepath.Join(dir, "exercises.json"))
	assert.NoError(t, err)
}

func TestAddUpdateShow(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, dir, "add", "Lunge", "--muscle-group", "Legs", "--value", "20", "--unit", "kg", "--sets", "3", "--reps", "12")
	require.NoError(t, err)

	_, err = run(t, dir, "update", "Lunge", "--value", "22.5", "--unit", "kg", "--sets", "3", "--reps", "10")
	require.NoError(t, err)

	out, err := run(t, dir, "show", "Lunge")
	require.NoError(t, err)

	var ex entities.Exercise
	require.NoError(t, json.Unmarshal([]byte(out), &ex))
	assert.Equal(t, 22.5, ex.CurrentValue)
	assert.Equal(t, 10, ex.Repetitions)
	assert.Len(t, ex.History, 2)

	out, err = run(t, dir, "history", "Lunge")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 3, "header plus two entries")
	assert.Contains(t, lines[2], "22.5")
}

func TestRemoveEntryAndRemove(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, dir, "remove-entry", "Squat", "1")
	require.NoError(t, err)

	out, err := run(t, dir, "show", "Squat")
	require.NoError(t, err)
	assert.Contains(t, out, `"currentValue": 100`)

	_, err = run(t, dir, "remove-entry", "Squat", "5")
	assert.ErrorIs(t, err, entities.ErrHistoryIndexOutOfRange)

	_, err = run(t, dir, "remove-entry", "Squat", "x")
	assert.Error(t, err)

	_, err = run(t, dir, "remove", "Squat")
	require.NoError(t, err)

	_, err = run(t, dir, "show", "Squat")
	assert.ErrorIs(t, err, entities.ErrExerciseNotFound)

	_, err = run(t, dir, "remove", "Squat")
	assert.ErrorIs(t, err, entities.ErrExerciseNotFound)
}

func TestAddRejectsInvalidInput(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, dir, "add", "Lunge", "--sets", "-2")
	assert.Error(t, err)

	_, err = run(t, dir, "add")
	assert.Error(t, err)

	_, err = run(t, dir, "add", "Lunge", "--value", "NaN")
	assert.ErrorIs(t, err, entities.ErrInvalidMeasurement)

	_, err = run(t, dir, "update", "Squat", "--value", "+Inf")
	assert.ErrorIs(t, err, entities.ErrInvalidMeasurement)

	out, err := run(t, dir, "show", "Squat")
	require.NoError(t, err)
	assert.Contains(t, out, `"currentValue": 110`)
}

func TestResetClearExportImport(t *testing.T) {
	dir := t.TempDir()
	backup := filepath.Join(t.TempDir(), "backup.json")

	out, err := run(t, dir, "reset", "--sample")
	require.NoError(t, err)
	assert.Contains(t, out, "Romanian Deadlift")

	_, err = run(t, dir, "export", backup)
	require.NoError(t, err)

	out, err = run(t, dir, "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted")

	out, err = run(t, dir, "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "Squat")

	out, err = run(t, dir, "import", backup)
	require.NoError(t, err)
	assert.Contains(t, out, "Romanian Deadlift")

	out, err = run(t, dir, "reset")
	require.NoError(t, err)
	assert.NotContains(t, out, "Romanian Deadlift")

	_, err = run(t, dir, "import", filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, entities.ErrImportFailed)
}

func TestPathAndVersion(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "exercises.json"), strings.TrimSpace(out))

	out, err = run(t, dir, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "WeightAndSee")
}
