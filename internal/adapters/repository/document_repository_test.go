package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weightandsee/core/internal/domain/entities"
)

func sampleDoc() *entities.Document {
	doc := entities.NewDocument()
	doc.Exercises["Squat"] = entities.NewExercise("Legs", 100, "kg", 3, 5, time.Date(2024, 3, 1, 8, 0, 0, 0, time.Local))
	return doc
}

func TestDecodeCanonical(t *testing.T) {
	doc, info, err := Decode([]byte(`{"exercises": {"Plank": {"muscleGroup": "Core", "unit": "-", "history": []}}, "version": 2}`))
	require.NoError(t, err)

	assert.False(t, info.Migrated)
	require.Contains(t, doc.Exercises, "Plank")
	assert.Equal(t, "Core", doc.Exercises["Plank"].MuscleGroup)
	assert.JSONEq(t, `2`, string(doc.Meta["version"]))
}

func TestDecodeMigratesLegacyList(t *testing.T) {
	data := []byte(`{
		"exercises": [
			{"name": "Bench Press", "muscleGroup": "Chest", "currentValue": 70, "unit": "kg", "sets": 3, "repetitions": 8},
			{"muscleGroup": "Nameless"},
			{"name": "  "},
			{"name": "Plank", "muscleGroup": "Core"}
		],
		"owner": "me"
	}`)

	doc, info, err := Decode(data)
	require.NoError(t, err)

	assert.True(t, info.Migrated)
	assert.Equal(t, []string{"#1", "#2"}, info.Dropped)
	assert.Equal(t, []string{"Bench Press", "Plank"}, doc.Names())
	assert.Equal(t, 70.0, doc.Exercises["Bench Press"].CurrentValue)
	assert.JSONEq(t, `"me"`, string(doc.Meta["owner"]))
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"truncated", `{"exercises": {`, entities.ErrMalformedDocument},
		{"top-level array", `[1, 2]`, entities.ErrMalformedDocument},
		{"null", `null`, entities.ErrMalformedDocument},
		{"no container", `{"version": 1}`, entities.ErrMissingExercises},
		{"scalar container", `{"exercises": "none"}`, entities.ErrMissingExercises},
		{"empty legacy list", `{"exercises": []}`, entities.ErrMissingExercises},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode([]byte(tt.data))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEncodeIsStable(t *testing.T) {
	doc := sampleDoc()
	doc.Exercises["Bench Press"] = entities.NewExercise("Chest", 0, "", 0, 0, time.Now())

	first, err := Encode(doc)
	require.NoError(t, err)

	decoded, _, err := Decode(first)
	require.NoError(t, err)
	second, err := Encode(decoded)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.Equal(t, byte('\n'), first[len(first)-1])
}

func TestRepositorySaveAndLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "exercises.json")
	repo := NewDocumentRepository(path)

	_, _, err := repo.Load(ctx)
	require.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, repo.Save(ctx, sampleDoc()))

	loaded, _, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Squat"}, loaded.Names())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
	assert.Equal(t, "exercises.json", entries[0].Name())
}

func TestRepositoryChanged(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "exercises.json")
	repo := NewDocumentRepository(path)

	changed, err := repo.Changed(ctx)
	require.NoError(t, err)
	assert.False(t, changed, "missing and never seen")

	require.NoError(t, repo.Save(ctx, sampleDoc()))
	changed, err = repo.Changed(ctx)
	require.NoError(t, err)
	assert.False(t, changed, "own write")

	require.NoError(t, os.WriteFile(path, []byte(`{"exercises": {}}`), 0o644))
	changed, err = repo.Changed(ctx)
	require.NoError(t, err)
	assert.True(t, changed, "external edit")

	_, _, err = repo.Load(ctx)
	require.NoError(t, err)
	changed, err = repo.Changed(ctx)
	require.NoError(t, err)
	assert.False(t, changed, "after reload")

	require.NoError(t, os.Remove(path))
	changed, err = repo.Changed(ctx)
	require.NoError(t, err)
	assert.True(t, changed, "external delete")

	require.NoError(t, repo.Remove(ctx))
	changed, err = repo.Changed(ctx)
	require.NoError(t, err)
	assert.False(t, changed, "own delete")
}

func TestRepositoryExportImport(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	repo := NewDocumentRepository(filepath.Join(dir, "exercises.json"))
	target := filepath.Join(dir, "backup", "export.json")

	require.NoError(t, repo.WriteTo(ctx, "file://"+filepath.ToSlash(target), sampleDoc()))

	doc, _, err := repo.ReadFrom(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, []string{"Squat"}, doc.Names())

	_, err = os.Stat(repo.Path())
	assert.ErrorIs(t, err, os.ErrNotExist, "export must not touch the primary file")
}

func TestRepositoryReadFromMissing(t *testing.T) {
	repo := NewDocumentRepository(filepath.Join(t.TempDir(), "exercises.json"))

	_, _, err := repo.ReadFrom(context.Background(), filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestResolvePath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "/tmp/a.json", want: filepath.FromSlash("/tmp/a.json")},
		{in: "  /tmp/../tmp/a.json ", want: filepath.FromSlash("/tmp/a.json")},
		{in: "file:///tmp/a%20b.json", want: filepath.FromSlash("/tmp/a b.json")},
		{in: "file://localhost/tmp/a.json", want: filepath.FromSlash("/tmp/a.json")},
		{in: "file://remote/tmp/a.json", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ResolvePath(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
