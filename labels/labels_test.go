package labels

import (
	"reflect"
	"testing"

	"github.com/spf13/afero"
)

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := "_silence_\n_unknown_\nyes\n\n  no \r\ngo\n"
	if err := afero.WriteFile(fs, "labels.txt", []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := Load(fs, "labels.txt")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	want := []string{"_silence_", "_unknown_", "yes", "no", "go"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load() = %v, want %v", got, want)
	}
}

func TestLoadErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "empty.txt", []byte("\n \n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(fs, "missing.txt"); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Load(fs, "empty.txt"); err == nil {
		t.Error("expected error for empty file")
	}
}

func TestDisplayed(t *testing.T) {
	got := Displayed([]string{"_silence_", "_unknown_", "yes", "no", "stop"})
	want := []string{"Yes", "No", "Stop"}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("Displayed() = %v, want %v", got, want)
	}
}
