package badges

import (
	"errors"
	"testing"
)

func TestSelectVersion_HighestStable(t *testing.T) {
	got, err := SelectVersion([]string{"1.0.0", "1.2.0", "1.1.0"}, Filters{})
	if err != nil {
		t.Fatalf("SelectVersion() error = %v", err)
	}
	if got != "1.2.0" {
		t.Errorf("got %q, want 1.2.0", got)
	}
}

func TestSelectVersion_ExcludesPrereleaseByDefault(t *testing.T) {
	got, err := SelectVersion([]string{"1.0.0", "2.0.0-beta.1"}, Filters{})
	if err != nil {
		t.Fatalf("SelectVersion() error = %v", err)
	}
	if got != "1.0.0" {
		t.Errorf("got %q, want 1.0.0", got)
	}
}

func TestSelectVersion_IncludesPrereleaseWhenRequested(t *testing.T) {
	got, err := SelectVersion([]string{"1.0.0", "2.0.0-beta.1"}, Filters{Prerelease: true})
	if err != nil {
		t.Fatalf("SelectVersion() error = %v", err)
	}
	if got != "2.0.0-beta.1" {
		t.Errorf("got %q, want 2.0.0-beta.1", got)
	}
}

func TestSelectVersion_ComparatorFilters(t *testing.T) {
	got, err := SelectVersion([]string{"1.0.0", "1.5.0", "2.0.0", "3.0.0"}, Filters{GTE: "1.5.0", LT: "3.0.0"})
	if err != nil {
		t.Fatalf("SelectVersion() error = %v", err)
	}
	if got != "2.0.0" {
		t.Errorf("got %q, want 2.0.0", got)
	}
}

func TestSelectVersion_NoneRemainingIsNotFound(t *testing.T) {
	_, err := SelectVersion([]string{"1.0.0"}, Filters{GT: "2.0.0"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSelectVersion_SkipsUnparsableVersions(t *testing.T) {
	got, err := SelectVersion([]string{"not-a-version", "1.0.0"}, Filters{})
	if err != nil {
		t.Fatalf("SelectVersion() error = %v", err)
	}
	if got != "1.0.0" {
		t.Errorf("got %q, want 1.0.0", got)
	}
}
