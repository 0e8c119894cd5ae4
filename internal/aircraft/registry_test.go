package aircraft

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// ─── Helpers ─────────────────────────────────────────────────────────

func writeProfile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", name, err)
	}
}

const trainerProfile = `
name: trainer-autostart
ownship: [L-39C, L-39ZA]
switches:
  battery: {device: 1, command: 3001, argument: 10, kind: toggle}
steps:
  - name: cold_dark
    until: {event: start}
    then:
      - confirm: true
        ops: [{set: [battery]}]
`

// ─── Tests ───────────────────────────────────────────────────────────

func TestRegistryEmbeddedOnly(t *testing.T) {
	r := NewRegistry()
	if err := r.Load(""); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	for _, ownship := range []string{"MiG-21Bis", "F-16C_50"} {
		p, err := r.Lookup(ownship)
		if err != nil {
			t.Errorf("Lookup(%s) error = %v", ownship, err)
			continue
		}
		if p.Source == "" {
			t.Errorf("Lookup(%s).Source is empty", ownship)
		}
	}

	if got := len(r.List()); got != 2 {
		t.Errorf("len(List()) = %d, want 2", got)
	}
}

func TestRegistryUnsupportedAircraft(t *testing.T) {
	r := NewRegistry()
	if err := r.Load(""); err != nil {
		t.Fatal(err)
	}

	if _, err := r.Lookup("A-10C"); !errors.Is(err, ErrUnsupportedAircraft) {
		t.Errorf("Lookup() error = %v, want ErrUnsupportedAircraft", err)
	}
	if _, err := r.Procedure(""); !errors.Is(err, ErrUnsupportedAircraft) {
		t.Errorf("Procedure(\"\") error = %v, want ErrUnsupportedAircraft", err)
	}
}

func TestRegistryDirectoryAddsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "trainer.yaml", trainerProfile)
	writeProfile(t, dir, "mig.yml", `
name: mig21bis-autostart
display_name: Fishbed (local)
ownship: [MiG-21Bis]
steps:
  - name: only
`)
	writeProfile(t, dir, "notes.txt", "not a profile")
	writeProfile(t, dir, ".hidden.yaml", "::: broken")

	r := NewRegistry()
	if err := r.Load(dir); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := len(r.List()); got != 3 {
		t.Errorf("len(List()) = %d, want 3", got)
	}
	for _, o := range []string{"L-39C", "L-39ZA"} {
		p, err := r.Lookup(o)
		if err != nil || p.Name != "trainer-autostart" {
			t.Errorf("Lookup(%s) = %v, %v", o, p, err)
		}
	}

	p, err := r.Lookup("MiG-21Bis")
	if err != nil {
		t.Fatal(err)
	}
	if p.DisplayName != "Fishbed (local)" {
		t.Errorf("DisplayName = %q, want local override", p.DisplayName)
	}
	if p.Source != filepath.Join(dir, "mig.yml") {
		t.Errorf("Source = %q", p.Source)
	}
	proc, err := r.Procedure("MiG-21Bis")
	if err != nil || len(proc.Steps) != 1 {
		t.Errorf("Procedure() = %d steps, %v; want 1 step", len(proc.Steps), err)
	}
}

func TestRegistryReloadKeepsPreviousSetOnError(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "trainer.yaml", trainerProfile)

	r := NewRegistry()
	if err := r.Load(dir); err != nil {
		t.Fatal(err)
	}

	writeProfile(t, dir, "broken.yaml", "name: broken\nownship: [X]\nsteps: []\n")
	if err := r.Reload(); err == nil {
		t.Fatal("Reload() error = nil, want error for empty procedure")
	}
	if _, err := r.Lookup("L-39C"); err != nil {
		t.Errorf("Lookup after failed reload error = %v", err)
	}

	if err := os.Remove(filepath.Join(dir, "broken.yaml")); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(dir, "trainer.yaml")); err != nil {
		t.Fatal(err)
	}
	if err := r.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if _, err := r.Lookup("L-39C"); !errors.Is(err, ErrUnsupportedAircraft) {
		t.Errorf("Lookup after removal error = %v, want ErrUnsupportedAircraft", err)
	}
}

func TestRegistryRejectsSharedOwnship(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "a.yaml", trainerProfile)
	writeProfile(t, dir, "b.yaml", "name: other\nownship: [L-39ZA]\nsteps: [{name: a}]\n")

	r := NewRegistry()
	if err := r.Load(dir); !errors.Is(err, ErrInvalidProfile) {
		t.Errorf("Load() error = %v, want ErrInvalidProfile", err)
	}
}

func TestRegistryMissingDirectory(t *testing.T) {
	r := NewRegistry()
	if err := r.Load(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Load() error = nil for missing directory")
	}
}
