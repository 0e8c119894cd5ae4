package aircraft

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/nerrad567/preflight/internal/sequence"
)

// Logger defines the logging interface used by the Registry and Watcher.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry maps ownship type strings to aircraft profiles.
//
// The embedded profiles are always present. Profiles read from a directory
// replace embedded ones with the same name and may claim further ownship
// types. A load either replaces the whole set or leaves it untouched.
//
// All public methods are thread-safe.
type Registry struct {
	mu        sync.RWMutex
	byName    map[string]*Profile
	byOwnship map[string]*Profile
	dir       string
	logger    Logger
}

// NewRegistry creates an empty registry. Call Load before use.
func NewRegistry() *Registry {
	return &Registry{
		byName:    make(map[string]*Profile),
		byOwnship: make(map[string]*Profile),
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Load reads the embedded profiles plus any in dir. An empty dir loads only
// the embedded set. Later loads reuse the directory given here.
func (r *Registry) Load(dir string) error {
	byName := make(map[string]*Profile)

	embedded, err := loadFS(builtin, "profiles")
	if err != nil {
		return fmt.Errorf("loading embedded profiles: %w", err)
	}
	for _, p := range embedded {
		byName[p.Name] = p
	}

	if dir != "" {
		local, err := loadFS(os.DirFS(dir), ".")
		if err != nil {
			return fmt.Errorf("loading profiles from %s: %w", dir, err)
		}
		for _, p := range local {
			p.Source = filepath.Join(dir, p.Source)
			if prev, ok := byName[p.Name]; ok {
				r.logger.Info("profile overridden", "name", p.Name, "previous", prev.Source, "source", p.Source)
			}
			byName[p.Name] = p
		}
	}

	byOwnship, err := indexOwnship(byName)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.byName = byName
	r.byOwnship = byOwnship
	r.dir = dir
	r.mu.Unlock()

	r.logger.Info("aircraft profiles loaded", "count", len(byName), "dir", dir)
	return nil
}

// Reload repeats the last Load. On failure the current set stays in place.
func (r *Registry) Reload() error {
	r.mu.RLock()
	dir := r.dir
	r.mu.RUnlock()
	return r.Load(dir)
}

// Lookup returns the profile for an ownship type.
func (r *Registry) Lookup(ownship string) (*Profile, error) {
	r.mu.RLock()
	p, ok := r.byOwnship[ownship]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAircraft, ownship)
	}
	return p, nil
}

// Procedure returns the compiled start-up procedure for an ownship type.
func (r *Registry) Procedure(ownship string) (sequence.Procedure, error) {
	p, err := r.Lookup(ownship)
	if err != nil {
		return sequence.Procedure{}, err
	}
	return p.Procedure(), nil
}

// List returns the loaded profiles sorted by name.
func (r *Registry) List() []*Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Profile, 0, len(r.byName))
	for _, p := range r.byName {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func loadFS(fsys fs.FS, root string) ([]*Profile, error) {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, err
	}

	var out []*Profile
	for _, e := range entries {
		if e.IsDir() || !isProfileFile(e.Name()) {
			continue
		}
		name := path.Join(root, e.Name())
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		p, err := ParseProfile(data, name)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func indexOwnship(byName map[string]*Profile) (map[string]*Profile, error) {
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]*Profile)
	for _, name := range names {
		p := byName[name]
		for _, o := range p.Ownship {
			if other, ok := out[o]; ok {
				return nil, fmt.Errorf("%w: ownship %q claimed by both %s and %s", ErrInvalidProfile, o, other.Name, p.Name)
			}
			out[o] = p
		}
	}
	return out, nil
}

func isProfileFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
