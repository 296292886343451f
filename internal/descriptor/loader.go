package descriptor

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/makeflow/internal/errors"
	"github.com/felixgeelhaar/makeflow/internal/task"
	"github.com/felixgeelhaar/makeflow/internal/version"
)

// DefaultFile is the descriptor looked up in the working directory.
const DefaultFile = "Makefile.toml"

const maxExtendDepth = 16

//go:embed core.toml
var coreTasks []byte

// Options control how a descriptor is located and loaded.
type Options struct {
	// Path is the descriptor file; empty means DefaultFile in Dir.
	Path string
	Dir  string
	// Version is the running version checked against config.min_version.
	Version string
}

// Load reads the descriptor named by opts, layers it on the core tasks and
// checks its minimum version. A missing default descriptor yields the core
// tasks only; a missing explicit one is an error.
func Load(opts Options) (*Descriptor, error) {
	path := opts.Path
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if !filepath.IsAbs(path) && opts.Dir != "" {
		path = filepath.Join(opts.Dir, path)
	}

	var user *Descriptor
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileReadFailed, "stat descriptor", err)
		}
		if explicit {
			return nil, errors.NewDescriptorNotFoundError(path)
		}
		user = &Descriptor{Path: path}
	} else {
		user, err = LoadFile(path)
		if err != nil {
			return nil, err
		}
	}

	d := user
	if !isSet(user.Config.SkipCoreTasks) {
		core, err := Core()
		if err != nil {
			return nil, err
		}
		d = Merge(core, user)
	}
	if d.Tasks == nil {
		d.Tasks = make(map[string]task.Task)
	}

	if !version.MeetsMinimum(opts.Version, d.Config.MinVersion) {
		return nil, errors.Newf(errors.ErrCodeMinVersion,
			"descriptor %s requires makeflow %s or newer, running %s", d.Path, d.Config.MinVersion, opts.Version).
			WithSuggestion("Upgrade makeflow")
	}
	return d, nil
}

// Core returns the built-in core tasks.
func Core() (*Descriptor, error) {
	return Parse(coreTasks, "toml", "core")
}

// LoadFile reads one descriptor file and the files it extends. Extended
// files are resolved relative to the extending file and layered first.
func LoadFile(path string) (*Descriptor, error) {
	return loadFile(path, nil)
}

func loadFile(path string, chain []string) (*Descriptor, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	for _, seen := range chain {
		if seen == abs {
			return nil, errors.Newf(errors.ErrCodeExtendCycle, "descriptor extend cycle: %s",
				strings.Join(append(chain, abs), " -> "))
		}
	}
	if len(chain) >= maxExtendDepth {
		return nil, errors.Newf(errors.ErrCodeExtendCycle, "descriptor extend depth exceeded at %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewDescriptorNotFoundError(path)
		}
		return nil, errors.Wrap(errors.ErrCodeFileReadFailed, fmt.Sprintf("read descriptor %s", path), err)
	}

	d, err := Parse(data, formatOf(path), path)
	if err != nil {
		return nil, err
	}
	d.Path = path
	if len(d.Extend) == 0 {
		return d, nil
	}

	var base *Descriptor
	for _, ext := range d.Extend {
		extPath := ext
		if !filepath.IsAbs(extPath) {
			extPath = filepath.Join(filepath.Dir(path), extPath)
		}
		parent, err := loadFile(extPath, append(chain, abs))
		if err != nil {
			return nil, err
		}
		if base == nil {
			base = parent
		} else {
			base = Merge(base, parent)
		}
	}
	return Merge(base, d), nil
}

// Parse decodes a descriptor document. format is "toml" or "yaml"; source
// names the document in errors.
func Parse(data []byte, format, source string) (*Descriptor, error) {
	var doc map[string]any
	switch format {
	case "yaml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, errors.NewDescriptorParseError(source, "YAML", err)
		}
	default:
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, errors.NewDescriptorParseError(source, "TOML", err)
		}
	}
	if doc == nil {
		doc = make(map[string]any)
	}

	if err := Validate(source, doc); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDescriptorSchema, fmt.Sprintf("invalid descriptor %s", source), err)
	}
	var d Descriptor
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDescriptorSchema, fmt.Sprintf("invalid descriptor %s", source), err)
	}
	for name, t := range d.Tasks {
		t.Name = name
		d.Tasks[name] = t
	}
	d.Path = source
	return &d, nil
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "toml"
	}
}

func isSet(b *bool) bool {
	return b != nil && *b
}
