package configutil

import (
	"fmt"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

func splitExt(f string) (string, string) {
	for i := len(f) - 1; i >= 0; i-- {
		if f[i] == '.' {
			return f[0:i], f[i+1:]
		}
	}
	return f, ""
}

// LocalName returns the name of the local override file of `name`,
// ex. "usatt.json5" -> "usatt.local.json5".
func LocalName(name string) string {
	dirname := filepath.Dir(name)
	prefixname, ext := splitExt(filepath.Base(name))
	if ext == "" {
		return filepath.Join(dirname, fmt.Sprintf("%s.local", prefixname))
	}
	return filepath.Join(dirname, fmt.Sprintf("%s.local.%s", prefixname, ext))
}

func mergeFile[T any](path string, out *T) (bool, error) {
	contents, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(contents) == 0 {
		return true, nil
	}

	var override T
	err = json5.Unmarshal(contents, &override)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	// pointers replace each other whole, so a pointer to a zero value still
	// overrides the default
	err = mergo.Merge(out, override, mergo.WithOverride, mergo.WithoutDereference)
	if err != nil {
		return false, fmt.Errorf("merge %s: %w", path, err)
	}
	return true, nil
}

// ReadConfig reads a configuration file on top of `defaults`, `name` should
// come with a file extension, it will automatically be lopped off to produce
// the other extensions. the following files are merged, where higher number is
// more prioritized.
// 0. defaults
// 1. <name>.<ext>
// 2. <name>.local.<ext>
//
// os.ErrNotExist is returned (together with the defaults) if neither file exists.
func ReadConfig[T any](name string, defaults T) (T, error) {
	out := defaults

	foundDefault, err := mergeFile(name, &out)
	if err != nil {
		return defaults, err
	}
	foundLocal, err := mergeFile(LocalName(name), &out)
	if err != nil {
		return defaults, err
	}

	if !foundDefault && !foundLocal {
		return out, os.ErrNotExist
	}
	return out, nil
}

// ReadRecursively is ReadConfig but it goes up the filesystem from the
// current directory until the root to find a configuration file matching the name.
func ReadRecursively[T any](name string, defaults T) (T, string, error) {
	current, err := os.Getwd()
	if err != nil {
		return defaults, "", err
	}

	for {
		path := filepath.Join(current, name)
		config, err := ReadConfig(path, defaults)
		if err == nil {
			return config, path, nil
		}
		if !os.IsNotExist(err) {
			return defaults, "", err
		}

		parent := filepath.Dir(current)
		if parent == current {
			return defaults, "", os.ErrNotExist
		}
		current = parent
	}
}
