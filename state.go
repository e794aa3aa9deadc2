package frames2mod

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// State is remembered between runs of the CLI.
type State struct {
	LastFolder string `yaml:"last_folder"`
}

// LoadState reads the state file at path. A missing file yields an empty State.
func LoadState(path string) (State, error) {
	var s State
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return s, fmt.Errorf("os.ReadFile %q failed: %w", path, err)
	}
	if err = yaml.Unmarshal(b, &s); err != nil {
		return State{}, fmt.Errorf("yaml.Unmarshal %q failed: %w", path, err)
	}
	return s, nil
}

func (s State) Save(path string) error {
	b, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("yaml.Marshal failed: %w", err)
	}
	if err = os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("os.WriteFile %q failed: %w", path, err)
	}
	return nil
}
