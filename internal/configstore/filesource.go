package configstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileSource recursively walks a local directory for *.json model
// definition files, grounded on original file_config_reader.py's
// Path.rglob("*.json") walk.
type FileSource struct {
	root string
}

func NewFileSource(root string) *FileSource {
	return &FileSource{root: root}
}

func (f *FileSource) Load(ctx context.Context) ([]ModelDefinition, error) {
	var defs []ModelDefinition
	err := filepath.WalkDir(f.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("configstore: read %q: %w", path, err)
		}
		var def ModelDefinition
		if err := json.Unmarshal(data, &def); err != nil {
			return fmt.Errorf("configstore: parse %q: %w", path, err)
		}
		defs = append(defs, def)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return defs, nil
}
