package pipeline

import (
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/wasmlab/typecorpus/errors"
)

// CollectFiles expands every input path into the regular files beneath
// it, sorted so later stages see a deterministic order.
func CollectFiles(inputs []string) ([]string, error) {
	var files []string
	for _, input := range inputs {
		err := filepath.WalkDir(input, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.Type().IsRegular() {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, errors.Load("walk "+input, err)
		}
	}
	sort.Strings(files)
	return files, nil
}
