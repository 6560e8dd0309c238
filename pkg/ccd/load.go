package ccd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ExpandPaths turns a mix of files and directories into a sorted list
// of image files. Directories are walked recursively and only files
// with a supported extension are kept; named files are kept as given,
// so a bad one fails later with a LoadError.
func ExpandPaths(args ...string) ([]string, error) {
	out := []string{}

	for _, arg := range args {
		item, err := os.Stat(arg)

		switch {
		case err != nil:
			return nil, fmt.Errorf("expand %s: %v", arg, err)

		case item.IsDir():
			// Is a dir, recurse into contents
			contents, err := os.ReadDir(arg)
			if err != nil {
				return nil, fmt.Errorf("readdir %s: %v", arg, err)
			}
			for _, content := range contents {
				path := filepath.Join(arg, content.Name())
				if !content.IsDir() && !IsSupported(path) {
					continue
				}
				files, err := ExpandPaths(path)
				if err != nil {
					return nil, err
				}
				out = append(out, files...)
			}

		default:
			out = append(out, arg)
		}
	}

	sort.Strings(out)
	return out, nil
}

// LoadAll reads every path in order, stopping at the first failure.
func LoadAll(r Reader, unit string, paths []string) ([]Frame, error) {
	frames := make([]Frame, 0, len(paths))
	for _, path := range paths {
		f, err := r.Read(path, unit)
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
	return frames, nil
}
