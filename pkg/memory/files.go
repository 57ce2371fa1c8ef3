package memory

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/harun/toolflow/pkg/vectorstore"
)

// ContextClass is the class given to text passed inline rather than as a path.
const ContextClass = "text"

// EnsureDirectory creates dir if it doesn't exist.
func EnsureDirectory(dir string) error {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("path exists but is not a directory: %s", dir)
		}
		return nil
	}

	if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

// FileExists checks if a file exists at the given path
func FileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// ExtractTextObjects turns a source into text objects. A source naming an existing file
// yields that file; a directory yields every text file below it, sorted by path; anything
// else is treated as the text itself.
func ExtractTextObjects(source string) ([]vectorstore.TextObject, error) {
	if source == "" {
		return nil, nil
	}

	info, err := statSource(source)
	if err != nil {
		return nil, err
	}

	switch {
	case info == nil:
		return []vectorstore.TextObject{{Name: "context", Class: ContextClass, Text: source}}, nil
	case info.IsDir():
		return extractDirectory(source)
	default:
		obj, ok, err := extractFile(source)
		if err != nil || !ok {
			return nil, err
		}
		return []vectorstore.TextObject{obj}, nil
	}
}

// statSource returns nil when source is not a path on disk.
func statSource(source string) (os.FileInfo, error) {
	if strings.ContainsAny(source, "\n\r") || len(source) > 4096 {
		return nil, nil
	}
	exists, err := FileExists(source)
	if err != nil || !exists {
		return nil, nil
	}
	return os.Stat(source)
}

func extractDirectory(dir string) ([]vectorstore.TextObject, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	sort.Strings(paths)

	var objs []vectorstore.TextObject
	for _, path := range paths {
		obj, ok, err := extractFile(path)
		if err != nil {
			return nil, err
		}
		if ok {
			objs = append(objs, obj)
		}
	}
	return objs, nil
}

// extractFile reads a text file. Binary files are skipped.
func extractFile(path string) (vectorstore.TextObject, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return vectorstore.TextObject{}, false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return vectorstore.TextObject{}, false, nil
	}

	class := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if class == "" {
		class = ContextClass
	}
	return vectorstore.TextObject{Name: path, Class: class, Text: string(data)}, true, nil
}
