package compiler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

var errIncludeCycle = errors.New("include cycle")

var includeDirective = regexp.MustCompile(`^\s*#include\s+"([^"]+)"\s*$`)

// IncludeError reports an #include directive that could not be expanded.
type IncludeError struct {
	// File and Line locate the directive.
	File string
	Line int

	// Include is the path named by the directive.
	Include string

	Err error
}

func (e *IncludeError) Error() string {
	return fmt.Sprintf("%s:%d: #include %q: %v", e.File, e.Line, e.Include, e.Err)
}

func (e *IncludeError) Unwrap() error {
	return e.Err
}

// lineOrigin records where one line of expanded source was read from.
type lineOrigin struct {
	file string
	line int
}

// Source is a shader file with every #include directive replaced by the included text.
type Source struct {
	// Path is the root file.
	Path string

	// Text is the expanded source.
	Text string

	// Files lists the root file and every included file, in first-read order.
	Files []string

	origins []lineOrigin
}

// Origin maps a 1-based line of the expanded text back to the file and line it came from.
//
// Parameters:
//   - line: the 1-based line in Text
//
// Returns:
//   - string: the originating file
//   - int: the 1-based line in that file, or line itself if it is out of range
func (s *Source) Origin(line int) (string, int) {
	if line < 1 || line > len(s.origins) {
		return s.Path, line
	}
	o := s.origins[line-1]
	return o.file, o.line
}

// Expand reads the file at path and recursively replaces each line of the form
// `#include "relative/path"` with the contents of that file. Relative include paths resolve
// against the directory of the file containing the directive. A file may be included more
// than once, but including a file from itself, directly or indirectly, is an error.
//
// Parameters:
//   - path: the root shader file
//
// Returns:
//   - *Source: the expanded source with a line map
//   - error: an *IncludeError for an unreadable or cyclic include, or the read error for path
func Expand(path string) (*Source, error) {
	src := &Source{Path: path}
	var out []string
	if err := expandFile(src, path, nil, &out); err != nil {
		return nil, err
	}
	src.Text = strings.Join(out, "\n")
	return src, nil
}

func expandFile(src *Source, path string, stack []string, out *[]string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if !slices.Contains(src.Files, path) {
		src.Files = append(src.Files, path)
	}
	stack = append(stack, abs)

	dir := filepath.Dir(path)
	for i, line := range strings.Split(string(data), "\n") {
		m := includeDirective.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			*out = append(*out, line)
			src.origins = append(src.origins, lineOrigin{file: path, line: i + 1})
			continue
		}

		target := m[1]
		if !filepath.IsAbs(target) {
			target = filepath.Join(dir, target)
		}
		targetAbs, err := filepath.Abs(target)
		if err != nil {
			return &IncludeError{File: path, Line: i + 1, Include: m[1], Err: err}
		}
		if slices.Contains(stack, targetAbs) {
			return &IncludeError{File: path, Line: i + 1, Include: m[1], Err: errIncludeCycle}
		}
		if err := expandFile(src, target, stack, out); err != nil {
			var ie *IncludeError
			if errors.As(err, &ie) {
				return err
			}
			return &IncludeError{File: path, Line: i + 1, Include: m[1], Err: err}
		}
	}
	return nil
}
