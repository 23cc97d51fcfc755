package machine

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pkg/errors"

	"garnet/internal/evaluator"
	"garnet/internal/object"
	"garnet/internal/parser"
)

// Loader resolves require and load against an ordered search path. While a
// file is being evaluated its directory sits at the front of the path.
type Loader struct {
	eval   *evaluator.Evaluator
	logger *slog.Logger

	paths      []string
	extensions []string
	// loaded holds the resolved real paths of required files.
	loaded map[string]bool
}

func NewLoader(eval *evaluator.Evaluator, paths, extensions []string, logger *slog.Logger) *Loader {
	l := &Loader{
		eval:   eval,
		logger: logger,
		loaded: map[string]bool{},
	}
	for _, p := range paths {
		l.AddSearchPath(p)
	}
	for _, ext := range extensions {
		l.AddExtension(ext)
	}
	return l
}

func (l *Loader) Extensions() []string { return slices.Clone(l.extensions) }

// AddExtension allows ext, given with or without its dot.
func (l *Loader) AddExtension(ext string) {
	if ext == "" {
		return
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if !slices.Contains(l.extensions, ext) {
		l.extensions = append(l.extensions, ext)
	}
}

func (l *Loader) SearchPaths() []string { return slices.Clone(l.paths) }

func (l *Loader) AddSearchPath(path string) {
	if path != "" && !slices.Contains(l.paths, path) {
		l.paths = append(l.paths, path)
	}
}

// Loaded lists the real paths of every required file.
func (l *Loader) Loaded() []string {
	out := make([]string, 0, len(l.loaded))
	for p := range l.loaded {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

func (l *Loader) allowed(path string) bool {
	return slices.Contains(l.extensions, filepath.Ext(path))
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// dirs returns the directories a name is resolved against. Absolute and
// ./-prefixed names resolve as given.
func (l *Loader) dirs(frame *object.Context, name string, relative bool) []string {
	switch {
	case filepath.IsAbs(name):
		return []string{""}
	case relative:
		if frame == nil || !isFile(frame.File) {
			return []string{"."}
		}
		return []string{filepath.Dir(frame.File)}
	case strings.HasPrefix(name, "./"), strings.HasPrefix(name, "../"):
		return []string{"."}
	}
	return l.paths
}

// Resolve finds the file name refers to. A file that exists under its
// literal name wins when its extension is allowed; otherwise each allowed
// extension is tried in order.
func (l *Loader) Resolve(name string, dirs []string, appendExt bool) (string, error) {
	unsupported := ""
	for _, dir := range dirs {
		base := filepath.Join(dir, name)
		if isFile(base) {
			if l.allowed(base) {
				return base, nil
			}
			if unsupported == "" {
				unsupported = base
			}
		}
		if !appendExt {
			continue
		}
		for _, ext := range l.extensions {
			if isFile(base + ext) {
				return base + ext, nil
			}
		}
	}
	if unsupported != "" {
		return "", l.eval.NewError("UnsupportedExtensionError", "unsupported file extension %q for %s (allowed: %s)",
			filepath.Ext(unsupported), unsupported, strings.Join(l.extensions, ", "))
	}
	return "", l.eval.NewError("FileNotFoundError", "cannot load such file -- %s", name)
}

func realPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrapf(err, "resolve %s", path)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", errors.Wrapf(err, "resolve %s", path)
	}
	return real, nil
}

// Require evaluates the file name refers to unless that file was already
// required. It reports whether the file was evaluated.
func (l *Loader) Require(frame *object.Context, name string, relative bool) (bool, error) {
	file, err := l.Resolve(name, l.dirs(frame, name, relative), true)
	if err != nil {
		return false, err
	}
	real, err := realPath(file)
	if err != nil {
		return false, err
	}
	if l.loaded[real] {
		l.logger.Debug("already required", "path", real)
		return false, nil
	}
	// marked before evaluation so a cycle ends here
	l.loaded[real] = true
	if err := l.evalFile(real); err != nil {
		delete(l.loaded, real)
		return false, err
	}
	return true, nil
}

// Load evaluates the named file every time. The name must include its
// extension.
func (l *Loader) Load(frame *object.Context, name string) (bool, error) {
	file, err := l.Resolve(name, l.dirs(frame, name, false), false)
	if err != nil {
		return false, err
	}
	real, err := realPath(file)
	if err != nil {
		return false, err
	}
	return true, l.evalFile(real)
}

// evalFile runs file at top level with locals of its own.
func (l *Loader) evalFile(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return errors.Wrapf(err, "read %s", file)
	}
	src := string(data)
	program, err := parser.Parse(src)
	if err != nil {
		return l.eval.NewError("SyntaxError", "%s: %s", file, err.Error())
	}

	l.logger.Debug("loading file", "path", file)
	l.paths = slices.Insert(l.paths, 0, filepath.Dir(file))
	defer func() { l.paths = l.paths[1:] }()

	l.eval.SetSource(file, src)
	defer l.eval.EnterFile(file)()
	frame := l.eval.Root().NewFrame(object.RootFrame)
	frame.File = file
	_, err = l.eval.Eval(program, frame)
	return l.eval.Escaped(err)
}
