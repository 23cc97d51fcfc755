package foreign

import (
	"os"
	"path/filepath"
	"strings"

	"garnet/internal/object"
	"garnet/internal/registry"
)

// File is a class of static methods over the host filesystem. It resolves
// like any native type, so the security policy decides whether scripts
// may touch it.

func registerFile(reg *registry.Registry) {
	reg.StaticMethod("File", fnFileRead(), "read")
	reg.StaticMethod("File", fnFileReadLines(), "readlines")
	reg.StaticMethod("File", fnFileWrite(os.O_CREATE|os.O_TRUNC|os.O_WRONLY), "write")
	reg.StaticMethod("File", fnFileWrite(os.O_CREATE|os.O_APPEND|os.O_WRONLY), "append")
	reg.StaticMethod("File", fnFileExists(false), "exist?", "exists?")
	reg.StaticMethod("File", fnFileExists(true), "directory?")
	reg.StaticMethod("File", fnFileDelete(), "delete")
	reg.StaticMethod("File", fnFileSize(), "size")
	reg.StaticMethod("File", fnFileJoin(), "join")
	reg.StaticMethod("File", fnFilePath(filepath.Base), "basename")
	reg.StaticMethod("File", fnFilePath(filepath.Dir), "dirname")
	reg.StaticMethod("File", fnFilePath(filepath.Ext), "extname")
	reg.StaticMethod("File", fnFileExpand(), "expand_path")
}

func ioError(ctx object.EvaluatorContext, err error) error {
	return ctx.NewError("IOError", "%s", err.Error())
}

func pathArg(ctx object.EvaluatorContext, args []object.Object, n int) (string, error) {
	if err := checkArgs(ctx, args, n, n); err != nil {
		return "", err
	}
	return toStr(ctx, args[0])
}

func fnFileRead() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		path, err := pathArg(ctx, args, 1)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, ioError(ctx, err)
		}
		return str(string(data)), nil
	}
}

// fnFileReadLines keeps the line terminators, like each_line.
func fnFileReadLines() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		path, err := pathArg(ctx, args, 1)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, ioError(ctx, err)
		}
		var lines []object.Object
		for _, l := range strings.SplitAfter(string(data), "\n") {
			if l != "" {
				lines = append(lines, str(l))
			}
		}
		return object.NewArray(lines...), nil
	}
}

// fnFileWrite returns the number of bytes written.
func fnFileWrite(flag int) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		path, err := pathArg(ctx, args, 2)
		if err != nil {
			return nil, err
		}
		content, err := toStr(ctx, args[1])
		if err != nil {
			return nil, err
		}
		f, err := os.OpenFile(path, flag, 0o644)
		if err != nil {
			return nil, ioError(ctx, err)
		}
		n, err := f.WriteString(content)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, ioError(ctx, err)
		}
		return integer(int64(n)), nil
	}
}

func fnFileExists(dirOnly bool) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		path, err := pathArg(ctx, args, 1)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(path)
		if err != nil {
			return object.FALSE, nil
		}
		return object.NativeBool(!dirOnly || info.IsDir()), nil
	}
}

func fnFileDelete() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, -1); err != nil {
			return nil, err
		}
		for _, a := range args {
			path, err := toStr(ctx, a)
			if err != nil {
				return nil, err
			}
			if err := os.Remove(path); err != nil {
				return nil, ioError(ctx, err)
			}
		}
		return integer(int64(len(args))), nil
	}
}

func fnFileSize() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		path, err := pathArg(ctx, args, 1)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, ioError(ctx, err)
		}
		return integer(info.Size()), nil
	}
}

func fnFileJoin() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			s, err := toStr(ctx, a)
			if err != nil {
				return nil, err
			}
			parts[i] = s
		}
		return str(filepath.Join(parts...)), nil
	}
}

func fnFilePath(fn func(string) string) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		path, err := pathArg(ctx, args, 1)
		if err != nil {
			return nil, err
		}
		return str(fn(path)), nil
	}
}

func fnFileExpand() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		path, err := pathArg(ctx, args, 1)
		if err != nil {
			return nil, err
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, ioError(ctx, err)
		}
		return str(abs), nil
	}
}
