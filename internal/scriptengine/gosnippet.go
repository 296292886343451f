package scriptengine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/makeflow/internal/errors"
	"github.com/felixgeelhaar/makeflow/internal/process"
)

func (d *Dispatcher) runGo(ctx context.Context, req Request) error {
	if d.GoCache == nil {
		d.GoCache = NewGoCache(filepath.Join(os.TempDir(), "makeflow", "go"), 0)
	}

	source := GoSource(StripShebang(req.Lines))
	binary, err := d.GoCache.Ensure(source, func(src []byte, output string) error {
		return d.buildGo(ctx, req, src, output)
	})
	if err != nil {
		return err
	}
	return d.spawn(ctx, req, process.Command{Name: binary, Args: req.Args})
}

func (d *Dispatcher) buildGo(ctx context.Context, req Request, source []byte, output string) error {
	dir, err := os.MkdirTemp("", "makeflow-go-")
	if err != nil {
		return errors.Wrap(errors.ErrCodeDirectoryFailed, "create build directory", err)
	}
	defer os.RemoveAll(dir)

	if err := os.WriteFile(filepath.Join(dir, "main.go"), source, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "write go source", err)
	}

	err = process.Check(ctx, d.Runner, process.Command{
		Name:   "go",
		Args:   []string{"build", "-o", output, "main.go"},
		Env:    req.Env.Environ(),
		Dir:    dir,
		Stdout: req.Stderr,
		Stderr: req.Stderr,
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeCompileFailed, fmt.Sprintf("go script of task %s does not compile", req.Task), err)
	}
	return nil
}

// GoSource turns script lines into a Go main package. Lines without a
// package clause are wrapped: import declarations stay at file level and
// the remaining lines become the body of main.
func GoSource(lines []string) []byte {
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "package ") {
			return []byte(strings.Join(lines, "\n") + "\n")
		}
	}

	var imports, body []string
	inImport := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case inImport:
			imports = append(imports, line)
			if trimmed == ")" {
				inImport = false
			}
		case strings.HasPrefix(trimmed, "import ("):
			imports = append(imports, line)
			inImport = true
		case strings.HasPrefix(trimmed, "import "):
			imports = append(imports, line)
		default:
			body = append(body, line)
		}
	}

	var b strings.Builder
	b.WriteString("package main\n\n")
	for _, line := range imports {
		b.WriteString(line + "\n")
	}
	if len(imports) > 0 {
		b.WriteString("\n")
	}
	b.WriteString("func main() {\n")
	for _, line := range body {
		b.WriteString("\t" + line + "\n")
	}
	b.WriteString("}\n")
	return []byte(b.String())
}
