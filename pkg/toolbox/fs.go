package toolbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aretw0/agentcore/pkg/domain"
	"github.com/aretw0/agentcore/pkg/registry"
	"github.com/mitchellh/mapstructure"
)

// maxReadBytes caps what read_file returns to the planner.
const maxReadBytes = 64 << 10

// FS implements the file system tools relative to a work dir.
type FS struct {
	workDir string
}

// NewFS creates file system tools rooted at workDir.
func NewFS(workDir string) *FS {
	return &FS{workDir: workDir}
}

type pathArgs struct {
	Path string `mapstructure:"path"`
}

type writeArgs struct {
	Path    string `mapstructure:"path"`
	Content string `mapstructure:"content"`
}

// decode fills out from tool arguments. Unknown keys are ignored.
func decode(args map[string]any, out any) error {
	if err := mapstructure.Decode(args, out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidParams, err)
	}
	return nil
}

func (f *FS) abs(path string) string {
	if path == "" {
		path = "."
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(f.workDir, path)
}

// Register adds list_files, read_file, write_file and delete_file to reg.
func (f *FS) Register(reg *registry.Registry) error {
	pathParam := domain.ParamSpec{Name: "path", Type: domain.ParamString, Required: true, Description: "File path, relative to the work dir."}
	tools := []struct {
		spec domain.ToolSpec
		fn   registry.ToolFunction
	}{
		{domain.ToolSpec{
			Name:        "list_files",
			Description: "Lists the entries of a directory. Directories end with a slash.",
			Risk:        domain.RiskSafe,
			Params:      []domain.ParamSpec{{Name: "path", Type: domain.ParamString, Description: "Directory to list. Defaults to the work dir."}},
		}, f.ListFiles},
		{domain.ToolSpec{
			Name:        "read_file",
			Description: "Reads a text file.",
			Risk:        domain.RiskSafe,
			Params:      []domain.ParamSpec{pathParam},
		}, f.ReadFile},
		{domain.ToolSpec{
			Name:        "write_file",
			Description: "Writes content to a file, creating parent directories as needed.",
			Risk:        domain.RiskSafe,
			Params:      []domain.ParamSpec{pathParam, {Name: "content", Type: domain.ParamString, Required: true}},
		}, f.WriteFile},
		{domain.ToolSpec{
			Name:        "delete_file",
			Description: "Deletes a file.",
			Risk:        domain.RiskSensitive,
			Params:      []domain.ParamSpec{pathParam},
		}, f.DeleteFile},
	}
	for _, t := range tools {
		if err := reg.Register(t.spec, t.fn); err != nil {
			return err
		}
	}
	return nil
}

func (f *FS) ListFiles(ctx context.Context, args map[string]any) (any, error) {
	var a pathArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(f.abs(a.Path))
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	if len(entries) == 0 {
		return "(empty directory)", nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	return names, nil
}

func (f *FS) ReadFile(ctx context.Context, args map[string]any) (any, error) {
	var a pathArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	file, err := os.Open(f.abs(a.Path))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxReadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if len(data) > maxReadBytes {
		return fmt.Sprintf("%s\n[truncated after %d bytes]", data[:maxReadBytes], maxReadBytes), nil
	}
	return string(data), nil
}

func (f *FS) WriteFile(ctx context.Context, args map[string]any) (any, error) {
	var a writeArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("%w: path is required", domain.ErrInvalidParams)
	}
	target := f.abs(a.Path)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, fmt.Errorf("write file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.WriteFile(target, []byte(a.Content), 0o644); err != nil {
		return nil, fmt.Errorf("write file: %w", err)
	}
	return fmt.Sprintf("File '%s' written successfully (%d bytes).", a.Path, len(a.Content)), nil
}

func (f *FS) DeleteFile(ctx context.Context, args map[string]any) (any, error) {
	var a pathArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("%w: path is required", domain.ErrInvalidParams)
	}
	target := f.abs(a.Path)
	info, err := os.Lstat(target)
	if err != nil {
		return nil, fmt.Errorf("delete file: %w", err)
	}
	if info.IsDir() {
		return nil, errors.New("delete file: path is a directory")
	}
	if err := os.Remove(target); err != nil {
		return nil, fmt.Errorf("delete file: %w", err)
	}
	return fmt.Sprintf("File '%s' deleted.", a.Path), nil
}
