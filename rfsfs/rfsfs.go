// Package rfsfs is the example external filesystem collaborator (spec
// §1's out-of-scope remote-file-access service, kept only so cmd/ has
// something concrete to dispatch to): a PayloadHandler rooted at one
// directory, exposing read/write/list/stat/mkdir/remove, grounded on
// original_source/crates/rfs/src/fs.rs and rfs_methods/src/fs.rs's
// primitive operation set (read_bytes/read_dir/mkdir/rmdir/remove).
package rfsfs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"udprpc/dispatch"
	"udprpc/envelope"
)

// FS serves filesystem operations rooted at Root. Every path argument
// is resolved relative to Root and rejected if it would escape it.
type FS struct {
	Root string
}

func New(root string) *FS { return &FS{Root: root} }

// resolve joins rel onto Root and rejects any path that would escape
// it, the one invariant a remote filesystem collaborator cannot skip.
func (f *FS) resolve(rel string) (string, error) {
	root := filepath.Clean(f.Root)
	full := filepath.Join(root, rel)
	r, err := filepath.Rel(root, full)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes root: %q", rel)
	}
	return full, nil
}

// ReadArgs/WriteArgs etc. are the wire-encoded request shapes for each
// registered method.
type ReadArgs struct{ Path string }
type WriteArgs struct {
	Path string
	Data []byte
}
type PathArgs struct{ Path string }

type OK struct{ Done bool }

type DirEntry struct {
	Name  string
	IsDir bool
	Size  int64
}

type ListResult struct{ Entries []DirEntry }

type StatResult struct {
	IsDir   bool
	Size    int64
	ModUnix int64
}

func (f *FS) read(args ReadArgs) ([]byte, error) {
	full, err := f.resolve(args.Path)
	if err != nil {
		return nil, dispatch.NewHandlerError(envelope.ErrInvalidArgument, err.Error())
	}
	b, err := os.ReadFile(full)
	if err != nil {
		return nil, classifyFsErr(err)
	}
	return b, nil
}

func (f *FS) write(args WriteArgs) (OK, error) {
	full, err := f.resolve(args.Path)
	if err != nil {
		return OK{}, dispatch.NewHandlerError(envelope.ErrInvalidArgument, err.Error())
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return OK{}, classifyFsErr(err)
	}
	if err := os.WriteFile(full, args.Data, 0o644); err != nil {
		return OK{}, classifyFsErr(err)
	}
	return OK{Done: true}, nil
}

func (f *FS) list(args PathArgs) (ListResult, error) {
	full, err := f.resolve(args.Path)
	if err != nil {
		return ListResult{}, dispatch.NewHandlerError(envelope.ErrInvalidArgument, err.Error())
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		return ListResult{}, classifyFsErr(err)
	}
	out := make([]DirEntry, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, DirEntry{Name: e.Name(), IsDir: e.IsDir(), Size: info.Size()})
	}
	return ListResult{Entries: out}, nil
}

func (f *FS) stat(args PathArgs) (StatResult, error) {
	full, err := f.resolve(args.Path)
	if err != nil {
		return StatResult{}, dispatch.NewHandlerError(envelope.ErrInvalidArgument, err.Error())
	}
	info, err := os.Stat(full)
	if err != nil {
		return StatResult{}, classifyFsErr(err)
	}
	return StatResult{IsDir: info.IsDir(), Size: info.Size(), ModUnix: info.ModTime().Unix()}, nil
}

func (f *FS) mkdir(args PathArgs) (OK, error) {
	full, err := f.resolve(args.Path)
	if err != nil {
		return OK{}, dispatch.NewHandlerError(envelope.ErrInvalidArgument, err.Error())
	}
	if err := os.MkdirAll(full, 0o755); err != nil {
		return OK{}, classifyFsErr(err)
	}
	return OK{Done: true}, nil
}

func (f *FS) remove(args PathArgs) (OK, error) {
	full, err := f.resolve(args.Path)
	if err != nil {
		return OK{}, dispatch.NewHandlerError(envelope.ErrInvalidArgument, err.Error())
	}
	if err := os.RemoveAll(full); err != nil {
		return OK{}, classifyFsErr(err)
	}
	return OK{Done: true}, nil
}

func classifyFsErr(err error) error {
	if os.IsNotExist(err) {
		return dispatch.NewHandlerError(envelope.ErrNotFound, err.Error())
	}
	if os.IsPermission(err) {
		return dispatch.NewHandlerError(envelope.ErrPermissionDenied, err.Error())
	}
	return dispatch.NewHandlerError(envelope.ErrInternalError, err.Error())
}

// Entries returns the dispatch.Entry set for every operation this
// collaborator serves, ready to pass to dispatch.NewRegistry.
func (f *FS) Entries() []dispatch.Entry {
	return []dispatch.Entry{
		dispatch.Register("Rfs::read", f.read),
		dispatch.Register("Rfs::write", f.write),
		dispatch.Register("Rfs::list", f.list),
		dispatch.Register("Rfs::stat", f.stat),
		dispatch.Register("Rfs::mkdir", f.mkdir),
		dispatch.Register("Rfs::remove", f.remove),
	}
}
