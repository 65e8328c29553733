package hooks

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/pulsetrace/pulse/internal/fsutil"
	"github.com/pulsetrace/pulse/internal/log"
	"github.com/pulsetrace/pulse/internal/paths"
	"github.com/pulsetrace/pulse/internal/span"
)

const openClawPackage = "pulse-hook"

// openClawFiles maps package file names to embedded assets.
var openClawFiles = []struct{ name, asset string }{
	{"HOOK.md", "assets/openclaw/HOOK.md"},
	{"handler.ts", "assets/openclaw/handler.ts"},
}

// OpenClaw manages the pulse-hook package under ~/.openclaw/hooks. The
// package directory is owned as a unit; other packages are untouched.
type OpenClaw struct {
	dir     string
	pkg     string
	command string
}

// NewOpenClaw returns the OpenClaw adapter.
func NewOpenClaw(layout paths.Layout, opts Options) *OpenClaw {
	return &OpenClaw{
		dir:     layout.OpenClawDir,
		pkg:     filepath.Join(layout.OpenClawHooksDir(), openClawPackage),
		command: opts.command(),
	}
}

func (o *OpenClaw) Name() span.Source   { return span.SourceOpenClaw }
func (o *OpenClaw) DisplayName() string { return "OpenClaw" }

// Path is the hook package directory.
func (o *OpenClaw) Path() string { return o.pkg }

func (o *OpenClaw) Detect() bool { return paths.IsDir(o.dir) }

func (o *OpenClaw) files() map[string][]byte {
	out := make(map[string][]byte, len(openClawFiles))
	for _, f := range openClawFiles {
		out[f.name] = render(f.asset, o.command)
	}
	return out
}

// current reads the installed package. complete is false when any file is
// missing.
func (o *OpenClaw) current() (files map[string][]byte, complete bool, err error) {
	files = make(map[string][]byte, len(openClawFiles))
	complete = true
	for _, f := range openClawFiles {
		data, ok, err := fsutil.ReadFileIfExists(filepath.Join(o.pkg, f.name))
		if err != nil {
			return nil, false, fmt.Errorf("%w: reading %s: %v", ErrConfigParse, o.pkg, err)
		}
		if !ok {
			complete = false
			continue
		}
		files[f.name] = data
	}
	return files, complete, nil
}

func (o *OpenClaw) upToDate(have map[string][]byte) bool {
	for name, want := range o.files() {
		if !bytes.Equal(have[name], want) {
			return false
		}
	}
	return true
}

func (o *OpenClaw) Install() (Result, error) {
	res := Result{Agent: o.Name(), Path: o.pkg}
	if !o.Detect() {
		return res, ErrNotDetected
	}
	existed := paths.IsDir(o.pkg)
	have, complete, err := o.current()
	if err != nil {
		return res, err
	}
	if existed && complete && o.upToDate(have) {
		return res, nil
	}
	if err := fsutil.ReplaceDir(o.pkg, o.files(), 0o644); err != nil {
		return res, fmt.Errorf("%w: %s: %v", ErrConfigWrite, o.pkg, err)
	}
	if existed {
		res.Updated = []string{openClawPackage}
	} else {
		res.Added = []string{openClawPackage}
	}
	log.Info(log.CatHooks, "wrote openclaw hook package", "path", o.pkg, "updated", existed)
	return res, nil
}

func (o *OpenClaw) Uninstall() (Result, error) {
	res := Result{Agent: o.Name(), Path: o.pkg}
	removed, err := fsutil.RemoveDir(o.pkg)
	if err != nil {
		return res, fmt.Errorf("%w: %s: %v", ErrConfigWrite, o.pkg, err)
	}
	if removed {
		res.Removed = []string{openClawPackage}
		log.Info(log.CatHooks, "removed openclaw hook package", "path", o.pkg)
	}
	return res, nil
}

func (o *OpenClaw) Status() (HookStatus, error) {
	if !o.Detect() {
		return notDetected(o.Name(), o.pkg, []string{openClawPackage}), nil
	}
	st := HookStatus{Agent: o.Name(), Detected: true, Path: o.pkg}
	if !paths.IsDir(o.pkg) {
		st.Hooks = []HookPresence{{Name: openClawPackage}}
		return st, nil
	}
	have, complete, err := o.current()
	if err != nil {
		st.Message = err.Error()
		return st, err
	}
	st.Hooks = []HookPresence{{Name: openClawPackage, Installed: complete}}
	switch {
	case !complete:
		st.Message = "hook package is incomplete"
	case !o.upToDate(have):
		st.Outdated = true
		st.Message = "hook package installed but outdated"
	}
	return st, nil
}

// PreviewInstall returns each package file before and after Install.
func (o *OpenClaw) PreviewInstall() ([]FileChange, error) {
	have, _, err := o.current()
	if err != nil {
		return nil, err
	}
	want := o.files()
	changes := make([]FileChange, 0, len(openClawFiles))
	for _, f := range openClawFiles {
		changes = append(changes, FileChange{
			Path:   filepath.Join(o.pkg, f.name),
			Before: have[f.name],
			After:  want[f.name],
		})
	}
	return changes, nil
}
