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

const (
	openCodePluginName = "pulse-plugin"
	openCodePluginFile = "pulse-plugin.ts"
)

// OpenCode manages the generated plugin in ~/.config/opencode/plugins.
// The plugin file is wholly owned by pulse; sibling plugins are never read.
type OpenCode struct {
	dir     string
	plugin  string
	command string
}

// NewOpenCode returns the OpenCode adapter.
func NewOpenCode(layout paths.Layout, opts Options) *OpenCode {
	return &OpenCode{
		dir:     layout.OpenCodeDir,
		plugin:  filepath.Join(layout.OpenCodePluginDir(), openCodePluginFile),
		command: opts.command(),
	}
}

func (o *OpenCode) Name() span.Source   { return span.SourceOpenCode }
func (o *OpenCode) DisplayName() string { return "OpenCode" }

// Path is the plugin file.
func (o *OpenCode) Path() string { return o.plugin }

func (o *OpenCode) Detect() bool { return paths.IsDir(o.dir) }

func (o *OpenCode) content() []byte {
	return render("assets/opencode/pulse-plugin.ts", o.command)
}

func (o *OpenCode) read() ([]byte, bool, error) {
	data, exists, err := fsutil.ReadFileIfExists(o.plugin)
	if err != nil {
		return nil, false, fmt.Errorf("%w: reading %s: %v", ErrConfigParse, o.plugin, err)
	}
	return data, exists, nil
}

func (o *OpenCode) Install() (Result, error) {
	res := Result{Agent: o.Name(), Path: o.plugin}
	if !o.Detect() {
		return res, ErrNotDetected
	}
	current, exists, err := o.read()
	if err != nil {
		return res, err
	}
	if exists && !isGenerated(current) {
		return res, fmt.Errorf("%w: %s", ErrForeignFile, o.plugin)
	}
	want := o.content()
	if exists && bytes.Equal(current, want) {
		return res, nil
	}
	if err := fsutil.WriteFileAtomic(o.plugin, want, 0o644); err != nil {
		return res, fmt.Errorf("%w: %s: %v", ErrConfigWrite, o.plugin, err)
	}
	if exists {
		res.Updated = []string{openCodePluginName}
	} else {
		res.Added = []string{openCodePluginName}
	}
	log.Info(log.CatHooks, "wrote opencode plugin", "path", o.plugin, "updated", exists)
	return res, nil
}

func (o *OpenCode) Uninstall() (Result, error) {
	res := Result{Agent: o.Name(), Path: o.plugin}
	current, exists, err := o.read()
	if err != nil || !exists {
		return res, err
	}
	if !isGenerated(current) {
		log.Warn(log.CatHooks, "leaving foreign opencode plugin", "path", o.plugin)
		return res, nil
	}
	removed, err := fsutil.RemoveFile(o.plugin)
	if err != nil {
		return res, fmt.Errorf("%w: %s: %v", ErrConfigWrite, o.plugin, err)
	}
	if removed {
		res.Removed = []string{openCodePluginName}
		log.Info(log.CatHooks, "removed opencode plugin", "path", o.plugin)
	}
	return res, nil
}

func (o *OpenCode) Status() (HookStatus, error) {
	if !o.Detect() {
		return notDetected(o.Name(), o.plugin, []string{openCodePluginName}), nil
	}
	st := HookStatus{Agent: o.Name(), Detected: true, Path: o.plugin}
	current, exists, err := o.read()
	if err != nil {
		st.Message = err.Error()
		return st, err
	}
	installed := exists && isGenerated(current)
	st.Hooks = []HookPresence{{Name: openCodePluginName, Installed: installed}}
	switch {
	case exists && !installed:
		st.Message = "a plugin not generated by pulse occupies " + openCodePluginFile
	case installed && !bytes.Equal(current, o.content()):
		st.Outdated = true
		st.Message = "plugin installed but outdated"
	}
	return st, nil
}

// PreviewInstall returns the plugin file before and after Install.
func (o *OpenCode) PreviewInstall() ([]FileChange, error) {
	current, exists, err := o.read()
	if err != nil {
		return nil, err
	}
	if exists && !isGenerated(current) {
		return nil, fmt.Errorf("%w: %s", ErrForeignFile, o.plugin)
	}
	return []FileChange{{Path: o.plugin, Before: current, After: o.content()}}, nil
}
