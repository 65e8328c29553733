package hooks

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pulsetrace/pulse/internal/fsutil"
	"github.com/pulsetrace/pulse/internal/jsondoc"
	"github.com/pulsetrace/pulse/internal/log"
	"github.com/pulsetrace/pulse/internal/paths"
	"github.com/pulsetrace/pulse/internal/span"
)

// claudeHook binds a Claude Code settings section to the event pulse emits.
type claudeHook struct {
	Section string
	Event   string
}

var claudeHooks = []claudeHook{
	{"PreToolUse", span.EventPreToolUse},
	{"PostToolUse", span.EventPostToolUse},
	{"PostToolUseFailure", span.EventPostToolUseFailure},
	{"SessionStart", span.EventSessionStart},
	{"SessionEnd", span.EventSessionEnd},
	{"Stop", span.EventStop},
	{"SubagentStart", span.EventSubagentStart},
	{"SubagentStop", span.EventSubagentStop},
	{"UserPromptSubmit", span.EventUserPromptSubmit},
	{"Notification", span.EventNotification},
}

// ClaudeCode manages hooks in ~/.claude/settings.json.
//
// Settings layout:
//
//	{"hooks": {"PreToolUse": [{"matcher": "", "hooks": [{"type": "command", "command": "pulse emit pre_tool_use", "async": true}]}]}}
//
// A command is owned by pulse when it reads "<...>/pulse emit <event>".
// Owned commands that name another executable than the configured one are
// reported as outdated and rewritten by Install.
type ClaudeCode struct {
	dir      string
	settings string
	command  string
}

// NewClaudeCode returns the Claude Code adapter.
func NewClaudeCode(layout paths.Layout, opts Options) *ClaudeCode {
	return &ClaudeCode{
		dir:      layout.ClaudeDir,
		settings: layout.ClaudeSettings(),
		command:  opts.command(),
	}
}

func (c *ClaudeCode) Name() span.Source   { return span.SourceClaudeCode }
func (c *ClaudeCode) DisplayName() string { return "Claude Code" }

// Path is the settings file.
func (c *ClaudeCode) Path() string { return c.settings }

func (c *ClaudeCode) Detect() bool {
	return paths.IsDir(c.dir) || paths.Exists(c.settings)
}

func (c *ClaudeCode) commandFor(event string) string {
	return c.command + " emit " + event
}

// ownedEvent returns the event name if cmd is a pulse emit command.
func (c *ClaudeCode) ownedEvent(cmd string) (string, bool) {
	fields := strings.Fields(cmd)
	if len(fields) < 3 || fields[1] != "emit" {
		return "", false
	}
	exe := filepath.Base(strings.Trim(fields[0], `"'`))
	if exe != DefaultCommand && exe != filepath.Base(c.command) {
		return "", false
	}
	return fields[2], true
}

// settingsDoc is a loaded settings file.
type settingsDoc struct {
	root   *jsondoc.Node
	raw    []byte
	exists bool
}

func (c *ClaudeCode) load() (settingsDoc, error) {
	raw, exists, err := fsutil.ReadFileIfExists(c.settings)
	if err != nil {
		return settingsDoc{}, fmt.Errorf("%w: reading %s: %v", ErrConfigParse, c.settings, err)
	}
	doc := settingsDoc{raw: raw, exists: exists}
	if strings.TrimSpace(string(raw)) == "" {
		doc.root = jsondoc.NewObject()
		return doc, nil
	}
	root, err := jsondoc.Parse(raw)
	if err != nil {
		return settingsDoc{}, fmt.Errorf("%w: %s: %v", ErrConfigParse, c.settings, err)
	}
	if root.Kind() != jsondoc.KindObject {
		return settingsDoc{}, fmt.Errorf("%w: %s: top level is %s, want object", ErrConfigParse, c.settings, root.Kind())
	}
	doc.root = root
	return doc, nil
}

func (c *ClaudeCode) hooksObject(root *jsondoc.Node, create bool) (*jsondoc.Node, error) {
	h, ok := root.Get("hooks")
	if !ok {
		if !create {
			return nil, nil
		}
		h = jsondoc.NewObject()
		root.Set("hooks", h)
	}
	if h.Kind() != jsondoc.KindObject {
		return nil, fmt.Errorf("%w: %s: \"hooks\" is %s, want object", ErrConfigParse, c.settings, h.Kind())
	}
	return h, nil
}

func (c *ClaudeCode) section(hooksObj *jsondoc.Node, name string, create bool) (*jsondoc.Node, error) {
	arr, ok := hooksObj.Get(name)
	if !ok {
		if !create {
			return nil, nil
		}
		arr = jsondoc.NewArray()
		hooksObj.Set(name, arr)
	}
	if arr.Kind() != jsondoc.KindArray {
		return nil, fmt.Errorf("%w: %s: hooks.%s is %s, want array", ErrConfigParse, c.settings, name, arr.Kind())
	}
	return arr, nil
}

// entryCommands yields the command hooks inside one matcher entry.
func entryCommands(entry *jsondoc.Node) []*jsondoc.Node {
	list, ok := entry.Get("hooks")
	if !ok {
		return nil
	}
	return list.Items()
}

func commandOf(hook *jsondoc.Node) string {
	cmdNode, ok := hook.Get("command")
	if !ok {
		return ""
	}
	cmd, _ := cmdNode.Str()
	return cmd
}

func (c *ClaudeCode) hasEvent(arr *jsondoc.Node, event string) bool {
	for _, entry := range arr.Items() {
		for _, hook := range entryCommands(entry) {
			if ev, ok := c.ownedEvent(commandOf(hook)); ok && ev == event {
				return true
			}
		}
	}
	return false
}

func (c *ClaudeCode) newEntry(event string) *jsondoc.Node {
	hook := jsondoc.NewObject()
	hook.Set("type", jsondoc.NewString("command"))
	hook.Set("command", jsondoc.NewString(c.commandFor(event)))
	hook.Set("async", jsondoc.NewBool(true))

	entry := jsondoc.NewObject()
	entry.Set("matcher", jsondoc.NewString(""))
	entry.Set("hooks", jsondoc.NewArray(hook))
	return entry
}

// staleCommands returns the owned command hooks in arr whose command line
// differs from the one this adapter would write.
func (c *ClaudeCode) staleCommands(arr *jsondoc.Node) []*jsondoc.Node {
	var stale []*jsondoc.Node
	for _, entry := range arr.Items() {
		for _, hook := range entryCommands(entry) {
			cmd := commandOf(hook)
			if ev, ok := c.ownedEvent(cmd); ok && cmd != c.commandFor(ev) {
				stale = append(stale, hook)
			}
		}
	}
	return stale
}

// retarget points owned commands at the configured executable and returns
// the sections it rewrote.
func (c *ClaudeCode) retarget(root *jsondoc.Node) []string {
	hooksObj, err := c.hooksObject(root, false)
	if err != nil || hooksObj == nil {
		return nil
	}
	var updated []string
	for _, name := range hooksObj.Keys() {
		arr, _ := hooksObj.Get(name)
		if arr.Kind() != jsondoc.KindArray {
			continue
		}
		stale := c.staleCommands(arr)
		for _, hook := range stale {
			ev, _ := c.ownedEvent(commandOf(hook))
			hook.Set("command", jsondoc.NewString(c.commandFor(ev)))
		}
		if len(stale) > 0 {
			updated = append(updated, name)
		}
	}
	return updated
}

// ensure adds missing hooks to root and returns the sections it touched.
func (c *ClaudeCode) ensure(root *jsondoc.Node) ([]string, error) {
	hooksObj, err := c.hooksObject(root, true)
	if err != nil {
		return nil, err
	}
	var added []string
	for _, h := range claudeHooks {
		arr, err := c.section(hooksObj, h.Section, true)
		if err != nil {
			return nil, err
		}
		if c.hasEvent(arr, h.Event) {
			continue
		}
		arr.Append(c.newEntry(h.Event))
		added = append(added, h.Section)
	}
	return added, nil
}

// strip removes every pulse-owned command from root. Containers are dropped
// only when this removal is what emptied them.
func (c *ClaudeCode) strip(root *jsondoc.Node) ([]string, error) {
	hooksObj, err := c.hooksObject(root, false)
	if err != nil || hooksObj == nil {
		return nil, err
	}

	var removed []string
	for _, name := range hooksObj.Keys() {
		arr, _ := hooksObj.Get(name)
		if arr.Kind() != jsondoc.KindArray {
			continue
		}
		n := c.stripSection(arr)
		if n == 0 {
			continue
		}
		removed = append(removed, name)
		if arr.Len() == 0 {
			hooksObj.Delete(name)
		}
	}
	if len(removed) > 0 && hooksObj.Len() == 0 {
		root.Delete("hooks")
	}
	return removed, nil
}

func (c *ClaudeCode) stripSection(arr *jsondoc.Node) int {
	total := 0
	kept := make([]*jsondoc.Node, 0, arr.Len())
	for _, entry := range arr.Items() {
		list, ok := entry.Get("hooks")
		if !ok || list.Kind() != jsondoc.KindArray {
			kept = append(kept, entry)
			continue
		}
		items := make([]*jsondoc.Node, 0, list.Len())
		for _, hook := range list.Items() {
			if _, owned := c.ownedEvent(commandOf(hook)); owned {
				continue
			}
			items = append(items, hook)
		}
		removed := list.Len() - len(items)
		total += removed
		if removed > 0 && len(items) == 0 {
			continue
		}
		list.SetItems(items)
		kept = append(kept, entry)
	}
	arr.SetItems(kept)
	return total
}

func (c *ClaudeCode) format(doc settingsDoc) jsondoc.Format {
	if !doc.exists {
		return jsondoc.DefaultFormat
	}
	return jsondoc.DetectFormat(doc.raw)
}

func (c *ClaudeCode) write(doc settingsDoc) error {
	out := doc.root.Encode(c.format(doc))
	if err := fsutil.WriteFileAtomic(c.settings, out, 0o644); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConfigWrite, c.settings, err)
	}
	return nil
}

func (c *ClaudeCode) Install() (Result, error) {
	res := Result{Agent: c.Name(), Path: c.settings}
	if !c.Detect() {
		return res, ErrNotDetected
	}
	doc, err := c.load()
	if err != nil {
		return res, err
	}
	added, err := c.ensure(doc.root)
	if err != nil {
		return res, err
	}
	updated := c.retarget(doc.root)
	if len(added) == 0 && len(updated) == 0 {
		log.Debug(log.CatHooks, "claude hooks already present", "path", c.settings)
		return res, nil
	}
	if err := c.write(doc); err != nil {
		return res, err
	}
	res.Added, res.Updated = added, updated
	log.Info(log.CatHooks, "installed claude hooks", "path", c.settings, "added", len(added), "updated", len(updated))
	return res, nil
}

func (c *ClaudeCode) Uninstall() (Result, error) {
	res := Result{Agent: c.Name(), Path: c.settings}
	doc, err := c.load()
	if err != nil {
		return res, err
	}
	if !doc.exists {
		return res, nil
	}
	removed, err := c.strip(doc.root)
	if err != nil {
		return res, err
	}
	if len(removed) == 0 {
		return res, nil
	}
	res.Removed = removed

	// An empty settings object and a missing file mean the same to Claude Code.
	if doc.root.Len() == 0 {
		if _, err := fsutil.RemoveFile(c.settings); err != nil {
			return res, fmt.Errorf("%w: %s: %v", ErrConfigWrite, c.settings, err)
		}
		log.Info(log.CatHooks, "removed empty claude settings", "path", c.settings)
		return res, nil
	}
	if err := c.write(doc); err != nil {
		return res, err
	}
	log.Info(log.CatHooks, "uninstalled claude hooks", "path", c.settings, "removed", len(removed))
	return res, nil
}

func (c *ClaudeCode) Status() (HookStatus, error) {
	if !c.Detect() {
		return notDetected(c.Name(), c.settings, claudeSections()), nil
	}
	st := HookStatus{Agent: c.Name(), Detected: true, Path: c.settings}
	doc, err := c.load()
	if err != nil {
		st.Message = err.Error()
		return st, err
	}
	hooksObj, err := c.hooksObject(doc.root, false)
	if err != nil {
		st.Message = err.Error()
		return st, err
	}
	for _, h := range claudeHooks {
		present := false
		if hooksObj != nil {
			if arr, ok := hooksObj.Get(h.Section); ok && arr.Kind() == jsondoc.KindArray {
				present = c.hasEvent(arr, h.Event)
				if len(c.staleCommands(arr)) > 0 {
					st.Outdated = true
				}
			}
		}
		st.Hooks = append(st.Hooks, HookPresence{Name: h.Section, Installed: present})
	}
	if st.Outdated {
		st.Message = "hook commands do not run " + c.command
	}
	return st, nil
}

// PreviewInstall returns the settings file before and after Install.
func (c *ClaudeCode) PreviewInstall() ([]FileChange, error) {
	doc, err := c.load()
	if err != nil {
		return nil, err
	}
	before := doc.raw
	added, err := c.ensure(doc.root)
	if err != nil {
		return nil, err
	}
	after := before
	if updated := c.retarget(doc.root); len(added) > 0 || len(updated) > 0 {
		after = doc.root.Encode(c.format(doc))
	}
	return []FileChange{{Path: c.settings, Before: before, After: after}}, nil
}

func claudeSections() []string {
	names := make([]string, len(claudeHooks))
	for i, h := range claudeHooks {
		names[i] = h.Section
	}
	return names
}
