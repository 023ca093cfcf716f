package opener

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"sync"

	"github.com/dshills/richview/internal/binding"
)

// Command identifiers.
const (
	CommandOpen       = "ckeditor:open"
	CommandOpenSource = "ckeditor.open.source"
)

// EditorContextMenuNavigation is the editor context menu group holding the
// open command.
const EditorContextMenuNavigation = "editor-context-menu/navigation"

// ErrUnknownCommand is returned when executing an unregistered command.
var ErrUnknownCommand = errors.New("unknown command")

// ErrCommandDisabled is returned when executing a disabled command.
var ErrCommandDisabled = errors.New("command disabled")

// Command describes a command.
type Command struct {
	ID    string
	Label string
}

// CommandHandler implements a command. The argument is the widget the
// command was invoked on, or nil for the current one.
type CommandHandler struct {
	Execute   func(ctx context.Context, arg any) error
	IsEnabled func(arg any) bool
	IsVisible func(arg any) bool
}

// CommandRegistry receives commands.
type CommandRegistry interface {
	RegisterCommand(cmd Command, h CommandHandler)
}

// MenuRegistry receives menu actions.
type MenuRegistry interface {
	RegisterMenuAction(menuPath, commandID string)
}

// ToolbarItem is a widget toolbar entry.
type ToolbarItem struct {
	ID      string
	Command string
	Text    string
	Tooltip string
}

// RegisterCommands registers the open and open-source commands.
func (h *Handler) RegisterCommands(reg CommandRegistry) {
	reg.RegisterCommand(Command{ID: CommandOpen, Label: "Open WYSIWYG"}, CommandHandler{
		Execute:   func(ctx context.Context, arg any) error { return h.OpenForEditor(ctx, arg) },
		IsEnabled: h.canHandleEditorURI,
		IsVisible: h.canHandleEditorURI,
	})
	reg.RegisterCommand(Command{ID: CommandOpenSource}, CommandHandler{
		Execute: func(ctx context.Context, arg any) error {
			_, err := h.OpenSource(ctx, arg)
			return err
		},
		IsEnabled: isBinding,
		IsVisible: isBinding,
	})
}

// RegisterMenus adds the open command to the editor context menu.
func (h *Handler) RegisterMenus(reg MenuRegistry) {
	reg.RegisterMenuAction(EditorContextMenuNavigation, CommandOpen)
}

// ToolbarItems returns the toolbar entries for the two commands.
func (h *Handler) ToolbarItems() []ToolbarItem {
	return []ToolbarItem{
		{ID: CommandOpen, Command: CommandOpen, Text: "$(eye)", Tooltip: "Open WYSIWYG to the Side"},
		{ID: CommandOpenSource, Command: CommandOpenSource, Text: "$(file-o)", Tooltip: "Open Source"},
	}
}

// OpenForEditor reveals the rendered view to the right of the text editor
// arg, or of the current editor when arg is not an Editor.
func (h *Handler) OpenForEditor(ctx context.Context, arg any) error {
	ed := h.currentEditor(arg)
	if ed == nil {
		return nil
	}
	_, err := h.Open(ctx, ed.URI(), &Options{
		Mode:          ModeReveal,
		WidgetOptions: WidgetOptions{Ref: ed, Mode: OpenToRight},
	})
	return err
}

// OpenSource opens the text editor for the binding arg to its left.
// It returns nil, nil when arg is not a binding.
func (h *Handler) OpenSource(ctx context.Context, arg any) (Editor, error) {
	b, ok := arg.(*binding.Binding)
	if !ok || h.editors == nil {
		return nil, nil
	}
	return h.editors.Open(ctx, b.URI(), WidgetOptions{Ref: b, Mode: OpenToLeft})
}

func (h *Handler) canHandleEditorURI(arg any) bool {
	ed := h.currentEditor(arg)
	if ed == nil {
		return false
	}
	return h.scorer.Accepts == nil || h.scorer.Accepts(ed.URI())
}

func (h *Handler) currentEditor(arg any) Editor {
	switch v := arg.(type) {
	case *binding.Binding:
		return nil
	case Editor:
		return v
	case nil:
		if h.editors != nil {
			return h.editors.CurrentEditor()
		}
	}
	return nil
}

func isBinding(arg any) bool {
	_, ok := arg.(*binding.Binding)
	return ok
}

// Commands is an in-process CommandRegistry and MenuRegistry.
type Commands struct {
	mu       sync.RWMutex
	commands map[string]registeredCommand
	menus    map[string][]string
}

type registeredCommand struct {
	cmd Command
	h   CommandHandler
}

// NewCommands creates an empty command registry.
func NewCommands() *Commands {
	return &Commands{
		commands: make(map[string]registeredCommand),
		menus:    make(map[string][]string),
	}
}

// RegisterCommand adds or replaces a command.
func (c *Commands) RegisterCommand(cmd Command, h CommandHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands[cmd.ID] = registeredCommand{cmd: cmd, h: h}
}

// RegisterMenuAction adds commandID to the menu at menuPath.
func (c *Commands) RegisterMenuAction(menuPath, commandID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.menus[menuPath] = append(c.menus[menuPath], commandID)
}

// Get returns a registered command.
func (c *Commands) Get(id string) (Command, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rc, ok := c.commands[id]
	return rc.cmd, ok
}

// IDs returns the registered command identifiers in sorted order.
func (c *Commands) IDs() []string {
	c.mu.RLock()
	ids := make([]string, 0, len(c.commands))
	for id := range c.commands {
		ids = append(ids, id)
	}
	c.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// Menu returns the command identifiers registered at menuPath.
func (c *Commands) Menu(menuPath string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.menus[menuPath]))
	copy(out, c.menus[menuPath])
	return out
}

// IsEnabled reports whether command id is enabled for arg.
func (c *Commands) IsEnabled(id string, arg any) bool {
	c.mu.RLock()
	rc, ok := c.commands[id]
	c.mu.RUnlock()
	if !ok {
		return false
	}
	return rc.h.IsEnabled == nil || rc.h.IsEnabled(arg)
}

// IsVisible reports whether command id is visible for arg.
func (c *Commands) IsVisible(id string, arg any) bool {
	c.mu.RLock()
	rc, ok := c.commands[id]
	c.mu.RUnlock()
	if !ok {
		return false
	}
	return rc.h.IsVisible == nil || rc.h.IsVisible(arg)
}

// Execute runs command id with arg if it is enabled.
func (c *Commands) Execute(ctx context.Context, id string, arg any) error {
	c.mu.RLock()
	rc, ok := c.commands[id]
	c.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, id)
	}
	if rc.h.IsEnabled != nil && !rc.h.IsEnabled(arg) {
		return fmt.Errorf("%w: %s", ErrCommandDisabled, id)
	}
	return rc.h.Execute(ctx, arg)
}

// URIArg is a command argument naming a text editor by URI.
type URIArg struct {
	U *url.URL
}

// URI returns the editor URI.
func (a URIArg) URI() *url.URL {
	return a.U
}
