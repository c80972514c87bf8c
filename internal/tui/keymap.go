package tui

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"charm.land/bubbles/v2/key"
)

// KeyConfig holds optional key overrides for ordering actions.
type KeyConfig struct {
	MoveTaskUp    string
	MoveTaskDown  string
	MoveTaskFirst string
	MoveTaskLast  string
	Rebalance     string
}

// keyMap represents key map data used by this package.
type keyMap struct {
	quit          key.Binding
	reload        key.Binding
	toggleHelp    key.Binding
	moveUp        key.Binding
	moveDown      key.Binding
	descend       key.Binding
	ascend        key.Binding
	nextPage      key.Binding
	prevPage      key.Binding
	cycleSort     key.Binding
	moveTaskUp    key.Binding
	moveTaskDown  key.Binding
	moveTaskFirst key.Binding
	moveTaskLast  key.Binding
	rebalance     key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:          key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:        key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		toggleHelp:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		moveUp:        key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "cursor up")),
		moveDown:      key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "cursor down")),
		descend:       key.NewBinding(key.WithKeys("enter", "l", "right"), key.WithHelp("enter/l", "open subtasks")),
		ascend:        key.NewBinding(key.WithKeys("backspace", "h", "left"), key.WithHelp("backspace/h", "parent group")),
		nextPage:      key.NewBinding(key.WithKeys("n", "pgdown"), key.WithHelp("n", "next page")),
		prevPage:      key.NewBinding(key.WithKeys("p", "pgup"), key.WithHelp("p", "previous page")),
		cycleSort:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "cycle sort")),
		moveTaskUp:    key.NewBinding(key.WithKeys("K", "shift+k"), key.WithHelp("K", "move task up")),
		moveTaskDown:  key.NewBinding(key.WithKeys("J", "shift+j"), key.WithHelp("J", "move task down")),
		moveTaskFirst: key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "move task first")),
		moveTaskLast:  key.NewBinding(key.WithKeys("G", "shift+g"), key.WithHelp("G", "move task last")),
		rebalance:     key.NewBinding(key.WithKeys("R", "shift+r"), key.WithHelp("R", "rebalance group")),
	}
}

// applyConfig applies configured overrides to ordering bindings.
func (k *keyMap) applyConfig(cfg KeyConfig) {
	configureBinding(&k.moveTaskUp, cfg.MoveTaskUp, "K", "move task up")
	configureBinding(&k.moveTaskDown, cfg.MoveTaskDown, "J", "move task down")
	configureBinding(&k.moveTaskFirst, cfg.MoveTaskFirst, "g", "move task first")
	configureBinding(&k.moveTaskLast, cfg.MoveTaskLast, "G", "move task last")
	configureBinding(&k.rebalance, cfg.Rebalance, "R", "rebalance group")
}

// configureBinding rebinds b to raw, falling back when raw is blank.
func configureBinding(b *key.Binding, raw, fallback, desc string) {
	keys, help := parseBindingKeys(raw, fallback)
	b.SetKeys(keys...)
	b.SetHelp(help, desc)
}

// parseBindingKeys turns one configured key into matcher keys plus help text.
func parseBindingKeys(raw, fallback string) ([]string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = fallback
	}
	if strings.EqualFold(raw, "space") {
		return []string{" ", "space"}, "space"
	}
	if utf8.RuneCountInString(raw) == 1 {
		r, _ := utf8.DecodeRuneInString(raw)
		if unicode.IsUpper(r) {
			return []string{raw, "shift+" + string(unicode.ToLower(r))}, raw
		}
		return []string{raw}, raw
	}
	return []string{strings.ToLower(raw)}, raw
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.moveUp, k.moveDown, k.moveTaskUp, k.moveTaskDown, k.descend, k.ascend, k.toggleHelp, k.quit,
	}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.moveUp, k.moveDown, k.descend, k.ascend, k.nextPage, k.prevPage},
		{k.moveTaskUp, k.moveTaskDown, k.moveTaskFirst, k.moveTaskLast, k.rebalance},
		{k.cycleSort, k.reload, k.toggleHelp, k.quit},
	}
}
