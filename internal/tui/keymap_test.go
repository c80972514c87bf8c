package tui

import (
	"testing"

	"charm.land/bubbles/v2/key"
)

// TestParseBindingKeys verifies key parsing behavior for configured overrides.
func TestParseBindingKeys(t *testing.T) {
	t.Run("space aliases", func(t *testing.T) {
		keys, help := parseBindingKeys("space", ".")
		if len(keys) != 2 || keys[0] != " " || keys[1] != "space" {
			t.Fatalf("unexpected parsed space keys %#v", keys)
		}
		if help != "space" {
			t.Fatalf("unexpected space help text %q", help)
		}
	})

	t.Run("uppercase rune includes shift alias", func(t *testing.T) {
		keys, help := parseBindingKeys("Z", "z")
		if len(keys) != 2 || keys[0] != "Z" || keys[1] != "shift+z" {
			t.Fatalf("unexpected uppercase parsed keys %#v", keys)
		}
		if help != "Z" {
			t.Fatalf("unexpected uppercase help text %q", help)
		}
	})

	t.Run("multi rune lowercases key matcher", func(t *testing.T) {
		keys, help := parseBindingKeys("Ctrl+R", "r")
		if len(keys) != 1 || keys[0] != "ctrl+r" {
			t.Fatalf("unexpected multi-rune parsed keys %#v", keys)
		}
		if help != "Ctrl+R" {
			t.Fatalf("unexpected multi-rune help text %q", help)
		}
	})

	t.Run("blank uses fallback", func(t *testing.T) {
		keys, help := parseBindingKeys("", "x")
		if len(keys) != 1 || keys[0] != "x" {
			t.Fatalf("unexpected fallback parsed keys %#v", keys)
		}
		if help != "x" {
			t.Fatalf("unexpected fallback help text %q", help)
		}
	})
}

// TestConfigureBinding verifies binding override application behavior.
func TestConfigureBinding(t *testing.T) {
	b := key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "old"))
	configureBinding(&b, "ctrl+b", "R", "rebalance group")
	keys := b.Keys()
	if len(keys) != 1 || keys[0] != "ctrl+b" {
		t.Fatalf("unexpected configured keys %#v", keys)
	}
	if b.Help().Key != "ctrl+b" || b.Help().Desc != "rebalance group" {
		t.Fatalf("unexpected configured help %#v", b.Help())
	}
}

// TestKeyMapApplyConfig verifies ordering overrides and fallbacks.
func TestKeyMapApplyConfig(t *testing.T) {
	k := newKeyMap()
	k.applyConfig(KeyConfig{
		MoveTaskUp:   "ctrl+k",
		MoveTaskDown: "ctrl+j",
		Rebalance:    "B",
	})

	assertKeys := func(name string, binding key.Binding, expected ...string) {
		t.Helper()
		got := binding.Keys()
		if len(got) != len(expected) {
			t.Fatalf("%s key count mismatch got=%#v expected=%#v", name, got, expected)
		}
		for i := range expected {
			if got[i] != expected[i] {
				t.Fatalf("%s key mismatch got=%#v expected=%#v", name, got, expected)
			}
		}
	}

	assertKeys("move up", k.moveTaskUp, "ctrl+k")
	assertKeys("move down", k.moveTaskDown, "ctrl+j")
	assertKeys("move first", k.moveTaskFirst, "g")
	assertKeys("move last", k.moveTaskLast, "G", "shift+g")
	assertKeys("rebalance", k.rebalance, "B", "shift+b")
}

// TestKeyMapHelpCoversOrderingKeys verifies help groups list every ordering action.
func TestKeyMapHelpCoversOrderingKeys(t *testing.T) {
	k := newKeyMap()
	seen := map[string]bool{}
	for _, group := range k.FullHelp() {
		for _, binding := range group {
			seen[binding.Help().Desc] = true
		}
	}
	for _, desc := range []string{"move task up", "move task down", "move task first", "move task last", "rebalance group"} {
		if !seen[desc] {
			t.Fatalf("expected full help to include %q", desc)
		}
	}
	if len(k.ShortHelp()) == 0 {
		t.Fatal("expected short help bindings")
	}
}
