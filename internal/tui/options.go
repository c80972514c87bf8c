package tui

import "strings"

// Option configures a Model at construction.
type Option func(*Model)

// WithPageSize sets how many tasks each page shows; non-positive values keep the service default.
func WithPageSize(size int) Option {
	return func(m *Model) {
		if size > 0 {
			m.pageSize = size
		}
	}
}

// WithKeyConfig applies key overrides.
func WithKeyConfig(cfg KeyConfig) Option {
	return func(m *Model) {
		m.keys.applyConfig(cfg)
	}
}

// WithMarkdownStyle selects the glamour standard style used for descriptions.
func WithMarkdownStyle(style string) Option {
	return func(m *Model) {
		m.markdown.style = style
	}
}

// WithStartParent opens the browser on the children of parentID.
func WithStartParent(parentID string) Option {
	return func(m *Model) {
		m.startParentID = strings.TrimSpace(parentID)
	}
}
