// Package loginview holds the login page's password visibility toggle.
package loginview

import "sync"

// PasswordToggle flips the password field type and its icon together.
type PasswordToggle struct {
	mu      sync.Mutex
	visible bool
}

func New() *PasswordToggle {
	return &PasswordToggle{}
}

func (p *PasswordToggle) Toggle() {
	p.mu.Lock()
	p.visible = !p.visible
	p.mu.Unlock()
}

type View struct {
	InputType string // "password" or "text"
	Icon      string // "eye" or "eye-slash"
	AriaLabel string
}

func (p *PasswordToggle) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.visible {
		return View{InputType: "text", Icon: "eye-slash", AriaLabel: "Hide password"}
	}
	return View{InputType: "password", Icon: "eye", AriaLabel: "Show password"}
}
