package common

import "errors"

// ErrModulePaused is returned when a mutating entry point is gated off by
// the configuration gateway.
var ErrModulePaused = errors.New("module paused")

// PauseView exposes the current pause state for native modules.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects the call when the module is paused. A nil view means no
// pause gating is configured.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
