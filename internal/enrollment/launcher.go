// internal/enrollment/launcher.go
package enrollment

import (
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// CommandLauncher opens enrollment popups by spawning a browser process in
// app mode (dev/desktop bring-up; real deployments front a browser client
// that implements Launcher natively). A spawned process holds no reference
// to this process, so DetachOpener is trivially satisfied.
type CommandLauncher struct {
	// Command template, e.g. "chromium". Geometry is appended as app-mode
	// window flags.
	Browser string
}

func (l *CommandLauncher) Open(url, title string, geom Geometry, scrollbars bool) (PopupWindow, error) {
	browser := l.Browser
	if browser == "" {
		return nil, fmt.Errorf("no browser configured")
	}
	args := []string{
		"--app=" + url,
		fmt.Sprintf("--window-size=%d,%d", geom.Width, geom.Height),
		fmt.Sprintf("--window-position=%d,%d", geom.Left, geom.Top),
	}
	parts := strings.Fields(browser)
	cmd := exec.Command(parts[0], append(parts[1:], args...)...)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	w := &processWindow{cmd: cmd}
	go func() {
		_ = cmd.Wait()
		w.mu.Lock()
		w.exited = true
		w.mu.Unlock()
	}()
	return w, nil
}

type processWindow struct {
	cmd    *exec.Cmd
	mu     sync.Mutex
	exited bool
}

func (w *processWindow) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.exited
}

// DetachOpener is a no-op: a separate process never had an opener reference.
func (w *processWindow) DetachOpener() {}

// Focus relies on the window manager raising new windows.
func (w *processWindow) Focus() {}
