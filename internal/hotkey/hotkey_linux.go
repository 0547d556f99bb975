//go:build linux

package hotkey

/*
#cgo pkg-config: x11
#include <X11/Xlib.h>
#include <X11/keysym.h>
#include <stdlib.h>

Display* displayPtr = NULL;

// grabKey returns the grabbed keycode, or 0 on failure.
int grabKey(const char* keysymName, int modifiers) {
    if (displayPtr == NULL) {
        displayPtr = XOpenDisplay(NULL);
    }
    if (displayPtr == NULL) return 0;

    KeySym sym = XStringToKeysym(keysymName);
    if (sym == NoSymbol) return 0;
    int keycode = XKeysymToKeycode(displayPtr, sym);
    if (keycode == 0) return 0;

    Window root = DefaultRootWindow(displayPtr);
    XGrabKey(displayPtr, keycode, modifiers, root, False, GrabModeAsync, GrabModeAsync);
    XSelectInput(displayPtr, root, KeyPressMask | KeyReleaseMask);
    XSync(displayPtr, False);

    return keycode;
}

void ungrabKey(int keycode, int modifiers) {
    if (displayPtr == NULL) return;
    XUngrabKey(displayPtr, keycode, modifiers, DefaultRootWindow(displayPtr));
    XSync(displayPtr, False);
}

int checkEvent(int* keycode, int* pressed) {
    if (displayPtr == NULL) return 0;

    XEvent event;
    if (XPending(displayPtr) > 0) {
        XNextEvent(displayPtr, &event);
        if (event.type == KeyPress || event.type == KeyRelease) {
            *keycode = event.xkey.keycode;
            *pressed = (event.type == KeyPress) ? 1 : 0;
            return 1;
        }
    }
    return 0;
}
*/
import "C"

import (
	"fmt"
	"strings"
	"sync"
	"time"
	"unsafe"
)

type grab struct {
	keycode   int
	modifiers int
}

type linuxManager struct {
	mu        sync.Mutex
	callbacks map[int]func(bool)
	grabs     map[string]grab
	stop      chan struct{}
}

// New creates a new Linux hotkey manager using X11
func New() (Manager, error) {
	mgr := &linuxManager{
		callbacks: make(map[int]func(bool)),
		grabs:     make(map[string]grab),
		stop:      make(chan struct{}),
	}

	go mgr.eventLoop()

	return mgr, nil
}

// x11Modifiers maps to ShiftMask, ControlMask, Mod1Mask and Mod4Mask.
func x11Modifiers(m Modifier) int {
	var out int
	if m&ModShift != 0 {
		out |= 1
	}
	if m&ModCtrl != 0 {
		out |= 4
	}
	if m&ModAlt != 0 {
		out |= 8
	}
	if m&ModSuper != 0 {
		out |= 64
	}
	return out
}

func (m *linuxManager) Register(accel string, callback func(pressed bool)) error {
	a, err := Parse(accel)
	if err != nil {
		return err
	}

	name := C.CString(strings.ToLower(a.Key))
	if a.Key == "Space" {
		C.free(unsafe.Pointer(name))
		name = C.CString("space")
	}
	defer C.free(unsafe.Pointer(name))

	modifiers := x11Modifiers(a.Mods)
	keycode := int(C.grabKey(name, C.int(modifiers)))
	if keycode == 0 {
		return fmt.Errorf("failed to grab key %s", accel)
	}

	m.mu.Lock()
	m.callbacks[keycode] = callback
	m.grabs[accel] = grab{keycode: keycode, modifiers: modifiers}
	m.mu.Unlock()
	return nil
}

func (m *linuxManager) eventLoop() {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			var keycode, pressed C.int
			if C.checkEvent(&keycode, &pressed) != 0 {
				m.mu.Lock()
				cb, ok := m.callbacks[int(keycode)]
				m.mu.Unlock()
				if ok {
					cb(pressed == 1)
				}
			}
		}
	}
}

func (m *linuxManager) Unregister(accel string) error {
	m.mu.Lock()
	g, ok := m.grabs[accel]
	delete(m.grabs, accel)
	if ok {
		delete(m.callbacks, g.keycode)
	}
	m.mu.Unlock()

	if ok {
		C.ungrabKey(C.int(g.keycode), C.int(g.modifiers))
	}
	return nil
}

func (m *linuxManager) Close() error {
	close(m.stop)
	return nil
}
