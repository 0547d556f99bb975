//go:build darwin

package hotkey

/*
#cgo LDFLAGS: -framework Carbon
#include <Carbon/Carbon.h>

// Forward declaration for Go callback
extern void goHotkeyCallback(int pressed);

static int handlerInstalled = 0;

// Event handler for hotkeys
static OSStatus hotkeyHandler(EventHandlerCallRef nextHandler, EventRef theEvent, void* userData) {
    EventHotKeyID hkRef;
    GetEventParameter(theEvent, kEventParamDirectObject, typeEventHotKeyID, NULL, sizeof(hkRef), NULL, &hkRef);

    UInt32 eventKind = GetEventKind(theEvent);
    int pressed = (eventKind == kEventHotKeyPressed) ? 1 : 0;

    goHotkeyCallback(pressed);
    return noErr;
}

// Register hotkey with Carbon. Returns NULL on failure.
static EventHotKeyRef registerHotkey(UInt32 keyCode, UInt32 modifiers) {
    if (!handlerInstalled) {
        EventTypeSpec eventTypes[2];
        eventTypes[0].eventClass = kEventClassKeyboard;
        eventTypes[0].eventKind = kEventHotKeyPressed;
        eventTypes[1].eventClass = kEventClassKeyboard;
        eventTypes[1].eventKind = kEventHotKeyReleased;

        EventHandlerUPP handlerUPP = NewEventHandlerUPP(hotkeyHandler);
        InstallApplicationEventHandler(handlerUPP, 2, eventTypes, NULL, NULL);
        handlerInstalled = 1;
    }

    EventHotKeyRef hotKeyRef;
    EventHotKeyID hotKeyID;
    hotKeyID.signature = 'ipfl';
    hotKeyID.id = 1;

    OSStatus status = RegisterEventHotKey(keyCode, modifiers, hotKeyID, GetApplicationEventTarget(), 0, &hotKeyRef);
    return (status == noErr) ? hotKeyRef : NULL;
}

static void unregisterHotkey(EventHotKeyRef ref) {
    if (ref != NULL) UnregisterEventHotKey(ref);
}
*/
import "C"

import (
	"fmt"
	"sync"
)

// Carbon virtual key codes (kVK_ANSI_*).
var keyCodes = map[string]C.UInt32{
	"A": 0x00, "S": 0x01, "D": 0x02, "F": 0x03, "H": 0x04, "G": 0x05, "Z": 0x06,
	"X": 0x07, "C": 0x08, "V": 0x09, "B": 0x0B, "Q": 0x0C, "W": 0x0D, "E": 0x0E,
	"R": 0x0F, "Y": 0x10, "T": 0x11, "1": 0x12, "2": 0x13, "3": 0x14, "4": 0x15,
	"6": 0x16, "5": 0x17, "9": 0x19, "7": 0x1A, "8": 0x1C, "0": 0x1D, "O": 0x1F,
	"U": 0x20, "I": 0x22, "P": 0x23, "L": 0x25, "J": 0x26, "K": 0x28, "N": 0x2D,
	"M": 0x2E, "Space": 0x31,
}

// carbonModifiers maps to cmdKey, shiftKey, optionKey and controlKey.
func carbonModifiers(m Modifier) C.UInt32 {
	var out C.UInt32
	if m&ModSuper != 0 {
		out |= 0x100
	}
	if m&ModShift != 0 {
		out |= 0x200
	}
	if m&ModAlt != 0 {
		out |= 0x800
	}
	if m&ModCtrl != 0 {
		out |= 0x1000
	}
	return out
}

type darwinManager struct {
	mu       sync.Mutex
	callback func(bool)
	refs     map[string]C.EventHotKeyRef
}

var (
	globalMu      sync.Mutex
	globalManager *darwinManager
)

// New creates a new macOS hotkey manager using Carbon
func New() (Manager, error) {
	mgr := &darwinManager{refs: make(map[string]C.EventHotKeyRef)}
	return mgr, nil
}

//export goHotkeyCallback
func goHotkeyCallback(pressed C.int) {
	globalMu.Lock()
	m := globalManager
	globalMu.Unlock()
	if m == nil {
		return
	}

	m.mu.Lock()
	cb := m.callback
	m.mu.Unlock()
	if cb != nil {
		cb(pressed == 1)
	}
}

func (m *darwinManager) Register(accel string, callback func(pressed bool)) error {
	a, err := Parse(accel)
	if err != nil {
		return err
	}
	code, ok := keyCodes[a.Key]
	if !ok {
		return fmt.Errorf("hotkey %s: no key code for %s", accel, a.Key)
	}

	ref := C.registerHotkey(code, carbonModifiers(a.Mods))
	if ref == nil {
		return fmt.Errorf("failed to register hotkey %s", accel)
	}

	m.mu.Lock()
	m.callback = callback
	m.refs[accel] = ref
	m.mu.Unlock()

	globalMu.Lock()
	globalManager = m
	globalMu.Unlock()
	return nil
}

func (m *darwinManager) Unregister(accel string) error {
	m.mu.Lock()
	ref, ok := m.refs[accel]
	delete(m.refs, accel)
	m.mu.Unlock()

	if ok {
		C.unregisterHotkey(ref)
	}
	return nil
}

func (m *darwinManager) Close() error {
	m.mu.Lock()
	refs := m.refs
	m.refs = make(map[string]C.EventHotKeyRef)
	m.mu.Unlock()
	for _, ref := range refs {
		C.unregisterHotkey(ref)
	}

	globalMu.Lock()
	globalManager = nil
	globalMu.Unlock()
	return nil
}
