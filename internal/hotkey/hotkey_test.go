package hotkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Accel
	}{
		{"Alt+M", Accel{Mods: ModAlt, Key: "M"}},
		{"ctrl+m", Accel{Mods: ModCtrl, Key: "M"}},
		{"Ctrl+Shift+Space", Accel{Mods: ModCtrl | ModShift, Key: "Space"}},
		{"Cmd + 1", Accel{Mods: ModSuper, Key: "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRejects(t *testing.T) {
	for _, in := range []string{"", "M", "Hyper+M", "Alt+F13", "Alt+"} {
		_, err := Parse(in)
		assert.Error(t, err, in)
	}
}
