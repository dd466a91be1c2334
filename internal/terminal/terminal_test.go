package terminal

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearTerminalEnv unsets every variable the detectors look at.
func clearTerminalEnv(t *testing.T) {
	t.Helper()
	vars := append([]string{"TERM", "COLORTERM", "CLICOLOR", "CLICOLOR_FORCE", "NO_COLOR"}, ciEnvVars...)
	for _, v := range vars {
		if old, ok := os.LookupEnv(v); ok {
			t.Cleanup(func() { os.Setenv(v, old) })
			os.Unsetenv(v)
		}
	}
}

func TestDetector_IsInteractive(t *testing.T) {
	tests := []struct {
		name            string
		envVars         map[string]string
		options         DetectorOptions
		wantInteractive bool
	}{
		{name: "buffer is not a terminal", wantInteractive: false},
		{name: "force interactive", options: DetectorOptions{ForceInteractive: true}, wantInteractive: true},
		{
			name:            "force interactive overrides CI",
			envVars:         map[string]string{"CI": "true"},
			options:         DetectorOptions{ForceInteractive: true},
			wantInteractive: true,
		},
		{
			name:            "force non-interactive",
			options:         DetectorOptions{ForceNonInteractive: true},
			wantInteractive: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearTerminalEnv(t)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			d := NewDetector(&bytes.Buffer{}, tt.options)
			assert.Equal(t, tt.wantInteractive, d.IsInteractive())
		})
	}
}

func TestIsCIEnvironment(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		want    bool
	}{
		{name: "nothing set", want: false},
		{name: "CI=true", envVars: map[string]string{"CI": "true"}, want: true},
		{name: "CI=1", envVars: map[string]string{"CI": "1"}, want: true},
		{name: "CI=false", envVars: map[string]string{"CI": "false"}, want: false},
		{name: "CI=0", envVars: map[string]string{"CI": "0"}, want: false},
		{name: "GITHUB_ACTIONS", envVars: map[string]string{"GITHUB_ACTIONS": "true"}, want: true},
		{name: "JENKINS_URL", envVars: map[string]string{"JENKINS_URL": "http://jenkins.example.com"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearTerminalEnv(t)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			assert.Equal(t, tt.want, IsCIEnvironment())
		})
	}
}

func TestParseColorMode(t *testing.T) {
	for in, want := range map[string]ColorMode{"": ColorAuto, "auto": ColorAuto, "Always": ColorAlways, " never ": ColorNever} {
		got, err := ParseColorMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseColorMode("sometimes")
	assert.ErrorIs(t, err, ErrInvalidColorMode)
	assert.Equal(t, "always", ColorAlways.String())
}

func TestStreamCapabilities_SupportsColor(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		options Options
		want    bool
	}{
		{name: "flag always on a buffer", options: Options{Color: ColorAlways}, want: true},
		{
			name:    "flag never beats CLICOLOR_FORCE",
			envVars: map[string]string{"CLICOLOR_FORCE": "1"},
			options: Options{Color: ColorNever, DetectorOptions: DetectorOptions{ForceInteractive: true}},
			want:    false,
		},
		{name: "CLICOLOR_FORCE on non-interactive", envVars: map[string]string{"CLICOLOR_FORCE": "1"}, want: true},
		{
			name:    "NO_COLOR on interactive xterm",
			envVars: map[string]string{"NO_COLOR": "", "TERM": "xterm-256color"},
			options: Options{DetectorOptions: DetectorOptions{ForceInteractive: true}},
			want:    false,
		},
		{
			name:    "interactive xterm",
			envVars: map[string]string{"TERM": "xterm-256color"},
			options: Options{DetectorOptions: DetectorOptions{ForceInteractive: true}},
			want:    true,
		},
		{
			name:    "interactive dumb terminal",
			envVars: map[string]string{"TERM": "dumb"},
			options: Options{DetectorOptions: DetectorOptions{ForceInteractive: true}},
			want:    false,
		},
		{
			name:    "CLICOLOR=0 on interactive xterm",
			envVars: map[string]string{"TERM": "xterm", "CLICOLOR": "0"},
			options: Options{DetectorOptions: DetectorOptions{ForceInteractive: true}},
			want:    false,
		},
		{name: "non-interactive xterm", envVars: map[string]string{"TERM": "xterm"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearTerminalEnv(t)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			caps := NewCapabilities(&bytes.Buffer{}, tt.options)
			assert.Equal(t, tt.want, caps.SupportsColor())
		})
	}
}

func TestStatic(t *testing.T) {
	var c Capabilities = Static{Interactive: true}
	assert.True(t, c.IsInteractive())
	assert.False(t, c.SupportsColor())
}
