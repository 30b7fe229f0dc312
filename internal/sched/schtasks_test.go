package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// schtasksHost emulates schtasks.exe with an in-memory registration
// flag.
func schtasksHost() (*fakeRunner, *bool) {
	installed := new(bool)
	r := &fakeRunner{}
	r.respond = func(stdin, name string, args []string) (string, string, int, error) {
		if name != "schtasks.exe" || len(args) == 0 {
			return "", "", 0, nil
		}
		switch args[0] {
		case "/Create":
			*installed = true
			return "SUCCESS: The scheduled task \"CronPilot\" has successfully been created.", "", 0, nil
		case "/Delete":
			*installed = false
			return "", "", 0, nil
		case "/Query":
			if !*installed {
				return "", "ERROR: The system cannot find the file specified.", 1, nil
			}
			return "TaskName: \\CronPilot\nStatus: Ready", "", 0, nil
		case "/Run", "/End":
			return "", "", 0, nil
		}
		return "", "", 1, nil
	}
	return r, installed
}

func newSchtasksUnderTest(t *testing.T, r *fakeRunner) *schtasksScheduler {
	s, err := New(testOptions(t, "windows", r), testLogger())
	require.NoError(t, err)
	return s.(*schtasksScheduler)
}

func TestSchtasksInstallArgumentShape(t *testing.T) {
	r, _ := schtasksHost()
	s := newSchtasksUnderTest(t, r)
	s.opts.IntervalSeconds = 120

	require.NoError(t, s.Install())

	require.NotEmpty(t, r.calls)
	args := r.calls[len(r.calls)-1].Args
	assert.Equal(t, []string{
		"/Create",
		"/TN", "CronPilot",
		"/TR", `"` + s.opts.Executable + `" --once`,
		"/SC", "MINUTE",
		"/MO", "2",
		"/F",
	}, args)
}

func TestSchtasksInstallIsIdempotent(t *testing.T) {
	r, installed := schtasksHost()
	s := newSchtasksUnderTest(t, r)

	require.NoError(t, s.Install())
	require.True(t, s.IsInstalled())
	// /F overwrites the existing registration in place.
	require.NoError(t, s.Install())
	assert.True(t, *installed)
	assert.True(t, s.IsInstalled())
}

func TestSchtasksAccessDenied(t *testing.T) {
	r := &fakeRunner{
		respond: func(stdin, name string, args []string) (string, string, int, error) {
			return "", "ERROR: Access is denied.", 1, nil
		},
	}
	s := newSchtasksUnderTest(t, r)

	err := s.Install()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestSchtasksUninstallNeverInstalled(t *testing.T) {
	r, _ := schtasksHost()
	s := newSchtasksUnderTest(t, r)

	require.NoError(t, s.Uninstall())

	// Only the existence query ran; no delete was attempted.
	for _, call := range r.calls {
		assert.NotEqual(t, "/Delete", call.Args[0])
	}
}

func TestSchtasksStartRequiresInstall(t *testing.T) {
	r, _ := schtasksHost()
	s := newSchtasksUnderTest(t, r)

	assert.ErrorIs(t, s.Start(), ErrNotInstalled)

	require.NoError(t, s.Install())
	assert.NoError(t, s.Start())
}

func TestSchtasksStatusParsesState(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   *bool
	}{
		{"running", "TaskName: \\CronPilot\nStatus: Running", boolPtr(true)},
		{"ready", "TaskName: \\CronPilot\nStatus: Ready", boolPtr(false)},
		{"unknown", "TaskName: \\CronPilot\nStatus: Disabled", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRunner{
				respond: func(stdin, name string, args []string) (string, string, int, error) {
					if len(args) > 2 && args[len(args)-1] == "LIST" {
						return tt.output, "", 0, nil
					}
					return "", "", 0, nil // /Query succeeds: installed
				},
			}
			s := newSchtasksUnderTest(t, r)

			st := s.Status()
			require.True(t, st.Installed)
			if tt.want == nil {
				assert.Nil(t, st.Running)
			} else {
				require.NotNil(t, st.Running)
				assert.Equal(t, *tt.want, *st.Running)
			}
		})
	}
}

func TestSchtasksStatusNotInstalled(t *testing.T) {
	r := &fakeRunner{
		respond: func(stdin, name string, args []string) (string, string, int, error) {
			return "", "ERROR: not found", 1, nil
		},
	}
	s := newSchtasksUnderTest(t, r)

	st := s.Status()
	assert.False(t, st.Installed)
	require.NotNil(t, st.Running)
	assert.False(t, *st.Running)
}
