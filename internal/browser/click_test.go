package browser_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmc/traktlink/internal/browser"
	"github.com/tmc/traktlink/internal/browser/browsertest"
)

func TestResilientClick(t *testing.T) {
	const sel = ".connect"

	tests := []struct {
		name      string
		page      func() *browsertest.Page
		want      bool
		wantCalls []string
	}{
		{
			name: "visible element is clicked directly",
			page: func() *browsertest.Page { return browsertest.NewPage("about:blank", sel) },
			want: true,
			wantCalls: []string{
				"WaitVisible " + sel,
				"Click " + sel,
			},
		},
		{
			name: "click failure falls back to script",
			page: func() *browsertest.Page {
				p := browsertest.NewPage("about:blank", sel)
				p.ClickErr = errors.New("element is covered")
				return p
			},
			want: true,
			wantCalls: []string{
				"WaitVisible " + sel,
				"Click " + sel,
				"ClickScript " + sel,
			},
		},
		{
			name: "absent element is not an error",
			page: func() *browsertest.Page { return browsertest.NewPage("about:blank") },
			want: false,
			wantCalls: []string{
				"WaitVisible " + sel,
				"ClickScript " + sel,
			},
		},
		{
			name: "script failure reports no click",
			page: func() *browsertest.Page {
				p := browsertest.NewPage("about:blank", sel)
				p.ClickErr = errors.New("detached")
				p.ScriptErr = errors.New("execution context destroyed")
				return p
			},
			want: false,
			wantCalls: []string{
				"WaitVisible " + sel,
				"Click " + sel,
				"ClickScript " + sel,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.page()
			got := browser.ResilientClick(context.Background(), p, sel, 20*time.Millisecond)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCalls, p.Calls())
		})
	}
}

func TestResilientClickRunsHookOnce(t *testing.T) {
	p := browsertest.NewPage("about:blank", "#go")
	clicks := 0
	p.OnClick["#go"] = func(*browsertest.Page) { clicks++ }

	require.True(t, browser.ResilientClick(context.Background(), p, "#go", time.Second))
	assert.Equal(t, 1, clicks)
}

func TestFirstPresent(t *testing.T) {
	p := browsertest.NewPage("about:blank", "#second", "#third")

	sel, ok := browser.FirstPresent(context.Background(), p, []string{"#first", "#second", "#third"}, time.Second)
	require.True(t, ok)
	assert.Equal(t, "#second", sel)
}

func TestFirstPresentAppearsLater(t *testing.T) {
	p := browsertest.NewPage("about:blank")
	go func() {
		time.Sleep(50 * time.Millisecond)
		p.Add("#late")
	}()

	sel, ok := browser.FirstPresent(context.Background(), p, []string{"#late"}, 2*time.Second)
	require.True(t, ok)
	assert.Equal(t, "#late", sel)
}

func TestFirstPresentTimeout(t *testing.T) {
	p := browsertest.NewPage("about:blank")

	start := time.Now()
	_, ok := browser.FirstPresent(context.Background(), p, []string{"#missing"}, 30*time.Millisecond)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second)
}
