package preview

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/veil-ui/veil/pkg/dom"
	"github.com/veil-ui/veil/pkg/reactive"
	"github.com/veil-ui/veil/pkg/runtime"
)

func TestTreeEndpoint(t *testing.T) {
	app := runtime.NewApp()
	defer app.Close()

	count := reactive.NewSignal(0)
	if err := app.RegisterComponent(&runtime.Component{
		Name: "counter",
		Setup: func(ctx *runtime.Context) (map[string]any, error) {
			return map[string]any{"count": count}, nil
		},
		Template: runtime.Static(`<p>count: {{ count }}</p>`),
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	container := dom.NewElement("div")
	if _, err := app.Mount(container, "counter", nil); err != nil {
		t.Fatalf("mount failed: %v", err)
	}

	srv := New(app, container)
	defer srv.Close()
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	fetch := func(path string) string {
		t.Helper()
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("get %s failed: %v", path, err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return string(body)
	}

	if got := fetch("/tree"); !strings.Contains(got, "count: 0") {
		t.Errorf("expected rendered markup, got %q", got)
	}

	count.Set(7)
	app.Flush()

	if got := fetch("/tree"); !strings.Contains(got, "count: 7") {
		t.Errorf("expected updated markup, got %q", got)
	}

	if got := fetch("/"); !strings.Contains(got, "veil-root") {
		t.Errorf("expected index shell, got %q", got)
	}
}
