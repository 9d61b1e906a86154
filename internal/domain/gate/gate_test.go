package gate

import (
	"errors"
	"testing"

	"github.com/panekit/panekit/internal/infrastructure/logging"
)

func newTestGate() *Gate {
	return New(logging.NewNop())
}

func TestCheckContainment(t *testing.T) {
	g := newTestGate()
	if err := g.Register("view_1", []string{"/ext/media"}, nil); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	tests := []struct {
		name    string
		path    string
		allowed bool
	}{
		{"file under root", "/ext/media/logo.png", true},
		{"nested file", "/ext/media/sub/dir/photo.jpg", true},
		{"root itself", "/ext/media", true},
		{"sibling with shared prefix", "/ext/media-other/file", false},
		{"prefix without separator", "/ext/mediaother", false},
		{"unrelated path", "/var/secrets/key", false},
		{"relative path", "ext/media/logo.png", false},
		{"parent of root", "/ext", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.Check("view_1", tt.path)
			if tt.allowed && err != nil {
				t.Errorf("Check(%s) = %v, want allowed", tt.path, err)
			}
			if !tt.allowed && !errors.Is(err, ErrDenied) {
				t.Errorf("Check(%s) = %v, want ErrDenied", tt.path, err)
			}
		})
	}
}

func TestEmptyRootsDenyAll(t *testing.T) {
	g := newTestGate()
	if err := g.Register("view_1", nil, nil); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	paths := []string{"/", "/etc/passwd", "/ext/media/logo.png"}
	for _, p := range paths {
		if err := g.Check("view_1", p); !errors.Is(err, ErrDenied) {
			t.Errorf("Check(%s) = %v, want ErrDenied", p, err)
		}
	}
}

func TestUnregisteredViewDenied(t *testing.T) {
	g := newTestGate()

	if err := g.Check("view_ghost", "/ext/media/logo.png"); !errors.Is(err, ErrDenied) {
		t.Errorf("Check on unregistered view = %v, want ErrDenied", err)
	}
}

func TestTraversalNormalized(t *testing.T) {
	g := newTestGate()
	if err := g.Register("view_1", []string{"/ext/media"}, nil); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// Escapes the root after cleaning
	if err := g.Check("view_1", "/ext/media/../secrets/key"); !errors.Is(err, ErrDenied) {
		t.Errorf("traversal escape = %v, want ErrDenied", err)
	}

	// Stays inside the root after cleaning
	if err := g.Check("view_1", "/ext/media/sub/../logo.png"); err != nil {
		t.Errorf("internal traversal = %v, want allowed", err)
	}
}

func TestDenyPatterns(t *testing.T) {
	g := newTestGate()
	if err := g.Register("view_1", []string{"/ext"}, []string{"/ext/**/*.key"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := g.Check("view_1", "/ext/certs/server.key"); !errors.Is(err, ErrDenied) {
		t.Errorf("deny pattern miss: %v", err)
	}
	if err := g.Check("view_1", "/ext/certs/server.pem"); err != nil {
		t.Errorf("non-matching file denied: %v", err)
	}
}

func TestRootDirectoryPolicy(t *testing.T) {
	g := newTestGate()
	if err := g.Register("view_1", []string{"/"}, nil); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := g.Check("view_1", "/anything/at/all"); err != nil {
		t.Errorf("root policy should admit all absolute paths: %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	g := newTestGate()

	if err := g.Register("view_1", []string{"relative/root"}, nil); !errors.Is(err, ErrBadRoot) {
		t.Errorf("relative root = %v, want ErrBadRoot", err)
	}

	if err := g.Register("view_1", []string{"/ext"}, []string{"["}); err == nil {
		t.Error("invalid deny pattern accepted")
	}
}

func TestRemove(t *testing.T) {
	g := newTestGate()
	if err := g.Register("view_1", []string{"/ext/media"}, nil); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := g.Check("view_1", "/ext/media/logo.png"); err != nil {
		t.Fatalf("expected allowed before removal: %v", err)
	}

	g.Remove("view_1")

	if err := g.Check("view_1", "/ext/media/logo.png"); !errors.Is(err, ErrDenied) {
		t.Errorf("Check after Remove = %v, want ErrDenied", err)
	}
}

func TestPolicyCopy(t *testing.T) {
	g := newTestGate()
	if err := g.Register("view_1", []string{"/ext/media"}, []string{"/ext/**/*.key"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	p, ok := g.Policy("view_1")
	if !ok {
		t.Fatal("Policy not found")
	}

	// Mutating the copy must not affect enforcement
	p.Roots[0] = "/"
	if err := g.Check("view_1", "/etc/passwd"); !errors.Is(err, ErrDenied) {
		t.Error("policy copy mutation leaked into gate")
	}
}

func TestURIRoundTrip(t *testing.T) {
	uri, err := BuildURI("view_01ARZ3NDEKTSV4RRFFQ69G5FAV", "/ext/media/logo.png")
	if err != nil {
		t.Fatalf("BuildURI failed: %v", err)
	}

	want := "view-resource://view_01ARZ3NDEKTSV4RRFFQ69G5FAV/ext/media/logo.png"
	if uri != want {
		t.Errorf("BuildURI = %s, want %s", uri, want)
	}

	viewID, resource, err := ParseURI(uri)
	if err != nil {
		t.Fatalf("ParseURI failed: %v", err)
	}
	if viewID != "view_01ARZ3NDEKTSV4RRFFQ69G5FAV" {
		t.Errorf("viewID = %s", viewID)
	}
	if resource != "/ext/media/logo.png" {
		t.Errorf("resource = %s", resource)
	}
}

func TestParseURIErrors(t *testing.T) {
	bad := []string{
		"file:///etc/passwd",
		"view-resource://",
		"view-resource://viewonly",
		"http://example.com/x",
		"",
	}

	for _, uri := range bad {
		if _, _, err := ParseURI(uri); !errors.Is(err, ErrBadURI) {
			t.Errorf("ParseURI(%q) = %v, want ErrBadURI", uri, err)
		}
	}
}

func TestBuildURIValidation(t *testing.T) {
	if _, err := BuildURI("", "/ext/media/logo.png"); !errors.Is(err, ErrBadURI) {
		t.Error("empty view id accepted")
	}
	if _, err := BuildURI("view_1", "relative/path"); !errors.Is(err, ErrBadURI) {
		t.Error("relative resource accepted")
	}
}
