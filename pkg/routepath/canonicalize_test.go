package routepath

import (
	"errors"
	"testing"
)

func TestCanonicalizePath(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantPath    string
		wantQuery   string
		wantChanged bool
		wantErr     error
	}{
		{name: "root", input: "/", wantPath: "/"},
		{name: "empty string", input: "", wantPath: "/", wantChanged: true},
		{name: "no leading slash", input: "about", wantPath: "/about", wantChanged: true},
		{name: "trailing slash", input: "/about/", wantPath: "/about", wantChanged: true},
		{name: "collapse slashes", input: "/blog//post", wantPath: "/blog/post", wantChanged: true},
		{name: "single dot", input: "/blog/./post", wantPath: "/blog/post", wantChanged: true},
		{name: "double dot", input: "/blog/posts/../other", wantPath: "/blog/other", wantChanged: true},
		{name: "double dot to root", input: "/blog/../", wantPath: "/", wantChanged: true},
		{name: "query preserved", input: "/search?q=go&page=2", wantPath: "/search", wantQuery: "q=go&page=2"},
		{name: "valid escape", input: "/a%20b", wantPath: "/a%20b"},
		{name: "backslash", input: "/a\\b", wantErr: ErrBackslashInPath},
		{name: "literal nul", input: "/a\x00b", wantErr: ErrNullByteInPath},
		{name: "encoded nul", input: "/a%00b", wantErr: ErrNullByteInPath},
		{name: "bad escape", input: "/a%GGb", wantErr: ErrInvalidPercentEscape},
		{name: "truncated escape", input: "/a%2", wantErr: ErrInvalidPercentEscape},
		{name: "escapes root", input: "/../secret", wantErr: ErrPathEscapesRoot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalizePath(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("CanonicalizePath(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CanonicalizePath(%q) unexpected error: %v", tt.input, err)
			}
			if got.Path != tt.wantPath {
				t.Errorf("Path = %q, want %q", got.Path, tt.wantPath)
			}
			if got.Query != tt.wantQuery {
				t.Errorf("Query = %q, want %q", got.Query, tt.wantQuery)
			}
			if got.Changed != tt.wantChanged {
				t.Errorf("Changed = %v, want %v", got.Changed, tt.wantChanged)
			}
		})
	}
}

func TestJoin(t *testing.T) {
	tests := []struct {
		parent, segment string
		want            string
	}{
		{"", "/", "/"},
		{"", "/about", "/about"},
		{"/", "/about", "/about"},
		{"/parent", "/child", "/parent/child"},
		{"/parent", "child", "/parent/child"},
		{"/parent", "", "/parent"},
		{"/parent/", "/child/", "/parent/child"},
	}

	for _, tt := range tests {
		got, err := Join(tt.parent, tt.segment)
		if err != nil {
			t.Fatalf("Join(%q, %q) unexpected error: %v", tt.parent, tt.segment, err)
		}
		if got != tt.want {
			t.Errorf("Join(%q, %q) = %q, want %q", tt.parent, tt.segment, got, tt.want)
		}
	}

	if _, err := Join("/a", "b?x=1"); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("Join with query error = %v, want ErrInvalidPath", err)
	}
	if _, err := Join("/", "/../x"); !errors.Is(err, ErrPathEscapesRoot) {
		t.Errorf("Join escaping root error = %v, want ErrPathEscapesRoot", err)
	}
}

func TestValidateTarget(t *testing.T) {
	rejected := []string{
		"http://evil.example/x",
		"https://evil.example/x",
		"//evil.example/x",
		"relative/path",
		"",
	}
	for _, target := range rejected {
		if _, err := ValidateTarget(target); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("ValidateTarget(%q) error = %v, want ErrInvalidPath", target, err)
		}
	}

	got, err := ValidateTarget("/users/./list/?sort=name")
	if err != nil {
		t.Fatalf("ValidateTarget unexpected error: %v", err)
	}
	if got.Path != "/users/list" || got.Query != "sort=name" {
		t.Errorf("ValidateTarget = %+v, want path /users/list query sort=name", got)
	}
}

func TestSplitPathAndQuery(t *testing.T) {
	path, query := SplitPathAndQuery("/a/b?c=d")
	if path != "/a/b" || query != "c=d" {
		t.Errorf("SplitPathAndQuery = (%q, %q), want (/a/b, c=d)", path, query)
	}
	path, query = SplitPathAndQuery("/a")
	if path != "/a" || query != "" {
		t.Errorf("SplitPathAndQuery = (%q, %q), want (/a, \"\")", path, query)
	}
}
