package errors

import (
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{"config error", ErrConfigPort, "Invalid server port", CategoryConfig},
		{"render error", ErrUnknownComponent, "Unknown component", CategoryRender},
		{"archive error", ErrArchiveWrite, "Could not write archived page", CategoryArchive},
		{"unknown error code", "E999", "Unknown error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestNewCopiesSuggestion(t *testing.T) {
	err := New(ErrConfigSyntax)
	if err.Suggestion == "" {
		t.Error("Suggestion should come from the template")
	}
}

func TestVangoError_Error(t *testing.T) {
	cause := stderrors.New("unexpected EOF")
	tests := []struct {
		err  *VangoError
		want string
	}{
		{New(ErrConfigMode), "E111: Invalid render mode"},
		{Newf(CategoryCLI, "no %s", "input"), "no input"},
		{New(ErrConfigSyntax).Wrap(cause), "E103: Invalid JSON in config file: unexpected EOF"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestVangoError_Unwrap(t *testing.T) {
	cause := os.ErrNotExist
	err := New(ErrConfigRead).Wrap(cause)
	if !stderrors.Is(err, os.ErrNotExist) {
		t.Error("errors.Is should see the wrapped error")
	}
}

func TestVangoError_WithLocation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vango-stream.json")
	content := "{\n  \"server\": {\n    \"port\": 8080,\n  },\n  \"log\": {}\n}\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	err := New(ErrConfigSyntax).WithLocation(path, 4, 3)
	if err.Location.String() != path+":4:3" {
		t.Errorf("Location = %q", err.Location.String())
	}
	want := []string{`  "server": {`, `    "port": 8080,`, `  },`, `  "log": {}`, `}`}
	if len(err.Context) != len(want) {
		t.Fatalf("Context = %q, want %q", err.Context, want)
	}
	for i := range want {
		if err.Context[i] != want[i] {
			t.Errorf("Context[%d] = %q, want %q", i, err.Context[i], want[i])
		}
	}

	top := New(ErrConfigSyntax).WithLocation(path, 1, 0)
	if len(top.Context) != 3 {
		t.Errorf("Context at line 1 = %q, want 3 lines", top.Context)
	}

	missing := New(ErrConfigSyntax).WithLocation(filepath.Join(dir, "nope.json"), 1, 1)
	if missing.Context != nil {
		t.Error("Context should be nil for a missing file")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, ErrRenderFault) != nil {
		t.Error("FromError(nil) should be nil")
	}

	plain := stderrors.New("boom")
	ve := FromError(plain, ErrRenderFault)
	if ve.Code != ErrRenderFault || ve.Wrapped != plain {
		t.Errorf("FromError() = %+v", ve)
	}

	orig := New(ErrConfigPort)
	wrapped := stderrors.Join(stderrors.New("context"), orig)
	if FromError(wrapped, ErrRenderFault) != orig {
		t.Error("FromError should return a contained VangoError unchanged")
	}
}

func TestLocation_String(t *testing.T) {
	var nilLoc *Location
	if nilLoc.String() != "" {
		t.Error("nil Location should format as empty")
	}
	if got := (&Location{File: "a.json", Line: 3}).String(); got != "a.json:3" {
		t.Errorf("String() = %q", got)
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := &VangoError{
		Code:       "E103",
		Message:    "Invalid JSON in config file",
		Detail:     "The file could not be parsed.",
		Location:   &Location{File: "vango-stream.json", Line: 2, Column: 5},
		Context:    []string{"{", `  "x" 1`, "}"},
		Suggestion: "Check for trailing commas.",
		Wrapped:    stderrors.New("invalid character"),
	}
	out := err.Format()

	for _, want := range []string{
		"ERROR E103: Invalid JSON in config file",
		"vango-stream.json:2:5",
		`  → ` + "   2 │   \"x\" 1",
		"│     ^",
		"The file could not be parsed.",
		"Cause: invalid character",
		"Hint: Check for trailing commas.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("Format() should not contain ANSI codes when colors are disabled")
	}
}

func TestFormatCompact(t *testing.T) {
	err := New(ErrConfigPort)
	if got := err.FormatCompact(); got != "E110: Invalid server port" {
		t.Errorf("FormatCompact() = %q", got)
	}
	err.Location = &Location{File: "c.json", Line: 4}
	if got := err.FormatCompact(); got != "c.json:4: E110: Invalid server port" {
		t.Errorf("FormatCompact() = %q", got)
	}
}

func TestFormatJSON(t *testing.T) {
	err := New(ErrArchiveWrite).Wrap(stderrors.New("disk full"))
	var got map[string]any
	if e := json.Unmarshal([]byte(err.FormatJSON()), &got); e != nil {
		t.Fatalf("FormatJSON() is not valid JSON: %v", e)
	}
	if got["code"] != ErrArchiveWrite || got["category"] != "archive" || got["cause"] != "disk full" {
		t.Errorf("FormatJSON() = %v", got)
	}
	if _, ok := got["location"]; ok {
		t.Error("location should be omitted when unset")
	}
}

func TestGetAllCodes(t *testing.T) {
	codes := GetAllCodes()
	if len(codes) != len(registry) {
		t.Fatalf("GetAllCodes() returned %d codes, want %d", len(codes), len(registry))
	}
	for i := 1; i < len(codes); i++ {
		if codes[i-1] >= codes[i] {
			t.Errorf("codes not sorted: %s before %s", codes[i-1], codes[i])
		}
	}
	for _, code := range codes {
		tmpl, _ := GetTemplate(code)
		if tmpl.Message == "" || tmpl.Category == "" {
			t.Errorf("template %s is incomplete", code)
		}
	}
}

func TestRegister(t *testing.T) {
	Register("E399", ErrorTemplate{Category: CategoryArchive, Message: "custom"})
	defer delete(registry, "E399")

	if got := New("E399").Message; got != "custom" {
		t.Errorf("Message = %q, want custom", got)
	}
	if _, ok := GetTemplate("E398"); ok {
		t.Error("GetTemplate should fail for unregistered codes")
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("one two three four five six", 10)
	want := []string{"one two", "three four", "five six"}
	if strings.Join(lines, "|") != strings.Join(want, "|") {
		t.Errorf("wrapText() = %q, want %q", lines, want)
	}
	if wrapText("", 10) != nil {
		t.Error("wrapText of empty text should be nil")
	}
}
