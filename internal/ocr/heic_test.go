package ocr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// convertRunner fakes a converter by writing its last path argument.
type convertRunner struct {
	calls int
	name  string
	args  []string
	fail  bool
}

func (r *convertRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	r.calls++
	r.name, r.args = name, args
	if r.fail {
		return nil, []byte("no decode delegate"), errors.New("exit status 1")
	}
	return nil, nil, os.WriteFile(args[len(args)-1], []byte("\x89PNG"), 0o644)
}

func TestHEICConverterTempOutput(t *testing.T) {
	r := &convertRunner{}
	c := NewHEICConverter(ConverterSips, "", r, nil)

	out, cleanup, err := c.ToPNG(context.Background(), "/photos/IMG_0001.HEIC")
	if err != nil {
		t.Fatalf("ToPNG: %v", err)
	}
	if cleanup == nil {
		t.Fatal("temp output needs a cleanup func")
	}
	if r.name != "sips" || r.args[0] != "-s" || r.args[3] != "/photos/IMG_0001.HEIC" {
		t.Fatalf("ran %s %v", r.name, r.args)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("output missing: %v", err)
	}
	cleanup()
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("cleanup left %s behind", out)
	}
}

func TestHEICConverterCache(t *testing.T) {
	r := &convertRunner{}
	cache := t.TempDir()
	c := NewHEICConverter(ConverterMagick, cache, r, nil)
	ctx := WithContentHash(context.Background(), "abc123")

	for i := 0; i < 2; i++ {
		out, cleanup, err := c.ToPNG(ctx, "in.heic")
		if err != nil {
			t.Fatalf("ToPNG: %v", err)
		}
		if cleanup != nil {
			t.Fatal("cached output must not be cleaned up")
		}
		if out != filepath.Join(cache, "abc123.png") {
			t.Fatalf("out = %s", out)
		}
	}
	if r.calls != 1 {
		t.Fatalf("converter ran %d times, want 1", r.calls)
	}
}

func TestHEICConverterFailure(t *testing.T) {
	c := NewHEICConverter(ConverterHeifConvert, "", &convertRunner{fail: true}, nil)
	if _, _, err := c.ToPNG(context.Background(), "in.heic"); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewHEICConverterDisabled(t *testing.T) {
	for _, tool := range []string{"", "none"} {
		if c := NewHEICConverter(tool, "", &convertRunner{}, nil); c != nil {
			t.Fatalf("tool %q should disable conversion", tool)
		}
	}
}
