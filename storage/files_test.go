package storage

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
	"testing"
)

// makeHeader builds a real multipart.FileHeader by writing and re-reading a
// multipart body, the same shape gin hands to the handlers.
func makeHeader(t *testing.T, filename, contentType, content string) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := io.WriteString(part, content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	t.Cleanup(func() { form.RemoveAll() })
	files := form.File["file"]
	if len(files) != 1 {
		t.Fatalf("form files = %d, want 1", len(files))
	}
	return files[0]
}

func newTestStore(t *testing.T, maxBytes int64) *DiskStore {
	t.Helper()
	store, err := NewDiskStore(t.TempDir(), maxBytes)
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	return store
}

func TestValidateRejections(t *testing.T) {
	store := newTestStore(t, 16)

	tests := []struct {
		name   string
		header *multipart.FileHeader
	}{
		{"blocked extension", makeHeader(t, "payload.exe", "application/octet-stream", "x")},
		{"blocked extension mixed case", makeHeader(t, "script.SH", "text/plain", "x")},
		{"blocked content type", makeHeader(t, "notes.txt", "text/javascript", "x")},
		{"blocked content type with params", makeHeader(t, "notes.txt", "text/javascript; charset=utf-8", "x")},
		{"oversize", makeHeader(t, "big.txt", "text/plain", strings.Repeat("a", 32))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.Validate(tt.header); !errors.Is(err, ErrFileRejected) {
				t.Errorf("Validate = %v, want ErrFileRejected", err)
			}
		})
	}

	if err := store.Validate(makeHeader(t, "notes.txt", "text/plain", "hello")); err != nil {
		t.Errorf("Validate accepted file = %v, want nil", err)
	}
}

func TestSaveOpenDeleteRoundtrip(t *testing.T) {
	store := newTestStore(t, 1<<20)

	stored, err := store.Save(makeHeader(t, "report.pdf", "application/pdf", "pdf bytes"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(stored, "report_") || !strings.HasSuffix(stored, ".pdf") {
		t.Errorf("stored name %q does not keep base and extension", stored)
	}

	f, err := store.Open(stored)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil || string(data) != "pdf bytes" {
		t.Fatalf("read back = (%q, %v)", data, err)
	}

	if err := store.Delete(stored); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Open(stored); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("Open after delete = %v, want ErrFileNotFound", err)
	}
	if err := store.Delete(stored); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("Delete twice = %v, want ErrFileNotFound", err)
	}
}

func TestSaveSanitizesName(t *testing.T) {
	store := newTestStore(t, 1<<20)

	stored, err := store.Save(makeHeader(t, "my résumé (final).txt", "text/plain", "x"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if strings.ContainsAny(stored, " ()é/\\") {
		t.Errorf("stored name %q contains unsanitized characters", stored)
	}
}

func TestSaveNamesAreUnique(t *testing.T) {
	store := newTestStore(t, 1<<20)

	first, err := store.Save(makeHeader(t, "dup.txt", "text/plain", "one"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	second, err := store.Save(makeHeader(t, "dup.txt", "text/plain", "two"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if first == second {
		t.Errorf("two saves of %q produced the same stored name %q", "dup.txt", first)
	}
}

func TestOpenRejectsPathEscape(t *testing.T) {
	store := newTestStore(t, 1<<20)

	for _, name := range []string{"", "../secret", "a/b.txt", "..\\..\\x"} {
		if _, err := store.Open(name); !errors.Is(err, ErrFileNotFound) {
			t.Errorf("Open(%q) = %v, want ErrFileNotFound", name, err)
		}
	}
}
