package util

import "testing"

func TestHashKey(t *testing.T) {
	id := "job-12345"
	got := HashKey(id)
	if got != HashKey(id) {
		t.Fatalf("expected stable hash, got %s", got)
	}
	if got == HashKey("job-12346") {
		t.Fatalf("expected distinct hashes for distinct namespaces")
	}
	for _, ch := range got {
		if !((ch >= 'a' && ch <= 'f') || (ch >= '0' && ch <= '9')) {
			t.Fatalf("hash contains non-hex character: %c", ch)
		}
	}
	if len(got) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(got))
	}
}

func TestSanitizeFileNameBasic(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "cv.pdf", want: "cv.pdf"},
		{in: " a/b\\c.pdf ", want: "a_b_c.pdf"},
		{in: "../cv.pdf", wantErr: true},
		{in: "   ", wantErr: true},
	}
	for _, tt := range tests {
		got, err := SanitizeFileName(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("SanitizeFileName(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("SanitizeFileName(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}
