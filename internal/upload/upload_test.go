package upload

import (
	"encoding/base64"
	"errors"
	"testing"
)

func TestDetectKind(t *testing.T) {
	cases := []struct {
		name     string
		mimeType string
		want     Kind
		wantErr  bool
	}{
		{"q3-10k.pdf", "application/pdf", KindPDF, false},
		{"SCAN.PDF", "", KindPDF, false},
		{"balance.png", "image/png", KindImage, false},
		{"photo", "image/jpeg", KindImage, false},
		{"model.xlsx", "", KindSpreadsheet, false},
		{"legacy.XLS", "application/octet-stream", KindSpreadsheet, false},
		{"sheet", "application/vnd.ms-excel", KindSpreadsheet, false},
		{"notes.docx", "application/msword", "", true},
		{"script.sh", "text/x-shellscript", "", true},
	}
	for _, tc := range cases {
		got, err := DetectKind(tc.name, tc.mimeType)
		if tc.wantErr {
			if !errors.Is(err, ErrUnsupportedType) {
				t.Fatalf("%s: expected ErrUnsupportedType, got %v", tc.name, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestBuildEncodesBytes(t *testing.T) {
	raw := []byte{0x25, 0x50, 0x44, 0x46} // %PDF
	att, err := Build("reports/fy24.pdf", raw, "application/pdf")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if att.Name != "fy24.pdf" {
		t.Fatalf("expected base name, got %q", att.Name)
	}
	if att.Data != base64.StdEncoding.EncodeToString(raw) {
		t.Fatal("attachment data is not the base64 encoding of the source")
	}
}

func TestBuildRejectsUnsupported(t *testing.T) {
	if _, err := Build("virus.exe", []byte{1}, "application/x-msdownload"); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}
