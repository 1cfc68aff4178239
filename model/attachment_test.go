package model

import (
	"bytes"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestEncodeAttachmentSizeGuard(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{name: "4 MiB accepted", size: 4 * 1024 * 1024, wantErr: false},
		{name: "exactly 5 MiB accepted", size: 5 * 1024 * 1024, wantErr: false},
		{name: "6 MiB rejected", size: 6 * 1024 * 1024, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := bytes.Repeat([]byte{0xAB}, tt.size)
			att, err := EncodeAttachment("blob.bin", "application/octet-stream", data)

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, ErrAttachmentTooLarge) {
					t.Errorf("expected ErrAttachmentTooLarge, got %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			want := base64.StdEncoding.EncodeToString(data)
			if att.Base64Data != want {
				t.Error("payload does not match base64 of original bytes")
			}
		})
	}
}

func TestEncodeAttachmentFields(t *testing.T) {
	att, err := EncodeAttachment("notes.txt", "text/plain", []byte("hello"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if att.Name != "notes.txt" {
		t.Errorf("expected name 'notes.txt', got %q", att.Name)
	}
	if att.MimeType != "text/plain" {
		t.Errorf("expected mime type 'text/plain', got %q", att.MimeType)
	}

	decoded, err := att.Decode()
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if string(decoded) != "hello" {
		t.Errorf("roundtrip mismatch: got %q", decoded)
	}
}

func TestEncodeAttachmentFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	content := []byte("context document body")
	if err := os.WriteFile(path, content, 0600); err != nil {
		t.Fatal(err)
	}

	att, err := EncodeAttachmentFile(path, "text/plain")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if att.Name != "doc.txt" {
		t.Errorf("expected name from file, got %q", att.Name)
	}
	if att.Base64Data != base64.StdEncoding.EncodeToString(content) {
		t.Error("payload does not match base64 of file contents")
	}
}

func TestEncodeAttachmentFileMissing(t *testing.T) {
	_, err := EncodeAttachmentFile(filepath.Join(t.TempDir(), "nope.txt"), "text/plain")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEncodeAttachmentFileOversized(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.bin")
	if err := os.WriteFile(path, bytes.Repeat([]byte{0x01}, 6*1024*1024), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := EncodeAttachmentFile(path, "application/octet-stream")
	if !errors.Is(err, ErrAttachmentTooLarge) {
		t.Errorf("expected ErrAttachmentTooLarge, got %v", err)
	}
}

func TestStripDataURIPrefix(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "data URI stripped",
			input: "data:image/png;base64,aGVsbG8=",
			want:  "aGVsbG8=",
		},
		{
			name:  "bare payload untouched",
			input: "aGVsbG8=",
			want:  "aGVsbG8=",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "data prefix without comma untouched",
			input: "data:text/plain",
			want:  "data:text/plain",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripDataURIPrefix(tt.input); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
