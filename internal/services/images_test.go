package services

import "testing"

func TestPublicURL(t *testing.T) {
	archiver := &ImageArchiver{bucketName: "wedding-photos", region: "ap-southeast-2"}
	got := archiver.publicURL("listing-images/lst-1/000.jpg")
	want := "https://wedding-photos.s3.ap-southeast-2.amazonaws.com/listing-images/lst-1/000.jpg"
	if got != want {
		t.Errorf("publicURL = %q, want %q", got, want)
	}
}

func TestPublicURLDefaultRegion(t *testing.T) {
	archiver := &ImageArchiver{bucketName: "wedding-photos"}
	got := archiver.publicURL("k")
	want := "https://wedding-photos.s3.ap-southeast-2.amazonaws.com/k"
	if got != want {
		t.Errorf("publicURL = %q, want %q", got, want)
	}
}

func TestAllowedImageTypes(t *testing.T) {
	tests := []struct {
		contentType string
		wantExt     string
		allowed     bool
	}{
		{"image/jpeg", ".jpg", true},
		{"image/png", ".png", true},
		{"image/webp", ".webp", true},
		{"image/gif", ".gif", true},
		{"image/svg+xml", "", false},
		{"text/html", "", false},
	}
	for _, tt := range tests {
		ext, ok := allowedImageTypes[tt.contentType]
		if ok != tt.allowed {
			t.Errorf("%s allowed = %t, want %t", tt.contentType, ok, tt.allowed)
			continue
		}
		if ok && ext != tt.wantExt {
			t.Errorf("%s extension = %q, want %q", tt.contentType, ext, tt.wantExt)
		}
	}
}
