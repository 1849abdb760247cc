package surface

import (
	"bytes"
	"image"
	"image/png"
	"testing"
)

func pixel(t *testing.T, img image.Image, x, y int) (r, g, b uint32) {
	t.Helper()
	r, g, b, _ = img.At(x, y).RGBA()
	return r >> 8, g >> 8, b >> 8
}

func TestNew_InvalidSize(t *testing.T) {
	if _, err := New(0, 10); err == nil {
		t.Fatal("expected error for zero width")
	}
	if _, err := New(10, -1); err == nil {
		t.Fatal("expected error for negative height")
	}
}

func TestNew_Dimensions(t *testing.T) {
	s, err := New(240, 160)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()
	if s.Width() != 240 || s.Height() != 160 {
		t.Errorf("size = %dx%d", s.Width(), s.Height())
	}
	b := s.Screenshot().Bounds()
	if b.Dx() != 240 || b.Dy() != 160 {
		t.Errorf("screenshot bounds = %v", b)
	}
}

func TestScreenshot_IsCopy(t *testing.T) {
	s, _ := New(20, 20)
	defer s.Close()

	dc := s.Context()
	dc.SetRGB(1, 0, 0)
	dc.DrawRectangle(0, 0, 20, 20)
	if err := dc.Fill(); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	shot := s.Screenshot()
	s.Reset()

	if r, g, _ := pixel(t, shot, 10, 10); r < 200 || g > 50 {
		t.Errorf("screenshot pixel = (%d,%d), want red", r, g)
	}
	if r, g, b := pixel(t, s.Screenshot(), 10, 10); r < 250 || g < 250 || b < 250 {
		t.Errorf("after reset pixel = (%d,%d,%d), want white", r, g, b)
	}
	if s.Resets() != 1 {
		t.Errorf("Resets = %d, want 1", s.Resets())
	}
}

func TestWithBackground(t *testing.T) {
	s, _ := New(4, 4, WithBackground("#000000"))
	defer s.Close()
	if r, g, b := pixel(t, s.Screenshot(), 1, 1); r != 0 || g != 0 || b != 0 {
		t.Errorf("pixel = (%d,%d,%d), want black", r, g, b)
	}
}

func TestEncodePNG(t *testing.T) {
	s, _ := New(8, 6)
	defer s.Close()
	var buf bytes.Buffer
	if err := s.EncodePNG(&buf); err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 6 {
		t.Errorf("decoded bounds = %v", img.Bounds())
	}

	data, err := PNG(s.Screenshot())
	if err != nil || len(data) == 0 {
		t.Fatalf("PNG: %d bytes, %v", len(data), err)
	}
}
