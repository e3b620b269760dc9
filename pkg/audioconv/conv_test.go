package audioconv

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func sine(n, rate int, freq, amp float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amp * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}

func TestWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	in := sine(16000, 16000, 440, 0.5)
	if err := EncodeWAV(f, in, 16000); err != nil {
		t.Fatalf("EncodeWAV() error = %v", err)
	}
	f.Close()

	out, err := DecodeFile(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("DecodeFile() error = %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if d := math.Abs(float64(out[i] - in[i])); d > 1e-3 {
			t.Fatalf("sample %d = %v, want %v", i, out[i], in[i])
		}
	}
}

func TestDecodeResamplesAndLimits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := EncodeWAV(f, sine(8000, 8000, 200, 0.3), 8000); err != nil {
		t.Fatal(err)
	}
	f.Close()

	out, err := DecodeFile(context.Background(), path, Options{SampleRate: 16000})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 16000 {
		t.Errorf("resampled len = %d, want 16000", len(out))
	}

	out, err = DecodeFile(context.Background(), path, Options{SampleRate: 16000, MaxSamples: 100})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 100 {
		t.Errorf("limited len = %d, want 100", len(out))
	}
}

func TestDecodeSniffsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.bin")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := EncodeWAV(f, sine(160, 16000, 440, 0.5), 16000); err != nil {
		t.Fatal(err)
	}
	f.Close()

	out, err := DecodeFile(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("DecodeFile() error = %v", err)
	}
	if len(out) != 160 {
		t.Errorf("len = %d, want 160", len(out))
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("definitely not audio")), ".txt", Options{})
	if err == nil {
		t.Error("Decode() error = nil")
	}
}

func TestToLinear16(t *testing.T) {
	got := ToLinear16([]float32{0, 1, -1, 2})
	want := []byte{
		0x00, 0x00,
		0xff, 0x7f, // 32767
		0x01, 0x80, // -32767
		0xff, 0x7f, // clamped
	}
	if !bytes.Equal(got, want) {
		t.Errorf("ToLinear16() = % x, want % x", got, want)
	}
}

func TestDownmixAndRMS(t *testing.T) {
	mono := downmixInterleaved([]float32{1, 0, 0.5, 0.5}, 2)
	if len(mono) != 2 || mono[0] != 0.5 || mono[1] != 0.5 {
		t.Errorf("downmix = %v", mono)
	}
	if got := RMS([]float32{0.5, -0.5}); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("RMS = %v, want 0.5", got)
	}
	if RMS(nil) != 0 {
		t.Error("RMS(nil) != 0")
	}
}
