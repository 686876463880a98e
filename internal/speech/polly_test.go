package speech

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/polly"
)

type fakePollyAPI struct {
	calls int
	audio string
	err   error
}

func (f *fakePollyAPI) SynthesizeSpeech(_ context.Context, _ *polly.SynthesizeSpeechInput, _ ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &polly.SynthesizeSpeechOutput{
		AudioStream: io.NopCloser(strings.NewReader(f.audio)),
	}, nil
}

func TestSynthesizeRejectsEmptyTextBeforeCall(t *testing.T) {
	api := &fakePollyAPI{}
	s := NewSynthesizer(api, t.TempDir(), "Aditi")

	if _, err := s.Synthesize(context.Background(), "   "); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("Synthesize() error = %v, want ErrEmptyText", err)
	}
	if api.calls != 0 {
		t.Fatalf("service called %d times for empty input", api.calls)
	}
}

func TestSynthesizeWritesMP3File(t *testing.T) {
	dir := t.TempDir()
	api := &fakePollyAPI{audio: "fake-mp3-bytes"}
	s := NewSynthesizer(api, dir, "Aditi")

	filename, err := s.Synthesize(context.Background(), "A loan is borrowed money.")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if filepath.Ext(filename) != ".mp3" {
		t.Fatalf("filename = %q, want .mp3 extension", filename)
	}

	data, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		t.Fatalf("read audio file: %v", err)
	}
	if string(data) != "fake-mp3-bytes" {
		t.Fatalf("audio contents = %q", data)
	}
}

func TestSynthesizeDistinctFilenames(t *testing.T) {
	dir := t.TempDir()
	api := &fakePollyAPI{audio: "x"}
	s := NewSynthesizer(api, dir, "Aditi")

	a, err := s.Synthesize(context.Background(), "one")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	b, err := s.Synthesize(context.Background(), "two")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if a == b {
		t.Fatalf("filenames collide: %q", a)
	}
}
