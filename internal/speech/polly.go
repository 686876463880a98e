package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/google/uuid"
)

// ErrEmptyText is returned before any service call when there is nothing to
// synthesize.
var ErrEmptyText = errors.New("text cannot be empty for speech synthesis")

// SynthesizeAPI is the slice of the Polly SDK this synthesizer uses.
type SynthesizeAPI interface {
	SynthesizeSpeech(ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

// Synthesizer turns reply text into a playable mp3 artifact under outputDir.
type Synthesizer struct {
	api       SynthesizeAPI
	outputDir string
	voiceID   string
}

func NewSynthesizer(api SynthesizeAPI, outputDir, voiceID string) *Synthesizer {
	return &Synthesizer{api: api, outputDir: outputDir, voiceID: voiceID}
}

// Synthesize writes the spoken form of text to a freshly named mp3 file and
// returns its filename for serving under the audio endpoint.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}

	out, err := s.api.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		Text:         aws.String(text),
		OutputFormat: pollytypes.OutputFormatMp3,
		VoiceId:      pollytypes.VoiceId(s.voiceID),
	})
	if err != nil {
		return "", fmt.Errorf("synthesize speech: %w", err)
	}
	if out.AudioStream == nil {
		return "", fmt.Errorf("synthesize speech: no audio stream returned")
	}
	defer out.AudioStream.Close()

	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create tts output dir: %w", err)
	}

	filename := uuid.NewString() + ".mp3"
	f, err := os.Create(filepath.Join(s.outputDir, filename))
	if err != nil {
		return "", fmt.Errorf("create audio file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, out.AudioStream); err != nil {
		return "", fmt.Errorf("write audio file: %w", err)
	}
	return filename, nil
}
