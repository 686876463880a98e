package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	transcribesdk "github.com/aws/aws-sdk-go-v2/service/transcribe"
	transcribetypes "github.com/aws/aws-sdk-go-v2/service/transcribe/types"
)

// ErrJobFailed marks transcription-specific failures (job failure, missing
// transcript) so callers can distinguish them from transport errors.
var ErrJobFailed = errors.New("transcription failed")

// Result is a finished transcription: the transcript text and the language
// tag the service detected.
type Result struct {
	Transcript string
	Language   string
}

// S3API is the slice of the S3 SDK used to stage audio for transcription.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// JobAPI is the slice of the Transcribe SDK this client uses.
type JobAPI interface {
	StartTranscriptionJob(ctx context.Context, params *transcribesdk.StartTranscriptionJobInput, optFns ...func(*transcribesdk.Options)) (*transcribesdk.StartTranscriptionJobOutput, error)
	GetTranscriptionJob(ctx context.Context, params *transcribesdk.GetTranscriptionJobInput, optFns ...func(*transcribesdk.Options)) (*transcribesdk.GetTranscriptionJobOutput, error)
}

// Client submits audio by reference and polls the transcription service for
// the transcript and detected language.
type Client struct {
	s3Client   S3API
	jobs       JobAPI
	httpClient *http.Client
	bucket     string
	pollWait   time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

func NewClient(s3Client S3API, jobs JobAPI, bucket string, pollWait time.Duration, logger *slog.Logger) *Client {
	if pollWait <= 0 {
		pollWait = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		s3Client:   s3Client,
		jobs:       jobs,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		bucket:     bucket,
		pollWait:   pollWait,
		logger:     logger,
		now:        time.Now,
	}
}

// Transcribe uploads the audio, runs a language-identifying transcription
// job, and blocks until the job completes or ctx is done.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader, filename string) (Result, error) {
	if _, err := c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(filename),
		Body:   audio,
	}); err != nil {
		return Result{}, fmt.Errorf("upload %s to %s: %w", filename, c.bucket, err)
	}

	jobName := fmt.Sprintf("job-%s-%d", strings.ReplaceAll(filename, ".", "-"), c.now().Unix())
	fileURI := fmt.Sprintf("s3://%s/%s", c.bucket, filename)

	if _, err := c.jobs.StartTranscriptionJob(ctx, &transcribesdk.StartTranscriptionJobInput{
		TranscriptionJobName: aws.String(jobName),
		Media:                &transcribetypes.Media{MediaFileUri: aws.String(fileURI)},
		MediaFormat:          transcribetypes.MediaFormatMp3,
		IdentifyLanguage:     aws.Bool(true),
	}); err != nil {
		return Result{}, fmt.Errorf("start transcription job %s: %w", jobName, err)
	}

	job, err := c.waitForJob(ctx, jobName)
	if err != nil {
		return Result{}, err
	}

	if job.Transcript == nil || aws.ToString(job.Transcript.TranscriptFileUri) == "" {
		return Result{}, fmt.Errorf("%w: job %s completed without a transcript uri", ErrJobFailed, jobName)
	}

	transcript, err := c.fetchTranscript(ctx, aws.ToString(job.Transcript.TranscriptFileUri))
	if err != nil {
		return Result{}, err
	}

	return Result{
		Transcript: transcript,
		Language:   string(job.LanguageCode),
	}, nil
}

func (c *Client) waitForJob(ctx context.Context, jobName string) (*transcribetypes.TranscriptionJob, error) {
	for {
		out, err := c.jobs.GetTranscriptionJob(ctx, &transcribesdk.GetTranscriptionJobInput{
			TranscriptionJobName: aws.String(jobName),
		})
		if err != nil {
			return nil, fmt.Errorf("poll transcription job %s: %w", jobName, err)
		}

		job := out.TranscriptionJob
		switch job.TranscriptionJobStatus {
		case transcribetypes.TranscriptionJobStatusCompleted:
			return job, nil
		case transcribetypes.TranscriptionJobStatusFailed:
			return nil, fmt.Errorf("%w: job %s: %s", ErrJobFailed, jobName, aws.ToString(job.FailureReason))
		}

		c.logger.Debug("transcription job in progress", "job", jobName, "status", job.TranscriptionJobStatus)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollWait):
		}
	}
}

type transcriptDocument struct {
	Results struct {
		Transcripts []struct {
			Transcript string `json:"transcript"`
		} `json:"transcripts"`
	} `json:"results"`
}

func (c *Client) fetchTranscript(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build transcript request: %w", err)
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch transcript: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", fmt.Errorf("fetch transcript: status %d", res.StatusCode)
	}

	var doc transcriptDocument
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return "", fmt.Errorf("decode transcript: %w", err)
	}
	if len(doc.Results.Transcripts) == 0 {
		return "", fmt.Errorf("%w: no transcript text in result", ErrJobFailed)
	}
	return doc.Results.Transcripts[0].Transcript, nil
}
