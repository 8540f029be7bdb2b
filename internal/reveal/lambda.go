// Package reveal provides the renderers that make chunks visible.
package reveal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/pricofy/reading-pacer/internal/domain"
	"github.com/pricofy/reading-pacer/internal/pacing"
)

// Invoker is the part of the Lambda client the revealer needs.
type Invoker interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// NewLambdaClient creates a Lambda client from the default AWS config.
func NewLambdaClient(ctx context.Context) (*lambda.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return lambda.NewFromConfig(cfg), nil
}

// RenderRequest is the payload sent to the rendering Lambda for one chunk.
type RenderRequest struct {
	PlaybackID       string         `json:"playbackId"`
	ParagraphID      string         `json:"paragraphId,omitempty"`
	ChunkIndex       int            `json:"chunkIndex"`
	Tokens           []domain.Token `json:"tokens"`
	LineBreakPauseMs int64          `json:"lineBreakPauseMs"`
}

// RenderResponse is the rendering Lambda's reply.
type RenderResponse struct {
	Error string `json:"error,omitempty"`
}

// Lambda reveals chunks by invoking a rendering Lambda synchronously; the
// reveal is complete when the function returns.
type Lambda struct {
	client         Invoker
	functionName   string
	playbackID     string
	paragraphID    string
	chunks         []domain.Chunk
	lineBreakPause time.Duration
}

var _ pacing.Revealer = (*Lambda)(nil)

// NewLambda creates a revealer for one paragraph's chunks.
func NewLambda(client Invoker, functionName, playbackID, paragraphID string, chunks []domain.Chunk, lineBreakPause time.Duration) *Lambda {
	return &Lambda{
		client:         client,
		functionName:   functionName,
		playbackID:     playbackID,
		paragraphID:    paragraphID,
		chunks:         chunks,
		lineBreakPause: lineBreakPause,
	}
}

// Reveal renders chunk index.
func (l *Lambda) Reveal(ctx context.Context, index int) error {
	if index < 0 || index >= len(l.chunks) {
		return fmt.Errorf("chunk %d out of range (%d chunks)", index, len(l.chunks))
	}

	payload, err := json.Marshal(RenderRequest{
		PlaybackID:       l.playbackID,
		ParagraphID:      l.paragraphID,
		ChunkIndex:       index,
		Tokens:           l.chunks[index],
		LineBreakPauseMs: l.lineBreakPause.Milliseconds(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	result, err := l.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(l.functionName),
		InvocationType: types.InvocationTypeRequestResponse,
		Payload:        payload,
	})
	if err != nil {
		return fmt.Errorf("failed to invoke %s: %w", l.functionName, err)
	}

	if result.FunctionError != nil {
		return fmt.Errorf("lambda error: %s", *result.FunctionError)
	}

	if len(result.Payload) == 0 {
		return nil
	}

	var resp RenderResponse
	if err := json.Unmarshal(result.Payload, &resp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Error != "" {
		return fmt.Errorf("renderer error: %s", resp.Error)
	}

	return nil
}
