package reveal

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/pricofy/reading-pacer/internal/domain"
)

type fakeInvoker struct {
	inputs []*lambda.InvokeInput
	output *lambda.InvokeOutput
	err    error
}

func (f *fakeInvoker) Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	if f.output == nil {
		return &lambda.InvokeOutput{StatusCode: 200}, nil
	}
	return f.output, nil
}

func testChunks() []domain.Chunk {
	return []domain.Chunk{
		{
			{Text: "The", Pause: domain.PauseNone, OriginalIndex: 0},
			{Text: "quick", Pause: domain.PauseLight, OriginalIndex: 1},
		},
		{
			{Text: "fox.", Pause: domain.PauseHard, OriginalIndex: 2},
		},
	}
}

func TestLambda_RevealSendsChunk(t *testing.T) {
	inv := &fakeInvoker{}
	l := NewLambda(inv, "reading-renderer-dev", "pb1", "p1", testChunks(), 450*time.Millisecond)

	if err := l.Reveal(context.Background(), 0); err != nil {
		t.Fatalf("Reveal() error = %v", err)
	}

	if len(inv.inputs) != 1 {
		t.Fatalf("expected 1 invocation, got %d", len(inv.inputs))
	}
	in := inv.inputs[0]
	if aws.ToString(in.FunctionName) != "reading-renderer-dev" {
		t.Errorf("FunctionName = %q", aws.ToString(in.FunctionName))
	}
	if in.InvocationType != types.InvocationTypeRequestResponse {
		t.Errorf("InvocationType = %v, want RequestResponse", in.InvocationType)
	}

	var req RenderRequest
	if err := json.Unmarshal(in.Payload, &req); err != nil {
		t.Fatalf("payload is not a RenderRequest: %v", err)
	}
	if req.PlaybackID != "pb1" || req.ParagraphID != "p1" || req.ChunkIndex != 0 {
		t.Errorf("unexpected request header: %+v", req)
	}
	if len(req.Tokens) != 2 || req.Tokens[1].Text != "quick" {
		t.Errorf("unexpected tokens: %+v", req.Tokens)
	}
	if req.LineBreakPauseMs != 450 {
		t.Errorf("LineBreakPauseMs = %d, want 450", req.LineBreakPauseMs)
	}
}

func TestLambda_RevealErrors(t *testing.T) {
	tests := []struct {
		name    string
		inv     *fakeInvoker
		index   int
		wantErr string
	}{
		{
			name:    "index out of range",
			inv:     &fakeInvoker{},
			index:   5,
			wantErr: "out of range",
		},
		{
			name:    "invoke fails",
			inv:     &fakeInvoker{err: errors.New("throttled")},
			wantErr: "throttled",
		},
		{
			name:    "function error",
			inv:     &fakeInvoker{output: &lambda.InvokeOutput{FunctionError: aws.String("Unhandled")}},
			wantErr: "lambda error: Unhandled",
		},
		{
			name:    "renderer error",
			inv:     &fakeInvoker{output: &lambda.InvokeOutput{Payload: []byte(`{"error":"no session"}`)}},
			wantErr: "renderer error: no session",
		},
		{
			name:    "bad payload",
			inv:     &fakeInvoker{output: &lambda.InvokeOutput{Payload: []byte(`not json`)}},
			wantErr: "failed to parse response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLambda(tt.inv, "fn", "pb", "", testChunks(), 0)
			err := l.Reveal(context.Background(), tt.index)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLambda_RevealEmptyResponse(t *testing.T) {
	inv := &fakeInvoker{output: &lambda.InvokeOutput{Payload: []byte(`{}`)}}
	l := NewLambda(inv, "fn", "pb", "", testChunks(), 0)
	if err := l.Reveal(context.Background(), 1); err != nil {
		t.Errorf("Reveal() error = %v", err)
	}
}
