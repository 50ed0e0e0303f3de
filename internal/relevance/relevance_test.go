// SPDX-License-Identifier: MIT

package relevance

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reeldoc/reeldoc/internal/llm"
	"github.com/reeldoc/reeldoc/internal/model"
	"github.com/reeldoc/reeldoc/internal/prompt"
)

type fakeClient struct {
	responses []llm.Response
	errs      []error
	calls     int
	requests  []llm.Request
}

func (f *fakeClient) Complete(_ context.Context, req llm.Request) (llm.Response, error) {
	i := f.calls
	f.calls++
	f.requests = append(f.requests, req)
	if i < len(f.errs) && f.errs[i] != nil {
		return llm.Response{}, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return llm.Response{}, errors.New("no scripted response")
}

func (f *fakeClient) Provider() string { return "fake" }
func (f *fakeClient) Model() string    { return "fake-model" }

func relevanceRecord() prompt.Record {
	return prompt.Record{
		ID:                "audio_filter",
		SystemInstruction: "Find the relevant spans for ${keywords}.",
	}
}

func analysisRequest() Request {
	return Request{
		Record:    relevanceRecord(),
		ProxyPath: "/tmp/session/proxy.mp4",
		Transcript: model.Transcript{Segments: []model.TranscriptSegment{
			{StartSec: 0, EndSec: 4, Text: "We start the deploy."},
			{StartSec: 4, EndSec: 9, Text: "Now the rollback path."},
		}},
		Keywords:    []string{"deploy", "rollback"},
		DurationSec: 300,
	}
}

const goodResponse = `{"relevant_segments": [
	{"start": 10, "end": 40, "reason": "deploy walkthrough", "key_timestamps": [12]},
	{"start": 100, "end": 200, "reason": "rollback demo"}
]}`

func TestAnalyzer_HappyPath(t *testing.T) {
	client := &fakeClient{responses: []llm.Response{{Content: goodResponse}}}
	a := NewAnalyzer(client, 0, 0)

	res, err := a.Analyze(context.Background(), analysisRequest())
	require.NoError(t, err)

	assert.False(t, res.Fallback)
	assert.NoError(t, res.FailureErr)
	require.Len(t, res.Moments, 2)
	assert.Equal(t, 10.0, res.Moments[0].StartSec)
	assert.Equal(t, []float64{12}, res.Moments[0].KeyTimestamps)

	require.Equal(t, 1, client.calls)
	sent := client.requests[0]
	assert.Equal(t, "Find the relevant spans for deploy, rollback.", sent.SystemPrompt)
	assert.Contains(t, sent.UserPrompt, "Video duration: 300.0 seconds")
	assert.Contains(t, sent.UserPrompt, "[0.0s - 4.0s] We start the deploy.")
	assert.Contains(t, sent.UserPrompt, `"relevant_segments"`)
	assert.InDelta(t, 0.1, sent.Temperature, 1e-9)
}

func TestAnalyzer_StripsCodeFence(t *testing.T) {
	client := &fakeClient{responses: []llm.Response{{Content: "```json\n" + goodResponse + "\n```"}}}
	a := NewAnalyzer(client, 0, 0)

	res, err := a.Analyze(context.Background(), analysisRequest())
	require.NoError(t, err)
	assert.Len(t, res.Moments, 2)
	assert.Equal(t, 1, client.calls)
}

func TestAnalyzer_RetriesUnparseableOutput(t *testing.T) {
	client := &fakeClient{responses: []llm.Response{
		{Content: "Sure! The relevant parts are the middle third."},
		{Content: goodResponse},
	}}
	a := NewAnalyzer(client, 0, 0)

	res, err := a.Analyze(context.Background(), analysisRequest())
	require.NoError(t, err)

	assert.False(t, res.Fallback)
	assert.Len(t, res.Moments, 2)
	require.Equal(t, 2, client.calls)
	assert.Contains(t, client.requests[1].UserPrompt, "not valid JSON")
	assert.NotContains(t, client.requests[0].UserPrompt, "not valid JSON")
}

func TestAnalyzer_DegradesAfterTwoBadResponses(t *testing.T) {
	client := &fakeClient{responses: []llm.Response{
		{Content: "still prose"},
		{Content: "more prose"},
	}}
	a := NewAnalyzer(client, 0, 0)

	res, err := a.Analyze(context.Background(), analysisRequest())
	require.NoError(t, err)

	assert.True(t, res.Fallback)
	assert.Error(t, res.FailureErr)
	require.Len(t, res.Moments, 1)
	assert.Equal(t, model.Moment{StartSec: 0, EndSec: 300, Reason: "fallback"}, res.Moments[0])
	assert.Equal(t, 2, client.calls)
}

func TestAnalyzer_RetriesTransportError(t *testing.T) {
	client := &fakeClient{
		errs:      []error{errors.New("upstream exploded"), nil},
		responses: []llm.Response{{}, {Content: goodResponse}},
	}
	a := NewAnalyzer(client, 0, 0)

	res, err := a.Analyze(context.Background(), analysisRequest())
	require.NoError(t, err)
	assert.False(t, res.Fallback)
	assert.Len(t, res.Moments, 2)
	assert.Equal(t, 2, client.calls)
}

func TestAnalyzer_EmptyArrayCollapsesToFullSpan(t *testing.T) {
	client := &fakeClient{responses: []llm.Response{{Content: `{"relevant_segments": []}`}}}
	a := NewAnalyzer(client, 0, 0)

	res, err := a.Analyze(context.Background(), analysisRequest())
	require.NoError(t, err)

	assert.True(t, res.Fallback)
	assert.NoError(t, res.FailureErr)
	require.Len(t, res.Moments, 1)
	assert.Equal(t, model.Moment{StartSec: 0, EndSec: 300, Reason: "fallback"}, res.Moments[0])
	assert.Equal(t, 1, client.calls)
}

func TestAnalyzer_AllMomentsDroppedCollapsesToFullSpan(t *testing.T) {
	client := &fakeClient{responses: []llm.Response{
		{Content: `{"relevant_segments": [{"start": 0, "end": 2, "reason": "blip"}]}`},
	}}
	a := NewAnalyzer(client, 0, 0)

	res, err := a.Analyze(context.Background(), analysisRequest())
	require.NoError(t, err)

	assert.True(t, res.Fallback)
	assert.NoError(t, res.FailureErr)
	assert.Equal(t, 1, client.calls)
}

func TestAnalyzer_KeywordsDefault(t *testing.T) {
	client := &fakeClient{responses: []llm.Response{{Content: goodResponse}}}
	a := NewAnalyzer(client, 0, 0)

	req := analysisRequest()
	req.Keywords = nil
	_, err := a.Analyze(context.Background(), req)
	require.NoError(t, err)

	assert.Contains(t, client.requests[0].UserPrompt, "general technical content")
	assert.Equal(t, "Find the relevant spans for general technical content.", client.requests[0].SystemPrompt)
}

func TestAnalyzer_InvalidDuration(t *testing.T) {
	a := NewAnalyzer(&fakeClient{}, 0, 0)

	req := analysisRequest()
	req.DurationSec = 0
	_, err := a.Analyze(context.Background(), req)
	assert.Error(t, err)
}

func TestAnalyzer_CancelledBeforeCall(t *testing.T) {
	client := &fakeClient{}
	a := NewAnalyzer(client, 0, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Analyze(ctx, analysisRequest())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, client.calls)
}

type cancellingClient struct {
	cancel context.CancelFunc
}

func (c *cancellingClient) Complete(ctx context.Context, _ llm.Request) (llm.Response, error) {
	c.cancel()
	return llm.Response{}, ctx.Err()
}

func (c *cancellingClient) Provider() string { return "fake" }
func (c *cancellingClient) Model() string    { return "fake-model" }

func TestAnalyzer_CancelledDuringCallIsNotDegraded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a := NewAnalyzer(&cancellingClient{cancel: cancel}, 0, 0)

	res, err := a.Analyze(ctx, analysisRequest())
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, res.Fallback)
	assert.Empty(t, res.Moments)
}

func TestRenderTranscript_Truncates(t *testing.T) {
	tr := model.Transcript{Segments: []model.TranscriptSegment{
		{StartSec: 0, EndSec: 4, Text: "hello world"},
		{StartSec: 4, EndSec: 8, Text: "hello again"},
	}}

	out := renderTranscript(tr, 50)

	assert.Equal(t, "[0.0s - 4.0s] hello world\n[transcript truncated]\n", out)
}

func TestRenderTranscript_Empty(t *testing.T) {
	assert.Equal(t, "(no transcript available)\n", renderTranscript(model.Transcript{}, 100))

	blank := model.Transcript{Segments: []model.TranscriptSegment{{StartSec: 0, EndSec: 2, Text: ""}}}
	assert.Equal(t, "(no transcript available)\n", renderTranscript(blank, 100))
}
