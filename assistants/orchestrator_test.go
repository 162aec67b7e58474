package assistants_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/felix/assistants"
	"github.com/effective-security/felix/chatmodel"
	"github.com/effective-security/felix/mocks/mockllms"
	"github.com/effective-security/felix/pkg/llms"
	"github.com/effective-security/felix/pkg/schema"
	"github.com/effective-security/felix/tools"
	"github.com/effective-security/xlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type weatherRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// stubTool returns a fixed result and records its inputs
type stubTool struct {
	name   string
	result string
	inputs []string
}

func (t *stubTool) Name() string        { return t.name }
func (t *stubTool) Description() string { return "stub " + t.name }
func (t *stubTool) Parameters() any     { return schema.Parameters[weatherRequest]() }
func (t *stubTool) Call(_ context.Context, input string) (string, error) {
	t.inputs = append(t.inputs, input)
	return t.result, nil
}

func newDispatcher(t *testing.T, list ...tools.ITool) *tools.Dispatcher {
	local, err := tools.NewLocalSet(list...)
	require.NoError(t, err)
	d, err := tools.NewDispatcher(local, nil)
	require.NoError(t, err)
	return d
}

func newModel(ctrl *gomock.Controller) *mockllms.MockModel {
	m := mockllms.NewMockModel(ctrl)
	m.EXPECT().GetProviderType().Return(llms.ProviderGoogleAI).AnyTimes()
	m.EXPECT().GetName().Return("gemini-test").AnyTimes()
	return m
}

func reply(content string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: content}},
	}
}

// recorder captures the conversation sent on each call
type recorder struct {
	calls   [][]llms.Message
	replies []string
}

func (r *recorder) generate(_ context.Context, msgs []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	r.calls = append(r.calls, append([]llms.Message(nil), msgs...))
	idx := len(r.calls) - 1
	if idx >= len(r.replies) {
		idx = len(r.replies) - 1
	}
	return reply(r.replies[idx]), nil
}

func TestNewOrchestrator(t *testing.T) {
	_, err := assistants.NewOrchestrator(nil)
	assert.EqualError(t, err, "dispatcher is required")

	o, err := assistants.NewOrchestrator(newDispatcher(t), assistants.WithMaxToolCalls(2))
	require.NoError(t, err)
	assert.Equal(t, 2, o.Config().MaxToolCalls)
	assert.NotNil(t, o.Config().Prompt)
}

func TestOrchestrator_PlainAnswer(t *testing.T) {
	ctrl := gomock.NewController(t)
	model := newModel(ctrl)

	rec := &recorder{replies: []string{"Hello! How can I help you today?"}}
	model.EXPECT().GenerateContent(gomock.Any(), gomock.Any()).DoAndReturn(rec.generate).Times(1)

	weather := &stubTool{name: "get_weather", result: "24°C cloudy"}
	o, err := assistants.NewOrchestrator(newDispatcher(t, weather))
	require.NoError(t, err)

	out := o.Run(context.Background(), model, "hi")
	assert.Equal(t, assistants.StatusAnswered, out.Status)
	assert.Equal(t, "Hello! How can I help you today?", out.Answer)
	assert.NoError(t, out.Err)
	assert.Equal(t, 1, out.Turns)
	assert.Equal(t, 0, out.Calls)

	require.Len(t, rec.calls, 1)
	msgs := rec.calls[0]
	require.Len(t, msgs, 2)
	assert.Equal(t, llms.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].GetContent(), "- get_weather: stub get_weather")
	assert.Equal(t, llms.RoleHuman, msgs[1].Role)
	assert.Equal(t, "hi", msgs[1].GetContent())
	assert.Empty(t, weather.inputs)
}

func TestOrchestrator_ToolRoundTrip(t *testing.T) {
	ctrl := gomock.NewController(t)
	model := newModel(ctrl)

	directive := `{"tool":"get_weather","args":{"latitude":25.03,"longitude":121.56}}`
	rec := &recorder{replies: []string{directive, "It is 24°C and cloudy in Taipei."}}
	model.EXPECT().GenerateContent(gomock.Any(), gomock.Any()).DoAndReturn(rec.generate).Times(2)

	weather := &stubTool{name: "get_weather", result: "24°C cloudy"}
	o, err := assistants.NewOrchestrator(newDispatcher(t, weather))
	require.NoError(t, err)

	out := o.Run(context.Background(), model, "weather in Taipei?")
	assert.Equal(t, assistants.StatusAnswered, out.Status)
	assert.Equal(t, "It is 24°C and cloudy in Taipei.", out.Answer)
	assert.Equal(t, 2, out.Turns)
	assert.Equal(t, 1, out.Calls)

	require.Len(t, weather.inputs, 1)
	assert.JSONEq(t, `{"latitude":25.03,"longitude":121.56}`, weather.inputs[0])

	require.Len(t, rec.calls, 2)
	second := rec.calls[1]
	require.Len(t, second, 4)
	assert.Equal(t, llms.RoleAI, second[2].Role)
	assert.Equal(t, directive, second[2].GetContent())
	assert.Equal(t, llms.RoleHuman, second[3].Role)
	assert.Equal(t, "tool execution result:\n24°C cloudy", second[3].GetContent())
}

func TestOrchestrator_LogsDirective(t *testing.T) {
	var buf bytes.Buffer
	prev := xlog.GetFormatter()
	xlog.SetFormatter(xlog.NewStringFormatter(&buf))
	xlog.SetPackageLogLevel("github.com/effective-security/felix", "assistants", xlog.DEBUG)
	t.Cleanup(func() {
		xlog.SetFormatter(prev)
		xlog.SetPackageLogLevel("github.com/effective-security/felix", "assistants", xlog.INFO)
	})

	ctrl := gomock.NewController(t)
	model := newModel(ctrl)

	directive := `{"tool":"get_weather","args":{"latitude":1,"longitude":2},"reason":"rainy-day-check"}`
	rec := &recorder{replies: []string{directive, "done"}}
	model.EXPECT().GenerateContent(gomock.Any(), gomock.Any()).DoAndReturn(rec.generate).Times(2)

	o, err := assistants.NewOrchestrator(newDispatcher(t, &stubTool{name: "get_weather", result: "ok"}))
	require.NoError(t, err)

	out := o.Run(context.Background(), model, "weather?")
	assert.Equal(t, assistants.StatusAnswered, out.Status)

	logs := buf.String()
	assert.Contains(t, logs, "tool_call")
	// the raw directive is logged, the args alone do not carry the extra member
	assert.Contains(t, logs, "rainy-day-check")
}

func TestOrchestrator_Exhausted(t *testing.T) {
	ctrl := gomock.NewController(t)
	model := newModel(ctrl)

	rec := &recorder{replies: []string{`{"tool":"get_weather","args":{"latitude":1,"longitude":2}}`}}
	model.EXPECT().GenerateContent(gomock.Any(), gomock.Any()).DoAndReturn(rec.generate).Times(assistants.DefaultMaxToolCalls)

	weather := &stubTool{name: "get_weather", result: "24°C cloudy"}
	o, err := assistants.NewOrchestrator(newDispatcher(t, weather))
	require.NoError(t, err)

	out := o.Run(context.Background(), model, "loop forever")
	assert.Equal(t, assistants.StatusExhausted, out.Status)
	assert.Equal(t, assistants.ExhaustedMessage, out.Answer)
	assert.Equal(t, assistants.DefaultMaxToolCalls, out.Turns)
	assert.Equal(t, assistants.DefaultMaxToolCalls, out.Calls)
	assert.Len(t, weather.inputs, assistants.DefaultMaxToolCalls)
	assert.Len(t, out.Messages, 2+2*assistants.DefaultMaxToolCalls)
}

func TestOrchestrator_UnknownTool(t *testing.T) {
	ctrl := gomock.NewController(t)
	model := newModel(ctrl)

	rec := &recorder{replies: []string{`{"tool":"book_flight","args":{}}`, "I can not book flights."}}
	model.EXPECT().GenerateContent(gomock.Any(), gomock.Any()).DoAndReturn(rec.generate).Times(2)

	o, err := assistants.NewOrchestrator(newDispatcher(t))
	require.NoError(t, err)

	out := o.Run(context.Background(), model, "book a flight")
	assert.Equal(t, assistants.StatusAnswered, out.Status)
	assert.Equal(t, "I can not book flights.", out.Answer)
	assert.Equal(t, 1, out.Calls)

	last := rec.calls[1][3]
	assert.Equal(t, "tool execution result:\ntool not found: book_flight", last.GetContent())
}

func TestOrchestrator_Location(t *testing.T) {
	ctrl := gomock.NewController(t)
	model := newModel(ctrl)

	rec := &recorder{replies: []string{"Sunny."}}
	model.EXPECT().GenerateContent(gomock.Any(), gomock.Any()).DoAndReturn(rec.generate).Times(1)

	o, err := assistants.NewOrchestrator(newDispatcher(t))
	require.NoError(t, err)

	rc := chatmodel.NewRequestContext("")
	require.True(t, rc.SetLocation(25.0478, 121.5319))
	ctx := chatmodel.WithRequestContext(context.Background(), rc)

	out := o.Run(ctx, model, "weather here?")
	assert.Equal(t, assistants.StatusAnswered, out.Status)
	assert.Equal(t, "weather here?\n\n(caller location: lat=25.0478, lon=121.5319)", rec.calls[0][1].GetContent())
}

func TestOrchestrator_Errors(t *testing.T) {
	t.Run("rate_limited", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		model := newModel(ctrl)
		model.EXPECT().GenerateContent(gomock.Any(), gomock.Any()).
			Return(nil, llms.RateLimited(errors.New("429 Too Many Requests")))

		o, err := assistants.NewOrchestrator(newDispatcher(t))
		require.NoError(t, err)

		out := o.Run(context.Background(), model, "hi")
		assert.Equal(t, assistants.StatusRateLimited, out.Status)
		assert.True(t, llms.IsRateLimited(out.Err))
		assert.Empty(t, out.Answer)
		assert.Equal(t, 1, out.Turns)
	})

	t.Run("failed", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		model := newModel(ctrl)
		model.EXPECT().GenerateContent(gomock.Any(), gomock.Any()).
			Return(nil, errors.New("connection reset"))

		o, err := assistants.NewOrchestrator(newDispatcher(t))
		require.NoError(t, err)

		out := o.Run(context.Background(), model, "hi")
		assert.Equal(t, assistants.StatusFailed, out.Status)
		assert.EqualError(t, out.Err, "failed to generate content from LLM: connection reset")
		assert.False(t, llms.IsRateLimited(out.Err))
	})

	t.Run("empty", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		model := newModel(ctrl)
		model.EXPECT().GenerateContent(gomock.Any(), gomock.Any()).
			Return(&llms.ContentResponse{}, nil)

		o, err := assistants.NewOrchestrator(newDispatcher(t))
		require.NoError(t, err)

		out := o.Run(context.Background(), model, "hi")
		assert.Equal(t, assistants.StatusFailed, out.Status)
		assert.EqualError(t, out.Err, "model gemini-test returned empty response")
	})

	t.Run("cancelled", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		model := newModel(ctrl)

		o, err := assistants.NewOrchestrator(newDispatcher(t))
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		out := o.Run(ctx, model, "hi")
		assert.Equal(t, assistants.StatusFailed, out.Status)
		assert.ErrorIs(t, out.Err, context.Canceled)
		assert.Equal(t, 0, out.Turns)
	})
}

func TestOrchestrator_CustomParser(t *testing.T) {
	ctrl := gomock.NewController(t)
	model := newModel(ctrl)

	rec := &recorder{replies: []string{"CALL get_weather", "done"}}
	model.EXPECT().GenerateContent(gomock.Any(), gomock.Any()).DoAndReturn(rec.generate).Times(2)

	parser := func(reply string) (*assistants.Directive, bool) {
		name, ok := strings.CutPrefix(reply, "CALL ")
		if !ok {
			return nil, false
		}
		return &assistants.Directive{Tool: name, Args: map[string]any{}}, true
	}

	weather := &stubTool{name: "get_weather", result: "24°C cloudy"}
	o, err := assistants.NewOrchestrator(newDispatcher(t, weather),
		assistants.WithDirectiveParser(parser),
		assistants.WithMaxToolCalls(3),
	)
	require.NoError(t, err)

	out := o.Run(context.Background(), model, "weather")
	assert.Equal(t, assistants.StatusAnswered, out.Status)
	assert.Equal(t, "done", out.Answer)
	assert.Equal(t, []string{"{}"}, weather.inputs)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "answered", assistants.StatusAnswered.String())
	assert.Equal(t, "exhausted", assistants.StatusExhausted.String())
	assert.Equal(t, "rate_limited", assistants.StatusRateLimited.String())
	assert.Equal(t, "failed", assistants.StatusFailed.String())
}
