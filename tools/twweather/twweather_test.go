package twweather_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/effective-security/felix/pkg/cwa"
	"github.com/effective-security/felix/tools/twweather"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func Test_Tool(t *testing.T) {
	js, err := os.ReadFile("../../pkg/cwa/testdata/F-D0047-089.json")
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(js)
	}))
	defer server.Close()

	now := time.Date(2025, 3, 1, 8, 30, 0, 0, time.FixedZone("CST", 8*3600))
	client, err := cwa.New("key",
		cwa.WithBaseURL(server.URL),
		cwa.WithHTTPClient(server.Client()),
		cwa.WithClock(func() time.Time { return now }),
	)
	require.NoError(t, err)

	tool := twweather.New(client)
	assert.Equal(t, twweather.ToolName, tool.Name())
	assert.Contains(t, tool.Description(), "Taiwan")

	ctx := context.Background()

	res, err := tool.Call(ctx, `{"location":"台北市"}`)
	require.NoError(t, err)
	require.True(t, gjson.Valid(res), res)

	doc := gjson.Parse(res)
	assert.Equal(t, "臺北市", doc.Get("location").String())
	assert.True(t, doc.Get("isRainingNow").Bool())
	assert.Equal(t, "rain is expected to stop around 10 AM", doc.Get("rainStop").String())
	assert.Equal(t, "2025-03-01T10:00:00+08:00", doc.Get("rainStopTime").String())
	assert.Equal(t, int64(5), doc.Get("periods.#").Int())
	assert.Equal(t, "03-01 08:00", doc.Get("periods.0.time").String())
	assert.Equal(t, int64(80), doc.Get("periods.0.rainProbability").Int())
	assert.Equal(t, "短暫雨", doc.Get("periods.0.weather").String())

	res, err = tool.Call(ctx, `{"location":"高雄"}`)
	require.NoError(t, err)
	doc = gjson.Parse(res)
	assert.False(t, doc.Get("isRainingNow").Bool())
	assert.False(t, doc.Get("rainStop").Exists())

	res, err = tool.Call(ctx, `{"location":"花蓮縣"}`)
	require.NoError(t, err)
	assert.Equal(t, "no forecast is available for 花蓮縣", res)

	res, err = tool.Call(ctx, `{}`)
	require.NoError(t, err)
	assert.Equal(t, "please provide the location name", res)
}
