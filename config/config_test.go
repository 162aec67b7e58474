package config_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/effective-security/felix/assistants"
	"github.com/effective-security/felix/chatmodel"
	"github.com/effective-security/felix/config"
	"github.com/effective-security/felix/pkg/llms"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("FELIX_TEST_KEY1", "key-one")
	t.Setenv("FELIX_TEST_KEY2", "key-two")
	t.Setenv("FELIX_TEST_CWA", "cwa-key")

	cfg, err := config.LoadConfig("testdata/felix.yaml")
	require.NoError(t, err)

	assert.Equal(t, llms.ProviderGoogleAI, cfg.LLM.ProviderType())
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.DefaultModel)
	assert.Equal(t, []string{"key-one", "key-two"}, cfg.LLM.APIKeys)
	assert.Equal(t, 3, cfg.Assistant.MaxToolCalls)

	acfg := assistants.NewConfig(cfg.Assistant.Options()...)
	assert.Equal(t, 3, acfg.MaxToolCalls)
	assert.Equal(t, llms.CallOptions{
		Temperature: 0.2,
		MaxTokens:   1024,
		StopWords:   []string{"END"},
	}, llms.CallOptions{}.Apply(acfg.GetCallOptions()...))

	require.Len(t, cfg.MCP.Servers, 2)
	fs := cfg.MCP.Servers[0]
	assert.Equal(t, "filesystem", fs.Name)
	assert.Equal(t, "npx", fs.Command)
	assert.Equal(t, []string{"-y", "@modelcontextprotocol/server-filesystem", "/tmp"}, fs.Arguments)
	assert.Equal(t, map[string]string{"LOG_LEVEL": "debug"}, fs.Environment)
	assert.True(t, fs.Enabled)
	assert.False(t, cfg.MCP.Servers[1].Enabled)

	assert.Equal(t, "cwa-key", cfg.Tools.CWAAPIKey)
	assert.Empty(t, cfg.Tools.TavilyAPIKey)
	assert.Equal(t, 10*time.Second, cfg.Tools.HTTPTimeout.Duration())
	assert.Equal(t, time.Hour, cfg.Cache.TTL.Duration())
	assert.Equal(t, config.DefaultCacheSize, cfg.Cache.Size)
	assert.Equal(t, ":9090", cfg.Server.Listen)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.LoadConfig("testdata/minimal.yaml")
	require.NoError(t, err)

	exp := config.Config{
		Assistant: config.Assistant{MaxToolCalls: 5},
		Tools:     config.Tools{HTTPTimeout: config.DefaultHTTPTimeout},
		Cache:     config.Cache{TTL: config.DefaultCacheTTL, Size: config.DefaultCacheSize},
		Server:    config.Server{Listen: config.DefaultListen},
	}
	exp.LLM = cfg.LLM
	if diff := cmp.Diff(exp, *cfg); diff != "" {
		t.Errorf("unexpected config (-want +got):\n%s", diff)
	}
	assert.Equal(t, llms.ProviderOpenAI, cfg.LLM.ProviderType())
}

func TestLoadConfig_Errors(t *testing.T) {
	tcases := []struct {
		file string
		err  string
	}{
		{file: "", err: "config file is not specified"},
		{file: "testdata/missing.yaml", err: "failed to load config testdata/missing.yaml"},
		{file: "testdata/invalid.yaml", err: "invalid configuration: "},
		{file: "testdata/duplicate.yaml", err: `duplicate MCP server name: "fs"`},
		{file: "testdata/empty_server.yaml", err: "MCP.Servers[0]"},
	}
	for _, tc := range tcases {
		t.Run(tc.file, func(t *testing.T) {
			_, err := config.LoadConfig(tc.file)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.err)
			assert.True(t, chatmodel.IsConfigError(err))
		})
	}
}

func TestValidate_EmptyServer(t *testing.T) {
	cfg := &config.Config{}
	require.NoError(t, yaml.Unmarshal([]byte(`
llm:
  provider: GOOGLEAI
  model: m
  api_keys: [k1]
mcp:
  servers:
    -
`), cfg))
	require.Len(t, cfg.MCP.Servers, 1)
	require.Nil(t, cfg.MCP.Servers[0])

	cfg.SetDefaults()
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, chatmodel.IsConfigError(err))
}

func TestDuration(t *testing.T) {
	var v struct {
		Timeout config.Duration `json:"timeout" yaml:"timeout"`
	}

	require.NoError(t, yaml.Unmarshal([]byte("timeout: 1m30s"), &v))
	assert.Equal(t, 90*time.Second, v.Timeout.Duration())

	require.NoError(t, yaml.Unmarshal([]byte("timeout: 5"), &v))
	assert.Equal(t, 5*time.Second, v.Timeout.Duration())

	require.NoError(t, yaml.Unmarshal([]byte("timeout: 0.5"), &v))
	assert.Equal(t, 500*time.Millisecond, v.Timeout.Duration())

	require.NoError(t, json.Unmarshal([]byte(`{"timeout":1.25}`), &v))
	assert.Equal(t, 1250*time.Millisecond, v.Timeout.Duration())

	require.NoError(t, json.Unmarshal([]byte(`{"timeout":"2h"}`), &v))
	assert.Equal(t, 2*time.Hour, v.Timeout.Duration())

	require.NoError(t, json.Unmarshal([]byte(`{"timeout":""}`), &v))
	assert.Equal(t, time.Duration(0), v.Timeout.Duration())

	assert.Error(t, json.Unmarshal([]byte(`{"timeout":"soon"}`), &v))
	assert.Error(t, yaml.Unmarshal([]byte("timeout: [1]"), &v))

	v.Timeout = config.Duration(45 * time.Second)
	js, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `{"timeout":"45s"}`, string(js))

	ys, err := yaml.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, "timeout: 45s\n", string(ys))
}
