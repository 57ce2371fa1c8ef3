package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

const testVectorLength = 1536

// embeddingKeywords map to vector dimensions in the fake embeddings endpoint.
var embeddingKeywords = []string{"golang", "cat", "sqlite"}

type testEnv struct {
	dir        string
	configPath string
}

// newTestEnv isolates config, data directory and credentials, and points the OpenAI
// client at a local fake.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	srv := fakeOpenAI(t)

	t.Setenv("HOME", dir)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("TOOLFLOW_PROVIDER", "openai")
	t.Setenv("TOOLFLOW_DATA_DIR", dir)
	t.Setenv("TOOLFLOW_OPENAI_API_KEY", "sk-test123")
	t.Setenv("TOOLFLOW_OPENAI_BASE_URL", srv.URL+"/")

	return &testEnv{dir: dir, configPath: filepath.Join(dir, "config.yaml")}
}

func (e *testEnv) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// run executes the root command with --config pointing at the test environment.
func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	return executeCommand(stdin, append(args, "--config", e.configPath)...)
}

func executeCommand(stdin string, args ...string) (string, string, error) {
	cmd := GetRootCmd()
	resetFlags(cmd)

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// resetFlags restores every flag to its default, since commands are package globals.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func fakeOpenAI(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		_ = json.Unmarshal(data, &body)

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/embeddings":
			input, _ := body["input"].(string)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"object": "list",
				"model":  body["model"],
				"data": []interface{}{
					map[string]interface{}{"object": "embedding", "index": 0, "embedding": keywordVector(input)},
				},
				"usage": map[string]interface{}{"prompt_tokens": 1, "total_tokens": 1},
			})
		case "/chat/completions":
			_, _ = io.WriteString(w, `{"id":"c","object":"chat.completion","created":0,"model":"gpt-4o-mini",
				"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"stub answer"}}],
				"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func keywordVector(text string) []float64 {
	vector := make([]float64, testVectorLength)
	lower := strings.ToLower(text)
	for i, kw := range embeddingKeywords {
		if strings.Contains(lower, kw) {
			vector[i] = 1
		}
	}
	vector[testVectorLength-1] = 0.01
	return vector
}
