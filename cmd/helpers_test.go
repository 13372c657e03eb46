package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func writeTempFile(t *testing.T, dir string, name string, lines []string) string {
	path := filepath.Join(dir, name)
	content := []byte(joinLines(lines))
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func joinLines(lines []string) string {
	buf := bytes.Buffer{}
	for i, line := range lines {
		buf.WriteString(line)
		if i < len(lines)-1 {
			buf.WriteString("\n")
		}
	}
	return buf.String()
}

// sampleExport is a short two-party export with one system line.
var sampleExport = []string{
	"12/05/24, 14:00 - Messages are end-to-end encrypted",
	"12/05/24, 14:03 - İrem: Ankara'ya gidiyorum",
	"12/05/24, 14:04 - Çağın: selam",
	"12/05/24, 14:05 - İrem: IBAN TR330006100519786457841326",
}

// resetConfig clears viper and installs the routing table used by the
// command tests.
func resetConfig(t *testing.T, format string) {
	t.Helper()
	viper.Reset()
	viper.Set("format", format)
	viper.Set("color", "never")
	viper.Set("routing", []map[string]any{
		{"prefix": "İrem", "key": "i"},
		{"prefix": "Çağın", "key": "ç"},
	})
	t.Cleanup(viper.Reset)
}

// newTestCmd returns a bare command writing to out with the given flags
// registered.
func newTestCmd(out *bytes.Buffer, flags func(*cobra.Command)) *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.SetOut(out)
	if flags != nil {
		flags(cmd)
	}
	return cmd
}

// newFakeOllama serves a reachable Ollama API whose chat endpoint always
// answers with content.
func newFakeOllama(t *testing.T, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Write([]byte("Ollama is running"))
		case "/api/tags":
			json.NewEncoder(w).Encode(map[string]any{
				"models": []map[string]string{{"name": "llama3.2", "model": "llama3.2"}},
			})
		case "/api/chat":
			json.NewEncoder(w).Encode(map[string]any{
				"model":   "llama3.2",
				"message": map[string]string{"role": "assistant", "content": content},
				"done":    true,
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}
