package agent

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/askflow/internal/procexec"
	"github.com/BaSui01/askflow/types"
)

// writeCLI 写出一个假的智能体 CLI，按 body 输出 stream-json
func writeCLI(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "agent-cli")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

const streamFixture = `cat <<'JSON'
{"type":"system","subtype":"init","session_id":"abc"}
{"type":"assistant","message":{"content":[{"type":"text","text":"Looking it up."},{"type":"tool_use","id":"t1","name":"WebSearch","input":{"query":"go 1.24"}}]}}
{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"t1","content":"Go 1.24 released"}]}}
not json at all
{"type":"assistant","message":{"content":[{"type":"text","text":"Go 1.24 is out."}]}}
{"type":"result","subtype":"success","is_error":false,"result":"Go 1.24 is out."}
JSON`

func TestCLIQuerier_Query(t *testing.T) {
	cli := writeCLI(t, streamFixture)
	q := NewCLIQuerier(CLIConfig{Binary: cli}, nil, zap.NewNop())

	out, err := q.Query(context.Background(), "what is new in go", Options{})

	require.NoError(t, err)
	assert.Equal(t,
		"Looking it up.\n[tool use: WebSearch]\n\n[tool result: Go 1.24 released]\nGo 1.24 is out.",
		out)
}

func TestCLIQuerier_ResultOnly(t *testing.T) {
	cli := writeCLI(t, `echo '{"type":"result","is_error":false,"result":"final text"}'`)
	q := NewCLIQuerier(CLIConfig{Binary: cli}, nil, nil)

	out, err := q.Query(context.Background(), "p", Options{})

	require.NoError(t, err)
	assert.Equal(t, "final text", out)
}

func TestCLIQuerier_ReportedError(t *testing.T) {
	cli := writeCLI(t, `echo '{"type":"result","is_error":true,"result":"max turns reached"}'`)
	q := NewCLIQuerier(CLIConfig{Binary: cli}, nil, nil)

	_, err := q.Query(context.Background(), "p", Options{})

	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrUpstreamError))
	assert.Contains(t, err.Error(), "max turns reached")
}

func TestCLIQuerier_NonZeroExit(t *testing.T) {
	cli := writeCLI(t, `echo "not logged in" >&2; exit 2`)
	q := NewCLIQuerier(CLIConfig{Binary: cli}, nil, nil)

	_, err := q.Query(context.Background(), "p", Options{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "exited with code 2: not logged in")
	_, isExit := procexec.IsExit(err)
	assert.True(t, isExit)
}

func TestCLIQuerier_Timeout(t *testing.T) {
	cli := writeCLI(t, `exec sleep 5`)
	q := NewCLIQuerier(CLIConfig{Binary: cli}, procexec.NewRunner(50*time.Millisecond, nil), nil)

	_, err := q.Query(context.Background(), "p", Options{})

	assert.True(t, types.IsErrorCode(err, types.ErrUpstreamTimeout))
}

func TestCLIQuerier_Args(t *testing.T) {
	q := NewCLIQuerier(CLIConfig{Binary: "claude", MaxTurns: 2, AllowedTools: []string{"WebSearch"}}, nil, nil)

	args := q.Args("hello", Options{})
	assert.Equal(t, []string{
		"-p", "hello",
		"--output-format", "stream-json",
		"--verbose",
		"--max-turns", "2",
		"--allowedTools", "WebSearch",
	}, args)

	args = q.Args("hello", Options{SystemPrompt: "be brief", MaxTurns: 3, AllowedTools: []string{"WebSearch", "WebFetch"}})
	assert.Equal(t, []string{
		"-p", "hello",
		"--output-format", "stream-json",
		"--verbose",
		"--max-turns", "3",
		"--system-prompt", "be brief",
		"--allowedTools", "WebSearch,WebFetch",
	}, args)
}

func TestAccumulator_ToolResultBlocks(t *testing.T) {
	acc := newAccumulator(zap.NewNop())
	acc.consume(`{"type":"user","message":{"content":[{"type":"tool_result","content":[{"type":"text","text":"a"},{"type":"text","text":"b"}]}]}}`)
	acc.consume(`{"type":"assistant","message":{"content":"plain"}}`)

	out, err := acc.text()

	require.NoError(t, err)
	assert.Equal(t, "\n[tool result: a\nb]\nplain", out)
	assert.Equal(t, 2, acc.messages)
}
