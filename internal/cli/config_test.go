package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alnah/go-subprep/internal/config"
)

// ---------------------------------------------------------------------------
// Tests for runConfigSet
// ---------------------------------------------------------------------------

func TestRunConfigSet_ValidKey(t *testing.T) {
	t.Parallel()

	env, mocks, out := testEnv()

	if err := runConfigSet(env, config.KeyMaxWorkers, "8"); err != nil {
		t.Fatalf("runConfigSet() unexpected error: %v", err)
	}

	calls := mocks.configStore.SetCalls()
	if len(calls) != 1 || calls[0] != [2]string{config.KeyMaxWorkers, "8"} {
		t.Errorf("Set calls = %v, want [[max-workers 8]]", calls)
	}
	if !strings.Contains(out.stderr.String(), "Set max-workers = 8") {
		t.Errorf("stderr = %q, want confirmation", out.stderr.String())
	}
}

func TestRunConfigSet_InvalidKey(t *testing.T) {
	t.Parallel()

	env, mocks, _ := testEnv()

	err := runConfigSet(env, "random-key", "value")
	if !errors.Is(err, config.ErrUnknownKey) {
		t.Fatalf("runConfigSet() error = %v, want ErrUnknownKey", err)
	}
	if len(mocks.configStore.SetCalls()) != 0 {
		t.Error("Set called for an unknown key")
	}
}

func TestRunConfigSet_CreatesOutputDir(t *testing.T) {
	t.Parallel()

	env, mocks, _ := testEnv()
	outputDir := filepath.Join(t.TempDir(), "new", "dir")

	if err := runConfigSet(env, config.KeyOutputDir, outputDir); err != nil {
		t.Fatalf("runConfigSet() unexpected error: %v", err)
	}

	info, err := os.Stat(outputDir)
	if err != nil || !info.IsDir() {
		t.Errorf("output-dir was not created: %v", err)
	}
	if calls := mocks.configStore.SetCalls(); len(calls) != 1 || calls[0][1] != outputDir {
		t.Errorf("Set calls = %v, want value %q", calls, outputDir)
	}
}

func TestRunConfigSet_InvalidOutputDir(t *testing.T) {
	t.Parallel()

	env, mocks, _ := testEnv()
	file := writeTestFile(t, "not-a-dir", "x")

	err := runConfigSet(env, config.KeyOutputDir, file)
	if !errors.Is(err, config.ErrNotDirectory) {
		t.Fatalf("runConfigSet() error = %v, want ErrNotDirectory", err)
	}
	if len(mocks.configStore.SetCalls()) != 0 {
		t.Error("Set called for an invalid output-dir")
	}
}

func TestRunConfigSet_StoreRejectsValue(t *testing.T) {
	t.Parallel()

	mocks := newTestMocks()
	mocks.configStore.SetFunc = func(key, value string) error {
		return config.ErrInvalidValue
	}
	env, _, _ := testEnv(withTestMocks(mocks))

	err := runConfigSet(env, config.KeyMaxWorkers, "0")
	if !errors.Is(err, config.ErrInvalidValue) {
		t.Errorf("runConfigSet() error = %v, want ErrInvalidValue", err)
	}
}

func TestRunConfigSet_RealStore(t *testing.T) {
	t.Parallel()

	store, err := config.NewStore(config.WithPath(filepath.Join(t.TempDir(), "config.yaml")))
	if err != nil {
		t.Fatal(err)
	}
	env, _, out := testEnv()
	env.ConfigStore = store

	if err := runConfigSet(env, config.KeyProvider, "deepseek"); err != nil {
		t.Fatalf("runConfigSet() unexpected error: %v", err)
	}
	if err := runConfigSet(env, config.KeyProvider, "anthropic"); !errors.Is(err, config.ErrInvalidValue) {
		t.Errorf("runConfigSet(provider=anthropic) error = %v, want ErrInvalidValue", err)
	}

	if err := runConfigGet(env, config.KeyProvider); err != nil {
		t.Fatalf("runConfigGet() unexpected error: %v", err)
	}
	if got := strings.TrimSpace(out.stdout.String()); got != "deepseek" {
		t.Errorf("config get provider = %q, want %q", got, "deepseek")
	}
}

// ---------------------------------------------------------------------------
// Tests for runConfigGet / runConfigList
// ---------------------------------------------------------------------------

func TestRunConfigGet(t *testing.T) {
	t.Parallel()

	env, mocks, out := testEnv()
	mocks.configStore.values = map[string]string{config.KeyLanguage: "fr"}

	if err := runConfigGet(env, config.KeyLanguage); err != nil {
		t.Fatalf("runConfigGet() unexpected error: %v", err)
	}
	if out.stdout.String() != "fr\n" {
		t.Errorf("stdout = %q, want %q", out.stdout.String(), "fr\n")
	}
}

func TestRunConfigGet_EmptyPrintsNothing(t *testing.T) {
	t.Parallel()

	env, _, out := testEnv()

	if err := runConfigGet(env, config.KeyModel); err != nil {
		t.Fatalf("runConfigGet() unexpected error: %v", err)
	}
	if out.stdout.String() != "" {
		t.Errorf("stdout = %q, want empty", out.stdout.String())
	}
}

func TestRunConfigGet_InvalidKey(t *testing.T) {
	t.Parallel()

	env, _, _ := testEnv()

	if err := runConfigGet(env, "output_dir"); !errors.Is(err, config.ErrUnknownKey) {
		t.Errorf("runConfigGet() error = %v, want ErrUnknownKey", err)
	}
}

func TestRunConfigList(t *testing.T) {
	t.Parallel()

	env, mocks, out := testEnv()
	mocks.configStore.values = map[string]string{
		config.KeyProvider:  "openai",
		config.KeyLogFormat: "json",
	}

	if err := runConfigList(env); err != nil {
		t.Fatalf("runConfigList() unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.stdout.String()), "\n")
	if len(lines) != len(config.Keys) {
		t.Fatalf("got %d lines, want one per key (%d):\n%s", len(lines), len(config.Keys), out.stdout.String())
	}
	for i, key := range config.Keys {
		if !strings.HasPrefix(lines[i], key+"=") {
			t.Errorf("line %d = %q, want key %q", i, lines[i], key)
		}
	}
	if !strings.Contains(out.stdout.String(), "provider=openai\n") {
		t.Errorf("stdout missing provider value:\n%s", out.stdout.String())
	}
}

// ---------------------------------------------------------------------------
// Tests for ConfigCmd (Cobra integration)
// ---------------------------------------------------------------------------

func TestConfigCmd_HasSubcommands(t *testing.T) {
	t.Parallel()

	env, _, _ := testEnv()
	cmd := ConfigCmd(env)

	subcommands := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		subcommands[sub.Name()] = true
	}

	for _, name := range []string{"set", "get", "list"} {
		if !subcommands[name] {
			t.Errorf("expected subcommand %q", name)
		}
	}
}

func TestConfigCmd_HelpListsEveryKey(t *testing.T) {
	t.Parallel()

	env, _, _ := testEnv()
	long := ConfigCmd(env).Long

	for _, key := range config.Keys {
		if !strings.Contains(long, key) {
			t.Errorf("help does not mention %q", key)
		}
	}
}

func TestConfigCmd_ArgValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
	}{
		{"set without args", []string{"set"}},
		{"set without value", []string{"set", "key"}},
		{"get without key", []string{"get"}},
		{"list with args", []string{"list", "extra"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env, _, _ := testEnv()
			cmd := ConfigCmd(env)
			cmd.SetArgs(tt.args)
			cmd.SetOut(&syncBuffer{})
			cmd.SetErr(&syncBuffer{})

			if err := cmd.Execute(); err == nil {
				t.Errorf("ConfigCmd.Execute(%v) expected error, got nil", tt.args)
			}
		})
	}
}

func TestConfigCmd_List(t *testing.T) {
	t.Parallel()

	env, _, out := testEnv()
	cmd := ConfigCmd(env)
	cmd.SetArgs([]string{"list"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("ConfigCmd.Execute([list]) unexpected error: %v", err)
	}
	if !strings.Contains(out.stdout.String(), config.KeyOutputDir+"=") {
		t.Errorf("stdout = %q, want key listing", out.stdout.String())
	}
}
