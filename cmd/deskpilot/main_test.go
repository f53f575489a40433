package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskpilot/internal/config"
)

func writeTestConfig(t *testing.T, profileDir, promptFile string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "deskpilot.yaml")
	yaml := fmt.Sprintf("paths:\n  profile_dir: %s\n  system_prompt_file: %s\n", profileDir, promptFile)
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0o644))
	return cfgPath
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.Execute(), out.String())
	return out.String()
}

func TestProfilesAddCreatesProfileFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir, filepath.Join(dir, "prompt.txt"))

	out := execute(t, "--config", cfgPath, "profiles", "add",
		"--url", "https://api.example.com/v1",
		"--key", "sk-test",
		"--model", "provider/model:free",
		"--price", "7.5",
	)
	assert.Contains(t, out, "provider_model_free")

	profiles := config.LoadProfiles(dir)
	p, ok := profiles["provider_model_free"]
	require.True(t, ok, "have: %v", config.ProfileNames(profiles))
	assert.Equal(t, "https://api.example.com/v1", p.URL)
	assert.Equal(t, "sk-test", p.APIKey)
	assert.Equal(t, "provider/model:free", p.Model)
	assert.Equal(t, 7.5, p.TokenPrice)

	listed := execute(t, "--config", cfgPath, "profiles")
	assert.Contains(t, listed, "provider_model_free")
}

func TestProfilesPriceRewritesPrice(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir, filepath.Join(dir, "prompt.txt"))
	name, err := config.SaveProfile(dir, config.Profile{
		URL: "https://api.example.com/v1", APIKey: "sk-test", Model: "gpt-test", TokenPrice: 10,
	})
	require.NoError(t, err)

	execute(t, "--config", cfgPath, "profiles", "price", name, "2,5")

	assert.Equal(t, 2.5, config.LoadProfiles(dir)[name].TokenPrice)
}

func TestProfilesPriceRejectsNonNumber(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir, filepath.Join(dir, "prompt.txt"))

	root := newRootCommand()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"--config", cfgPath, "profiles", "price", "any", "cheap"})
	assert.Error(t, root.Execute())
}

func TestPromptSaveWritesConfiguredFile(t *testing.T) {
	promptFile := filepath.Join(t.TempDir(), "system_prompt.txt")
	cfgPath := writeTestConfig(t, t.TempDir(), promptFile)

	out := execute(t, "--config", cfgPath, "prompt", "save")
	assert.Contains(t, out, promptFile)

	raw, err := os.ReadFile(promptFile)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultSystemPrompt, string(raw))
}

func TestPromptShowPrintsEffectivePrompt(t *testing.T) {
	promptFile := filepath.Join(t.TempDir(), "system_prompt.txt")
	cfgPath := writeTestConfig(t, t.TempDir(), promptFile)
	require.NoError(t, os.WriteFile(promptFile, []byte("edited prompt\n"), 0o644))

	out := execute(t, "--config", cfgPath, "prompt", "show")
	assert.Contains(t, out, "edited prompt")
}
