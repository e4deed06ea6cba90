package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveString(t *testing.T) {
	assert.Equal(t, "flag", resolveString("flag", "config", "default"))
	assert.Equal(t, "config", resolveString("", "config", "default"))
	assert.Equal(t, "default", resolveString("", "", "default"))
	assert.Empty(t, resolveString())
}

func TestCommands(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"compile", "explain", "dialects", "config", "version"} {
		assert.Contains(t, names, want)
	}

	cmd, _, err := rootCmd.Find([]string{"config", "show"})
	assert.NoError(t, err)
	assert.Equal(t, "show", cmd.Name())
}
