package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	root := newRootCommand()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	require.Equal(t, version+"\n", out.String())
}

func TestRootCommand_Flags(t *testing.T) {
	root := newRootCommand()
	flag := root.Flags().Lookup("env-file")
	require.NotNil(t, flag)
	require.Equal(t, "[]", flag.DefValue)
}
