package scriptengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToBatch(t *testing.T) {
	got := ToBatch([]string{
		"#!@shell",
		"set -e",
		"# build the project",
		"export GREETING=hello",
		"echo ${GREETING} $USER $1",
		"echo",
		"rm -rf target/debug",
		"mkdir -p out/bin",
		"cp src/a.txt out/a.txt",
		"pwd",
		"unset GREETING",
		"exit 3",
	})

	assert.Equal(t, []string{
		"@echo off",
		"@REM build the project",
		"set GREETING=hello",
		"echo %GREETING% %USER% %1",
		"echo.",
		`rmdir /S /Q target\debug`,
		`mkdir out\bin`,
		`copy /Y src\a.txt out\a.txt`,
		"chdir",
		"set GREETING=",
		"exit /B 3",
	}, got)
}

func TestToBatchKeepsIndentAndUnknownCommands(t *testing.T) {
	got := ToBatch([]string{"  cargo build --release", "", "exit"})
	assert.Equal(t, []string{"@echo off", "  cargo build --release", "", "exit /B"}, got)
}
