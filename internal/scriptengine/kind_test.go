package scriptengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name   string
		runner string
		lines  []string
		want   Kind
	}{
		{"plain script", "", []string{"echo hi"}, KindOS},
		{"empty", "", nil, KindOS},
		{"internal runner", "@shell", []string{"echo hi"}, KindShell},
		{"flowscript runner", "@flowscript", nil, KindFlowscript},
		{"go runner", "@go", nil, KindGo},
		{"lua runner", "@lua", nil, KindLua},
		{"external runner", "python3", []string{"print(1)"}, KindGeneric},
		{"runner beats shebang", "python3", []string{"#!/bin/bash", "echo"}, KindGeneric},
		{"shebang", "", []string{"#!/usr/bin/env python3", "print(1)"}, KindShebang},
		{"internal shebang", "", []string{"#!@flowscript", "echo hi"}, KindFlowscript},
		{"indented shebang", "", []string{"  #!@lua", "print(1)"}, KindLua},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.runner, tt.lines))
		})
	}
}

func TestParseShebang(t *testing.T) {
	sb, ok := ParseShebang([]string{"#!/usr/bin/env python3 -u", "print(1)"})
	assert.True(t, ok)
	assert.Equal(t, "/usr/bin/env", sb.Runner)
	assert.Equal(t, []string{"python3", "-u"}, sb.Args)

	_, ok = ParseShebang([]string{"#!"})
	assert.False(t, ok)
	_, ok = ParseShebang([]string{"echo", "#!/bin/sh"})
	assert.False(t, ok)
}

func TestStripShebang(t *testing.T) {
	assert.Equal(t, []string{"echo hi"}, StripShebang([]string{"#!@shell", "echo hi"}))
	assert.Equal(t, []string{"echo hi"}, StripShebang([]string{"echo hi"}))
}
