package process

import (
	"strings"
	"testing"
)

func TestBuildCommandPlainArgv(t *testing.T) {
	s := Spec{Name: "server", Command: "transcribe-server --port 8089"}
	cmd := s.BuildCommand()
	if !strings.HasSuffix(cmd.Path, "transcribe-server") && cmd.Args[0] != "transcribe-server" {
		t.Fatalf("cmd path = %q args = %v", cmd.Path, cmd.Args)
	}
	if len(cmd.Args) != 3 || cmd.Args[1] != "--port" || cmd.Args[2] != "8089" {
		t.Fatalf("args = %v", cmd.Args)
	}
}

func TestBuildCommandShellMeta(t *testing.T) {
	s := Spec{Command: "echo hi > /tmp/out"}
	cmd := s.BuildCommand()
	if cmd.Args[0] != "/bin/sh" || cmd.Args[1] != "-c" {
		t.Fatalf("shell metacharacters should route through sh -c, args = %v", cmd.Args)
	}
	if cmd.Args[2] != "echo hi > /tmp/out" {
		t.Fatalf("command string mangled: %q", cmd.Args[2])
	}
}

func TestBuildCommandExplicitShellNotDoubleWrapped(t *testing.T) {
	s := Spec{Command: `sh -c 'echo hello && sleep 1'`}
	cmd := s.BuildCommand()
	if cmd.Args[0] != "/bin/sh" || cmd.Args[1] != "-c" {
		t.Fatalf("args = %v", cmd.Args)
	}
	if cmd.Args[2] != "echo hello && sleep 1" {
		t.Fatalf("inner command = %q, quoting should be unwrapped once", cmd.Args[2])
	}
}

func TestBuildCommandEmpty(t *testing.T) {
	s := Spec{}
	cmd := s.BuildCommand()
	if cmd.Args[0] != "/bin/true" {
		t.Fatalf("empty command should be a no-op, args = %v", cmd.Args)
	}
}

func TestParseExplicitShell(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		matched bool
	}{
		{`sh -c 'echo hi'`, "echo hi", true},
		{`/bin/sh -c "echo hi"`, "echo hi", true},
		{`/usr/bin/sh -c echo`, "echo", true},
		{`bash -c 'echo hi'`, "", false},
		{`echo sh -c hi`, "", false},
	}
	for _, tc := range tests {
		_, after, ok := parseExplicitShell(tc.in)
		if ok != tc.matched {
			t.Errorf("parseExplicitShell(%q) matched = %v, want %v", tc.in, ok, tc.matched)
			continue
		}
		if ok && after != tc.want {
			t.Errorf("parseExplicitShell(%q) = %q, want %q", tc.in, after, tc.want)
		}
	}
}
