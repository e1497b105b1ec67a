package template

import (
	"os"
	"strings"
	"testing"
)

func profileVars() Vars {
	return Vars{"delay_ms": uint64(50), "loss_pct": uint64(0), "rate_mbit": uint64(20), "name": "wan"}
}

func TestExpand_NoPlaceholders(t *testing.T) {
	text := "./scripts/cleanup.sh"

	result, err := Expander{Vars: profileVars()}.Expand(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != text {
		t.Errorf("expected %q, got %q", text, result)
	}
}

func TestExpand_ProfileVariables(t *testing.T) {
	result, err := Expander{Vars: profileVars()}.Expand("./scripts/tc.sh ${delay_ms} ${loss_pct} ${rate_mbit}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "./scripts/tc.sh 50 0 20" {
		t.Errorf("expected './scripts/tc.sh 50 0 20', got %q", result)
	}
}

func TestExpand_TrimsWhitespace(t *testing.T) {
	result, err := Expander{Vars: profileVars()}.Expand("delay=${ delay_ms }")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "delay=50" {
		t.Errorf("expected 'delay=50', got %q", result)
	}
}

func TestExpand_EnvironmentVariable(t *testing.T) {
	t.Setenv("TEST_NETEM_DEV", "veth0")

	result, err := Expander{Vars: Vars{}}.Expand("tc qdisc del dev ${env:TEST_NETEM_DEV} root")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "tc qdisc del dev veth0 root" {
		t.Errorf("expected 'tc qdisc del dev veth0 root', got %q", result)
	}
}

func TestExpand_MixedVariables(t *testing.T) {
	t.Setenv("TEST_SCRIPTS", "/opt/scripts")

	result, err := Expander{Vars: profileVars()}.Expand("${env:TEST_SCRIPTS}/${name}.sh ${delay_ms}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "/opt/scripts/wan.sh 50" {
		t.Errorf("expected '/opt/scripts/wan.sh 50', got %q", result)
	}
}

func TestExpand_MissingVariable(t *testing.T) {
	_, err := Expander{Vars: profileVars()}.Expand("./tc.sh ${jitter_ms}")
	if err == nil {
		t.Fatal("expected error for missing variable")
	}
	if !strings.Contains(err.Error(), `variable "jitter_ms" not found`) {
		t.Errorf("expected error mentioning missing variable, got: %v", err)
	}
	if !strings.Contains(err.Error(), "delay_ms, loss_pct, name, rate_mbit") {
		t.Errorf("expected known variables in error, got: %v", err)
	}
}

func TestExpand_MissingEnvVariable(t *testing.T) {
	t.Setenv("NONEXISTENT_VAR", "")
	os.Unsetenv("NONEXISTENT_VAR")

	_, err := Expander{Vars: Vars{}}.Expand("${env:NONEXISTENT_VAR}/path")
	if err == nil {
		t.Fatal("expected error for missing env var")
	}
	if !strings.Contains(err.Error(), `env var "NONEXISTENT_VAR" not set`) {
		t.Errorf("expected error mentioning missing env var, got: %v", err)
	}
}

func TestExpand_MultipleErrors(t *testing.T) {
	_, err := Expander{Vars: Vars{}}.Expand("${missing1} and ${missing2}")
	if err == nil {
		t.Fatal("expected errors for missing variables")
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "missing1") || !strings.Contains(errStr, "missing2") {
		t.Errorf("expected both missing variables in error, got: %v", err)
	}
}

func TestExpand_FloatValue(t *testing.T) {
	result, err := Expander{Vars: Vars{"loss": 0.5}}.Expand("loss=${loss}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "loss=0.5" {
		t.Errorf("expected 'loss=0.5', got %q", result)
	}
}

func TestExpand_EmptyString(t *testing.T) {
	result, err := Expander{Vars: Vars{}}.Expand("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "" {
		t.Errorf("expected empty string, got %q", result)
	}
}

func TestExpandMap_Success(t *testing.T) {
	commands := map[string]string{
		"apply": "./tc.sh ${delay_ms} ${loss_pct} ${rate_mbit}",
		"clear": "./cleanup.sh",
	}

	result, err := Expander{Vars: profileVars()}.ExpandMap(commands)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result["apply"] != "./tc.sh 50 0 20" {
		t.Errorf("expected './tc.sh 50 0 20', got %q", result["apply"])
	}
	if result["clear"] != "./cleanup.sh" {
		t.Errorf("expected './cleanup.sh', got %q", result["clear"])
	}
}

func TestExpandMap_NilMap(t *testing.T) {
	result, err := Expander{Vars: profileVars()}.ExpandMap(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil, got %v", result)
	}
}

func TestExpandMap_Error(t *testing.T) {
	_, err := Expander{Vars: Vars{}}.ExpandMap(map[string]string{"apply": "./tc.sh ${missing}"})
	if err == nil {
		t.Fatal("expected error for missing variable")
	}
	if !strings.HasPrefix(err.Error(), "apply: ") {
		t.Errorf("expected error to name the key, got: %v", err)
	}
}

func BenchmarkExpand(b *testing.B) {
	vars := profileVars()
	text := "./scripts/tc.sh ${delay_ms} ${loss_pct} ${rate_mbit}"

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = Expander{Vars: vars}.Expand(text)
	}
}

func TestExpander_Fallbacks(t *testing.T) {
	e := Expander{
		Vars:      profileVars(),
		LookupEnv: func(string) (string, bool) { return "", false },
	}

	tests := []struct {
		text string
		want string
	}{
		{"${jitter_ms:-0}", "0"},
		{"${delay_ms:-999}", "50"},
		{"${ env:NETEM_DEV :-eth0 }", "eth0"},
		{"dev=${env:NETEM_DEV:-}", "dev="},
	}
	for _, tt := range tests {
		got, err := e.Expand(tt.text)
		if err != nil {
			t.Fatalf("Expand(%q): unexpected error: %v", tt.text, err)
		}
		if got != tt.want {
			t.Errorf("Expand(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestExpander_LookupEnv(t *testing.T) {
	e := Expander{LookupEnv: func(name string) (string, bool) {
		if name == "NETEM_DEV" {
			return "veth1", true
		}
		return "", false
	}}

	got, err := e.Expand("tc qdisc add dev ${env:NETEM_DEV:-eth0} root netem")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "tc qdisc add dev veth1 root netem" {
		t.Errorf("unexpected expansion: %q", got)
	}
}

func TestExpander_ShellQuote(t *testing.T) {
	e := Expander{
		Vars:  Vars{"name": "lossy wan", "delay_ms": 40, "note": "it's"},
		Quote: ShellQuote,
	}

	got, err := e.Expand("./tc.sh ${name} ${delay_ms} ${note}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := `./tc.sh 'lossy wan' 40 'it'\''s'`; got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestShellQuote(t *testing.T) {
	tests := map[string]string{
		"eth0":         "eth0",
		"10.55.10.1":   "10.55.10.1",
		"":             "''",
		"a b":          "'a b'",
		"$(reboot)":    "'$(reboot)'",
		"rate=20mbit,": "rate=20mbit,",
	}
	for in, want := range tests {
		if got := ShellQuote(in); got != want {
			t.Errorf("ShellQuote(%q) = %q, want %q", in, got, want)
		}
	}
}
