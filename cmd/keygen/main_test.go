package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestPrintKey(t *testing.T) {
	var buf bytes.Buffer
	if err := printKey(&buf, "secret", "ci"); err != nil {
		t.Fatalf("printKey() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"API Key: secret",
		`key_hash: "2bb80d537b1da3e38bd30361aa855686bde0eacd7162fef6a25fe97bf527a25b"`,
		`description: "ci"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestGenerateKey(t *testing.T) {
	a, err := generateKey()
	if err != nil {
		t.Fatalf("generateKey() error = %v", err)
	}
	b, _ := generateKey()
	if a == b {
		t.Error("expected distinct keys")
	}
	if !strings.HasPrefix(a, "tapi-") || len(a) != len("tapi-")+48 {
		t.Errorf("unexpected key format %q", a)
	}
}
