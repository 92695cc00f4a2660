package sid

import "testing"

func TestFromNameDeterministic(t *testing.T) {
	a := FromName("cpu.total")
	b := FromName("cpu.total")
	if a != b {
		t.Fatalf("expected deterministic hash, got %d != %d", a, b)
	}
}

func TestFromNameDistinguishesNames(t *testing.T) {
	a := FromName("cpu.total")
	b := FromName("cpu.idle")
	if a == b {
		t.Fatalf("expected different hashes for different names")
	}
}

func TestFromNameAndTagsDiffersFromBareName(t *testing.T) {
	a := FromName("cpu.total")
	b := FromNameAndTags("cpu.total", `{"host":"a"}`)
	if a == b {
		t.Fatalf("expected tag-qualified hash to differ from bare name hash")
	}
}
