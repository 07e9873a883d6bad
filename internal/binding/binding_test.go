package binding

import "testing"

func TestParseSingle(t *testing.T) {
	got, err := Parse("pgchannel1:exchange1")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := []Binding{{PgChannel: "pgchannel1", AMQPEntity: "exchange1"}}
	if !equalBindings(got, want) {
		t.Errorf("Parse() = %+v, want %+v", got, want)
	}
}

func TestParseMultiple(t *testing.T) {
	got, err := Parse("pgchannel1:exchange1,pgchannel2:exchange2")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := []Binding{
		{PgChannel: "pgchannel1", AMQPEntity: "exchange1"},
		{PgChannel: "pgchannel2", AMQPEntity: "exchange2"},
	}
	if !equalBindings(got, want) {
		t.Errorf("Parse() = %+v, want %+v", got, want)
	}
}

func TestParseTrimsWhitespaceAndDropsTrailingComma(t *testing.T) {
	got, err := Parse(" pgchannel1 : exchange1 , pgchannel2 : exchange2 , pgchannel3 : exchange3, ")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := []Binding{
		{PgChannel: "pgchannel1", AMQPEntity: "exchange1"},
		{PgChannel: "pgchannel2", AMQPEntity: "exchange2"},
		{PgChannel: "pgchannel3", AMQPEntity: "exchange3"},
	}
	if !equalBindings(got, want) {
		t.Errorf("Parse() = %+v, want %+v", got, want)
	}
}

func TestParseFailsWhenNoCompleteBindingRemains(t *testing.T) {
	cases := []string{
		"   ",
		":",
		"pgchannel1",
		":exchange1",
		"pgchannel1:",
		"pgchannel1, pgchannel1:, :exchange3,,",
	}
	for _, c := range cases {
		if _, err := Parse(c); err == nil {
			t.Errorf("Parse(%q) expected error, got nil", c)
		}
	}
}

func TestParseFailsOnDuplicatePgChannel(t *testing.T) {
	cases := []string{
		"pgchannel1,pgchannel1:exchange2,pgchannel1:exchange3,",
		"pgchannel2:exchange2, pgchannel2:exchange2",
	}
	for _, c := range cases {
		if _, err := Parse(c); err == nil {
			t.Errorf("Parse(%q) expected duplicate-channel error, got nil", c)
		}
	}
}

func TestParseIsIdempotent(t *testing.T) {
	const input = "c3:ex3,c1:q1,c2:ex2"
	first, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	second, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !equalBindings(first, second) {
		t.Errorf("Parse() not idempotent: %+v != %+v", first, second)
	}
}

func equalBindings(a, b []Binding) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].PgChannel != b[i].PgChannel || a[i].AMQPEntity != b[i].AMQPEntity {
			return false
		}
	}
	return true
}
