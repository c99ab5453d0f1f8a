package ecs

import "testing"

func TestComponentTypeIDRanges(t *testing.T) {
	cases := []struct {
		id                   ComponentTypeID
		builtin, deflt, user bool
	}{
		{0, false, false, false},
		{1, true, false, false},
		{16, true, false, false},
		{17, false, true, false},
		{32, false, true, false},
		{33, false, false, true},
		{1000, false, false, true},
	}
	for _, c := range cases {
		if got := c.id.IsBuiltin(); got != c.builtin {
			t.Errorf("id %d IsBuiltin() = %v, want %v", c.id, got, c.builtin)
		}
		if got := c.id.IsDefault(); got != c.deflt {
			t.Errorf("id %d IsDefault() = %v, want %v", c.id, got, c.deflt)
		}
		if got := c.id.IsUser(); got != c.user {
			t.Errorf("id %d IsUser() = %v, want %v", c.id, got, c.user)
		}
	}
}

func TestLifeRoundTrip(t *testing.T) {
	for _, alive := range []bool{true, false} {
		b := EncodeLife(Life{Alive: alive})
		got := DecodeLife(b[:])
		if got.Alive != alive {
			t.Errorf("DecodeLife(EncodeLife(%v)) = %v", alive, got)
		}
	}
}

func TestDecodeLifeEmptyIsDead(t *testing.T) {
	got := DecodeLife(nil)
	if got.Alive {
		t.Errorf("DecodeLife(nil).Alive = true, want false")
	}
}
