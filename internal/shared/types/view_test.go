package types

import "testing"

func TestStateTransitionTable(t *testing.T) {
	tests := []struct {
		from State
		to   State
		want bool
	}{
		{StateCreated, StateVisible, true},
		{StateCreated, StateHidden, true},
		{StateCreated, StateDisposed, true},
		{StateCreated, StateCreated, false},
		{StateVisible, StateVisible, true},
		{StateVisible, StateHidden, true},
		{StateVisible, StateDisposed, true},
		{StateVisible, StateCreated, false},
		{StateHidden, StateVisible, true},
		{StateHidden, StateHidden, true},
		{StateHidden, StateDisposed, true},
		{StateHidden, StateCreated, false},
		{StateDisposed, StateVisible, false},
		{StateDisposed, StateHidden, false},
		{StateDisposed, StateDisposed, false},
		{StateDisposed, StateCreated, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestStateValid(t *testing.T) {
	for _, s := range []State{StateCreated, StateVisible, StateHidden, StateDisposed} {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if State("zombie").Valid() {
		t.Error("unknown state reported valid")
	}
	if !StateDisposed.Terminal() || StateHidden.Terminal() {
		t.Error("terminal is exactly disposed")
	}
}

func TestColumnValid(t *testing.T) {
	for _, c := range []Column{ColumnActive, ColumnBeside, 1, MaxColumn} {
		if !c.Valid() {
			t.Errorf("column %d should be valid", c)
		}
	}
	for _, c := range []Column{0, -3, MaxColumn + 1} {
		if c.Valid() {
			t.Errorf("column %d should be invalid", c)
		}
	}
}
