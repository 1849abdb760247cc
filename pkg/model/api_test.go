package model

import "testing"

func TestListOptions_Clamp(t *testing.T) {
	tests := []struct {
		in   ListOptions
		want ListOptions
	}{
		{ListOptions{Limit: 0, Offset: 0}, ListOptions{Limit: 20, Offset: 0}},
		{ListOptions{Limit: 500, Offset: 5}, ListOptions{Limit: 100, Offset: 5}},
		{ListOptions{Limit: 10, Offset: -3}, ListOptions{Limit: 10, Offset: 0}},
	}
	for _, tt := range tests {
		got := tt.in
		got.Clamp()
		if got != tt.want {
			t.Errorf("Clamp(%+v) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestNewPagination_HasMore(t *testing.T) {
	opts := ListOptions{Limit: 2, Offset: 0}
	if pg := NewPagination(5, 2, opts); !pg.HasMore {
		t.Error("HasMore = false, want true for 2 of 5")
	}
	opts.Offset = 4
	if pg := NewPagination(5, 1, opts); pg.HasMore {
		t.Error("HasMore = true, want false on last page")
	}
}
