package models_test

import (
	"reflect"
	"testing"

	"github.com/dalemusser/socialhub/internal/domain/models"
)

func TestUserNetwork(t *testing.T) {
	u := models.User{
		ID:          "me",
		Connections: []string{"a", "b"},
		Following:   []string{"b", "c", "me"},
	}
	got := u.Network()
	want := []string{"me", "a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Network() = %v, want %v", got, want)
	}
}
