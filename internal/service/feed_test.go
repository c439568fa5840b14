package service

import (
	"testing"

	"barn_climate/internal/models"
)

func TestLiveFeed(t *testing.T) {
	t.Parallel()
	f := NewLiveFeed()

	if _, ok := f.Latest(); ok {
		t.Fatal("empty feed reported an update")
	}

	actions := []models.Action{models.ActionFanOn}
	f.Publish(models.SensorRecord{ID: 1, Temperature: 31}, actions)
	actions[0] = models.ActionFanOff

	upd, ok := f.Latest()
	if !ok || upd.Seq != 1 || upd.Reading.ID != 1 {
		t.Fatalf("update = %+v ok=%v", upd, ok)
	}
	if upd.Actions[0] != models.ActionFanOn {
		t.Fatal("feed must keep its own copy of the actions")
	}

	f.Publish(models.SensorRecord{ID: 2}, nil)
	if upd, _ := f.Latest(); upd.Seq != 2 || upd.Actions == nil {
		t.Fatalf("second update = %+v", upd)
	}
}
