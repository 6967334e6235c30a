package capacity

import (
	"testing"

	"mdining/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		total    int
		expected Level
	}{
		{"empty hall", 0, 100, Level{"Quiet", "green", 0}},
		{"forty percent is quiet", 40, 100, Level{"Quiet", "green", 40}},
		{"just over forty", 41, 100, Level{"Moderate", "orange", 41}},
		{"seventy percent is moderate", 70, 100, Level{"Moderate", "orange", 70}},
		{"just over seventy", 71, 100, Level{"Very Busy", "red", 71}},
		{"rounded to nearest percent", 2, 3, Level{"Moderate", "orange", 67}},
		{"over capacity", 450, 400, Level{"Very Busy", "red", 113}},
		{"zero total", 25, 0, Level{"Quiet", "green", 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.current, tt.total))
		})
	}
}

func TestSnapshot_Lookup(t *testing.T) {
	snap := &Snapshot{Readings: []models.CapacityReading{
		{Name: "South Quad", Current: 300, Total: 400},
		{Name: "Bursley", Current: 10, Total: 0},
	}}

	assert.Equal(t, Level{"Very Busy", "red", 75}, snap.Lookup("South Quad"))
	assert.Equal(t, Level{"Quiet", "green", 0}, snap.Lookup("Bursley"))
	assert.Equal(t, NoData, snap.Lookup("Mosher-Jordan"))

	var missing *Snapshot
	assert.Equal(t, NoData, missing.Lookup("South Quad"))
}
