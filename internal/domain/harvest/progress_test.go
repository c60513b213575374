package harvest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgress_FailureRateExceeded(t *testing.T) {
	tests := []struct {
		name   string
		found  int
		failed int
		want   bool
	}{
		{name: "nothing found", found: 0, failed: 0, want: false},
		{name: "single failure of one", found: 1, failed: 1, want: true},
		{name: "exactly half", found: 4, failed: 2, want: false},
		{name: "more than half", found: 4, failed: 3, want: true},
		{name: "odd found rounds down", found: 5, failed: 3, want: true},
		{name: "one of ten", found: 10, failed: 1, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Progress{Found: tt.found, Failed: tt.failed}
			assert.Equal(t, tt.want, p.FailureRateExceeded())
		})
	}
}

func TestProgress_Record(t *testing.T) {
	var p Progress
	p.Found = 3
	p.RecordIngested()
	p.RecordIngested()
	assert.False(t, p.Abort)

	p.RecordFailure()
	assert.True(t, p.Abort)
	assert.Equal(t, "found: 3 ingested: 2 failed: 1", p.String())
}
