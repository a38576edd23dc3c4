package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	q := New("Travel Planner", "Plan a trip of 4 days for a group of 10 college friends.")

	assert.Equal(t, "Travel Planner: Plan a trip of 4 days for a group of 10 college friends.", q.Text)
	assert.Equal(t, "Travel Planner", q.Persona)
	assert.Equal(t, "Plan a trip of 4 days for a group of 10 college friends.", q.Job)
	assert.Equal(t, q.Text, q.String())
}

func TestNew_EmptyParts(t *testing.T) {
	assert.Equal(t, ": ", New("", "").Text)
}
