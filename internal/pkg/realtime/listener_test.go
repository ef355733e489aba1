package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/sse"
)

type recordingPublisher struct {
	users  []string
	events []sse.Event
}

func (p *recordingPublisher) Publish(userID string, event sse.Event) {
	p.users = append(p.users, userID)
	p.events = append(p.events, event)
}

func TestListener_DispatchForwardsToUser(t *testing.T) {
	pub := &recordingPublisher{}
	l := NewListener(nil, pub)

	l.Dispatch(`{"table":"attendance_logs","op":"INSERT","id":"a1","employee_id":"e1","company_id":"c1","user_id":"u1"}`)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "u1", pub.users[0])
	assert.Equal(t, "attendance_logs.INSERT", pub.events[0].Event)
	change, ok := pub.events[0].Data.(Change)
	require.True(t, ok)
	assert.Equal(t, "e1", change.EmployeeID)
}

func TestListener_DispatchSkipsUnroutable(t *testing.T) {
	pub := &recordingPublisher{}
	l := NewListener(nil, pub)

	l.Dispatch(`{"table":"geofence_alerts","op":"INSERT","id":"g1","employee_id":"e1","company_id":"c1","user_id":null}`)
	l.Dispatch(`not json`)

	assert.Empty(t, pub.events)
}
