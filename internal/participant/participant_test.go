package participant

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-live/profile-image-service/pkg/pubsub"
)

var (
	a = uuid.MustParse("00000000-0000-4000-8000-00000000000a")
	b = uuid.MustParse("00000000-0000-4000-8000-00000000000b")
	c = uuid.MustParse("00000000-0000-4000-8000-00000000000c")
	d = uuid.MustParse("00000000-0000-4000-8000-00000000000d")
)

func members(ids ...uuid.UUID) []Member {
	out := make([]Member, len(ids))
	for i, id := range ids {
		out[i] = Member{UserID: id}
	}
	return out
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name   string
		before []Member
		after  []Member
		want   ChangeSet
	}{
		{
			name:   "no change",
			before: members(a, b, c),
			after:  members(a, b, c),
			want:   ChangeSet{},
		},
		{
			name:   "insert and delete without moves",
			before: members(a, b, c),
			after:  members(a, d, c),
			want:   ChangeSet{Inserted: []int{1}, Deleted: []int{1}},
		},
		{
			name:   "initial",
			before: nil,
			after:  members(a, b),
			want:   ChangeSet{Inserted: []int{0, 1}},
		},
		{
			name:   "all removed",
			before: members(a, b),
			after:  nil,
			want:   ChangeSet{Deleted: []int{0, 1}},
		},
		{
			name:   "one moved to front",
			before: members(a, b, c),
			after:  members(c, a, b),
			want:   ChangeSet{Moved: []MovedIndex{{From: 2, To: 0}}},
		},
		{
			name:   "swap",
			before: members(a, b),
			after:  members(b, a),
			want:   ChangeSet{Moved: []MovedIndex{{From: 1, To: 0}}},
		},
		{
			name:   "updated audio",
			before: members(a, b),
			after:  []Member{{UserID: a}, {UserID: b, AudioEstablished: true}},
			want:   ChangeSet{Updated: []int{1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reconcile(tt.before, tt.after)

			assert.ElementsMatch(t, tt.want.Inserted, got.Inserted)
			assert.ElementsMatch(t, tt.want.Deleted, got.Deleted)
			assert.ElementsMatch(t, tt.want.Updated, got.Updated)
			assert.ElementsMatch(t, tt.want.Moved, got.Moved)
			assert.Equal(t, tt.want.Empty(), got.Empty())
		})
	}
}

func TestReconcile_RemovalShiftIsNotAMove(t *testing.T) {
	got := Reconcile(members(a, b, c, d), members(b, d))

	assert.Equal(t, []int{0, 2}, got.Deleted)
	assert.Empty(t, got.Moved)
}

func TestLongestIncreasing(t *testing.T) {
	keep := longestIncreasing([]int{3, 0, 1, 4, 2})

	assert.Equal(t, []bool{false, true, true, false, true}, keep)
}

type recordingObserver struct {
	changes []ChangeSet
}

func (r *recordingObserver) ParticipantsChanged(_ context.Context, _ uuid.UUID, _ []Member, change ChangeSet) {
	r.changes = append(r.changes, change)
}

func TestSnapshot_InitialAndNoChange(t *testing.T) {
	obs := &recordingObserver{}
	ctx := context.Background()

	s := NewSnapshot(ctx, uuid.New(), members(a, b), obs)
	require.Len(t, obs.changes, 1)
	assert.Equal(t, []int{0, 1}, obs.changes[0].Inserted)

	s.Update(ctx, members(a, b))
	assert.Len(t, obs.changes, 1)

	s.Update(ctx, members(b))
	require.Len(t, obs.changes, 2)
	assert.Equal(t, []int{0}, obs.changes[1].Deleted)
	assert.Equal(t, members(b), s.Members())
}

func TestSnapshot_ConnectionState(t *testing.T) {
	s := NewSnapshot(context.Background(), uuid.New(), []Member{
		{UserID: a, AudioEstablished: true},
		{UserID: b},
	}, nil)

	assert.Equal(t, Connected, s.ConnectionState(a))
	assert.Equal(t, Connecting, s.ConnectionState(b))
	assert.Equal(t, NotConnected, s.ConnectionState(c))
	assert.Equal(t, "connecting", Connecting.String())
}

func TestRegistry_PublishesChanges(t *testing.T) {
	ps := pubsub.NewMemoryPubSub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conv := uuid.New()
	events, err := ps.Subscribe(ctx, pubsub.CallParticipantsChannel(conv.String()))
	require.NoError(t, err)

	r := NewRegistry(NewPubSubObserver(ps))
	first := r.Replace(ctx, conv, members(a))
	second := r.Replace(ctx, conv, members(a, b))
	r.Replace(ctx, conv, members(a, b))

	assert.Equal(t, []int{0}, first.Inserted)
	assert.Equal(t, []int{1}, second.Inserted)

	for i := 0; i < 2; i++ {
		select {
		case e := <-events:
			var payload ParticipantsChangedPayload
			require.NoError(t, e.UnmarshalPayload(&payload))
			assert.Equal(t, conv.String(), payload.ConversationID)
			assert.Len(t, payload.Members, i+1)
		case <-time.After(time.Second):
			t.Fatal("participants event not delivered")
		}
	}
	assert.Empty(t, events)

	_, ok := r.Snapshot(conv)
	assert.True(t, ok)
	r.Remove(conv)
	_, ok = r.Snapshot(conv)
	assert.False(t, ok)
}
