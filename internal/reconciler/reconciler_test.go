package reconciler

import (
	"fmt"
	"testing"

	"github.com/missedtask/missedtask-client/internal/models"
	"github.com/missedtask/missedtask-client/internal/notify"
	"github.com/missedtask/missedtask-client/internal/store"
	"github.com/missedtask/missedtask-client/internal/testutil"
)

const self = "u1"

// toastRecorder captures toast emissions for assertions.
type toastRecorder struct {
	toasts []models.Notification
}

func (tr *toastRecorder) Toast(n models.Notification) {
	tr.toasts = append(tr.toasts, n)
}

type fixture struct {
	rec        *Reconciler
	watermarks *store.WatermarkStore
	feed       *notify.Feed
	toasts     *toastRecorder
	helper     *testutil.TestHelper
}

func newFixture(t *testing.T) *fixture {
	watermarks := store.NewWatermarkStore(store.NewMemoryStore())
	feed := notify.NewFeed()
	toasts := &toastRecorder{}
	return &fixture{
		rec:        New(func() string { return self }, watermarks, feed, toasts),
		watermarks: watermarks,
		feed:       feed,
		toasts:     toasts,
		helper:     testutil.NewTestHelper(t),
	}
}

func TestFirstLoadEstablishesWatermarkWithoutNotifications(t *testing.T) {
	f := newFixture(t)

	f.rec.Reconcile("c1", []models.Message{
		f.helper.Message("m1", "c1", "u2", "old one"),
		f.helper.Message("m2", "c1", "u3", "old two"),
	})

	if wm, ok := f.watermarks.Get("c1"); !ok || wm != "m2" {
		t.Errorf("watermark = (%q, %v), want (m2, true)", wm, ok)
	}
	if got := len(f.feed.Snapshot()); got != 0 {
		t.Errorf("history produced %d notifications, want 0", got)
	}
	if f.rec.UnreadCount() != 0 {
		t.Errorf("UnreadCount = %d, want 0", f.rec.UnreadCount())
	}
	if got := len(f.rec.Messages("c1")); got != 2 {
		t.Errorf("local list has %d messages, want 2", got)
	}
}

func TestClosedChatAccumulatesUnreadAndNotifies(t *testing.T) {
	f := newFixture(t)
	f.rec.Reconcile("c1", []models.Message{f.helper.Message("m1", "c1", "u2", "history")})

	// Three distinct other-user messages via a mix of poll and push.
	f.rec.ApplyLiveMessage(f.helper.Message("m2", "c1", "u2", "first"))
	f.rec.Reconcile("c1", []models.Message{
		f.helper.Message("m1", "c1", "u2", "history"),
		f.helper.Message("m2", "c1", "u2", "first"),
		f.helper.Message("m3", "c1", "u3", "second"),
	})
	f.rec.ApplyLiveMessage(f.helper.Message("m4", "c1", "u2", "third"))

	if f.rec.UnreadCount() != 3 {
		t.Errorf("UnreadCount = %d, want 3", f.rec.UnreadCount())
	}
	snap := f.feed.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("feed has %d entries, want 3", len(snap))
	}
	keys := make(map[string]bool)
	for _, n := range snap {
		if keys[n.Key] {
			t.Errorf("duplicate notification key %q", n.Key)
		}
		keys[n.Key] = true
	}
	if len(f.toasts.toasts) != 3 {
		t.Errorf("%d toasts emitted, want 3", len(f.toasts.toasts))
	}
}

func TestDuplicateDeliveryAcrossChannelsIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.rec.Reconcile("c1", []models.Message{f.helper.Message("m1", "c1", "u2", "")})

	msg := f.helper.Message("m2", "c1", "u2", "dup me")

	// Push first, then the poll re-delivers it; then push again.
	f.rec.ApplyLiveMessage(msg)
	f.rec.Reconcile("c1", []models.Message{f.helper.Message("m1", "c1", "u2", ""), msg})
	f.rec.ApplyLiveMessage(msg)

	if got := len(f.rec.Messages("c1")); got != 2 {
		t.Errorf("local list has %d messages, want 2", got)
	}
	if f.rec.UnreadCount() != 1 {
		t.Errorf("UnreadCount = %d, want 1", f.rec.UnreadCount())
	}
	if got := len(f.feed.Snapshot()); got != 1 {
		t.Errorf("feed has %d entries, want 1", got)
	}
}

func TestPollBeforePushSameMessage(t *testing.T) {
	f := newFixture(t)
	f.rec.Reconcile("c1", []models.Message{f.helper.Message("m1", "c1", "u2", "")})

	// Poll delivers m2 first; the push echo of m2 lands afterwards.
	f.rec.Reconcile("c1", []models.Message{
		f.helper.Message("m1", "c1", "u2", ""),
		f.helper.Message("m2", "c1", "u2", "polled first"),
	})
	f.rec.ApplyLiveMessage(f.helper.Message("m2", "c1", "u2", "pushed second"))

	if got := len(f.rec.Messages("c1")); got != 2 {
		t.Errorf("local list has %d messages, want 2", got)
	}
	if f.rec.UnreadCount() != 1 {
		t.Errorf("UnreadCount = %d, want 1", f.rec.UnreadCount())
	}
	// Identical ID with differing content: first occurrence wins.
	for _, m := range f.rec.Messages("c1") {
		if m.ID == "m2" && m.Content != "polled first" {
			t.Errorf("m2 content = %q, want first occurrence kept", m.Content)
		}
	}
}

func TestOwnMessagesNeverNotify(t *testing.T) {
	f := newFixture(t)
	f.rec.Reconcile("c1", []models.Message{f.helper.Message("m1", "c1", "u2", "")})

	// WebSocket echo of the current user's own send.
	f.rec.ApplyLiveMessage(f.helper.Message("m2", "c1", self, "my own words"))
	f.rec.Reconcile("c1", []models.Message{
		f.helper.Message("m1", "c1", "u2", ""),
		f.helper.Message("m2", "c1", self, "my own words"),
	})

	if f.rec.UnreadCount() != 0 {
		t.Errorf("UnreadCount = %d, want 0", f.rec.UnreadCount())
	}
	if got := len(f.feed.Snapshot()); got != 0 {
		t.Errorf("feed has %d entries, want 0", got)
	}
	if got := len(f.rec.Messages("c1")); got != 2 {
		t.Errorf("local list has %d messages, want 2", got)
	}
}

func TestOpenConversationAdvancesWatermarkSilently(t *testing.T) {
	f := newFixture(t)
	f.rec.Reconcile("c1", []models.Message{f.helper.Message("m1", "c1", "u2", "")})
	f.rec.MarkConversationOpened("c1")

	f.rec.ApplyLiveMessage(f.helper.Message("m2", "c1", "u2", "while open"))
	f.rec.Reconcile("c1", []models.Message{
		f.helper.Message("m1", "c1", "u2", ""),
		f.helper.Message("m2", "c1", "u2", "while open"),
		f.helper.Message("m3", "c1", "u2", "also while open"),
	})

	if wm, _ := f.watermarks.Get("c1"); wm != "m3" {
		t.Errorf("watermark = %q, want m3", wm)
	}
	if f.rec.UnreadCount() != 0 {
		t.Errorf("UnreadCount = %d, want 0", f.rec.UnreadCount())
	}
	if got := len(f.feed.Snapshot()); got != 0 {
		t.Errorf("feed has %d entries, want 0", got)
	}
	if len(f.toasts.toasts) != 0 {
		t.Errorf("%d toasts emitted while open, want 0", len(f.toasts.toasts))
	}
}

func TestOpeningClearsUnreadAndMarksRead(t *testing.T) {
	f := newFixture(t)
	f.rec.Reconcile("c1", []models.Message{f.helper.Message("m1", "c1", "u2", "")})
	f.rec.Reconcile("c2", []models.Message{f.helper.Message("n1", "c2", "u3", "")})

	f.rec.ApplyLiveMessage(f.helper.Message("m2", "c1", "u2", "unread in c1"))
	f.rec.ApplyLiveMessage(f.helper.Message("n2", "c2", "u3", "unread in c2"))

	if f.rec.UnreadCount() != 2 {
		t.Fatalf("UnreadCount = %d, want 2", f.rec.UnreadCount())
	}

	f.rec.MarkConversationOpened("c1")

	if f.rec.UnreadCount() != 0 {
		t.Errorf("UnreadCount after open = %d, want 0", f.rec.UnreadCount())
	}
	if wm, _ := f.watermarks.Get("c1"); wm != "m2" {
		t.Errorf("watermark = %q, want m2", wm)
	}
	for _, n := range f.feed.Snapshot() {
		wantRead := n.ConversationID == "c1"
		if n.Read != wantRead {
			t.Errorf("notification %s read = %v, want %v", n.Key, n.Read, wantRead)
		}
	}
}

func TestWatermarkNeverRegresses(t *testing.T) {
	f := newFixture(t)
	f.rec.Reconcile("c1", []models.Message{
		f.helper.Message("m1", "c1", "u2", ""),
		f.helper.Message("m5", "c1", "u2", ""),
	})
	f.rec.MarkConversationOpened("c1")
	f.rec.ApplyLiveMessage(f.helper.Message("m7", "c1", "u2", ""))

	// A late poll re-delivering only older history must not move the
	// watermark back.
	f.rec.Reconcile("c1", []models.Message{
		f.helper.Message("m1", "c1", "u2", ""),
		f.helper.Message("m5", "c1", "u2", ""),
	})

	if wm, _ := f.watermarks.Get("c1"); wm != "m7" {
		t.Errorf("watermark = %q, want m7", wm)
	}
}

func TestSwitchingConversationsClosesThePreviousOne(t *testing.T) {
	f := newFixture(t)
	f.rec.Reconcile("c1", []models.Message{f.helper.Message("m1", "c1", "u2", "")})
	f.rec.Reconcile("c2", []models.Message{f.helper.Message("n1", "c2", "u3", "")})

	f.rec.MarkConversationOpened("c1")
	f.rec.MarkConversationOpened("c2")

	if f.rec.ActiveConversation() != "c2" {
		t.Errorf("ActiveConversation = %q, want c2", f.rec.ActiveConversation())
	}

	// c1 is CLOSED again: its messages notify.
	f.rec.ApplyLiveMessage(f.helper.Message("m2", "c1", "u2", "back to closed"))
	if f.rec.UnreadCount() != 1 {
		t.Errorf("UnreadCount = %d, want 1", f.rec.UnreadCount())
	}
}

func TestCloseChatRestoresAccumulation(t *testing.T) {
	f := newFixture(t)
	f.rec.Reconcile("c1", []models.Message{f.helper.Message("m1", "c1", "u2", "")})
	f.rec.MarkConversationOpened("c1")
	f.rec.CloseChat()

	if f.rec.ActiveConversation() != "" {
		t.Errorf("ActiveConversation = %q, want empty after close", f.rec.ActiveConversation())
	}

	f.rec.ApplyLiveMessage(f.helper.Message("m2", "c1", "u2", "after close"))
	if f.rec.UnreadCount() != 1 {
		t.Errorf("UnreadCount = %d, want 1", f.rec.UnreadCount())
	}
}

func TestOpenChatResetsBadgeWithoutFocusing(t *testing.T) {
	f := newFixture(t)
	f.rec.Reconcile("c1", []models.Message{f.helper.Message("m1", "c1", "u2", "")})
	f.rec.ApplyLiveMessage(f.helper.Message("m2", "c1", "u2", "")) // unread = 1

	f.rec.OpenChat()

	if f.rec.UnreadCount() != 0 {
		t.Errorf("UnreadCount = %d, want 0 after opening launcher", f.rec.UnreadCount())
	}
	if f.rec.ActiveConversation() != "" {
		t.Errorf("opening the launcher should not focus a conversation")
	}
}

func TestRemoveMessageErasesLocally(t *testing.T) {
	f := newFixture(t)
	f.rec.Reconcile("c1", []models.Message{
		f.helper.Message("m1", "c1", "u2", ""),
		f.helper.Message("m2", "c1", "u2", ""),
	})

	f.rec.RemoveMessage("c1", "m1")

	list := f.rec.Messages("c1")
	if len(list) != 1 || list[0].ID != "m2" {
		t.Errorf("Messages after remove = %+v", list)
	}

	// Removing twice is harmless.
	f.rec.RemoveMessage("c1", "m1")
	if got := len(f.rec.Messages("c1")); got != 1 {
		t.Errorf("second remove changed list length to %d", got)
	}
}

func TestMessagesOrderedByIdentifier(t *testing.T) {
	f := newFixture(t)
	f.rec.Reconcile("c1", []models.Message{f.helper.Message("m03", "c1", "u2", "")})
	f.rec.ApplyLiveMessage(f.helper.Message("m01", "c1", "u2", ""))
	f.rec.ApplyLiveMessage(f.helper.Message("m02", "c1", "u2", ""))

	list := f.rec.Messages("c1")
	for i, want := range []string{"m01", "m02", "m03"} {
		if list[i].ID != want {
			t.Errorf("position %d = %s, want %s", i, list[i].ID, want)
		}
	}
}

// The end-to-end scenario from the product acceptance checklist.
func TestFullScenario(t *testing.T) {
	f := newFixture(t)

	// c1 has [m1(other), m2(other)], no stored watermark, chat closed.
	f.rec.Reconcile("c1", []models.Message{
		f.helper.Message("m1", "c1", "u2", "one"),
		f.helper.Message("m2", "c1", "u2", "two"),
	})
	if got := len(f.feed.Snapshot()); got != 0 {
		t.Fatalf("first load produced %d notifications, want 0", got)
	}
	if wm, _ := f.watermarks.Get("c1"); wm != "m2" {
		t.Fatalf("watermark = %q, want m2", wm)
	}

	// m3(other) arrives via push.
	f.rec.ApplyLiveMessage(f.helper.Message("m3", "c1", "u2", "three"))
	if f.rec.UnreadCount() != 1 {
		t.Fatalf("UnreadCount = %d, want 1", f.rec.UnreadCount())
	}
	snap := f.feed.Snapshot()
	if len(snap) != 1 || snap[0].MessageID != "m3" {
		t.Fatalf("feed = %+v, want one entry for m3", snap)
	}

	// User opens c1.
	f.rec.MarkConversationOpened("c1")
	if f.rec.UnreadCount() != 0 {
		t.Errorf("UnreadCount after open = %d, want 0", f.rec.UnreadCount())
	}
	if wm, _ := f.watermarks.Get("c1"); wm != "m3" {
		t.Errorf("watermark after open = %q, want m3", wm)
	}
	if snap := f.feed.Snapshot(); !snap[0].Read {
		t.Error("notification for m3 should be marked read")
	}
}

func TestInterleavingsConvergeToSameList(t *testing.T) {
	all := []string{"m1", "m2", "m3", "m4"}

	deliver := func(f *fixture, order []int, viaPush []bool) {
		helper := f.helper
		for i, idx := range order {
			msg := helper.Message(all[idx], "c1", "u2", "content "+all[idx])
			if viaPush[i] {
				f.rec.ApplyLiveMessage(msg)
			} else {
				f.rec.Reconcile("c1", []models.Message{msg})
			}
		}
	}

	cases := []struct {
		order   []int
		viaPush []bool
	}{
		{[]int{0, 1, 2, 3}, []bool{false, false, false, false}},
		{[]int{3, 2, 1, 0}, []bool{true, true, true, true}},
		{[]int{0, 1, 1, 2, 2, 3}, []bool{false, true, false, true, false, true}},
		{[]int{2, 0, 3, 1, 2, 0}, []bool{true, false, true, false, false, true}},
	}

	for i, tc := range cases {
		t.Run(fmt.Sprintf("interleaving_%d", i), func(t *testing.T) {
			f := newFixture(t)
			deliver(f, tc.order, tc.viaPush)

			unique := make(map[int]bool)
			for _, idx := range tc.order {
				unique[idx] = true
			}

			list := f.rec.Messages("c1")
			if len(list) != len(unique) {
				t.Fatalf("list has %d messages, want %d", len(list), len(unique))
			}
			for j := 1; j < len(list); j++ {
				if models.CompareMessageID(list[j-1].ID, list[j].ID) >= 0 {
					t.Errorf("list out of order at %d: %s >= %s", j, list[j-1].ID, list[j].ID)
				}
			}
		})
	}
}
