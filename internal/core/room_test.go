package core

import (
	"testing"

	"github.com/studyhub-app/studyhub/internal/domain"
)

func member(conn domain.ConnID, uid domain.UserID, name string) MemberDTO {
	return MemberDTO{ConnID: conn, UserID: uid, Name: name}
}

func TestFirstMemberBecomesHost(t *testing.T) {
	r := NewRoom("room-1", domain.KindChat)
	r.AddMember("c1", &fakeConn{}, member("c1", "u1", "Ada"))
	r.AddMember("c2", &fakeConn{}, member("c2", "u2", "Ben"))
	if r.Host() != "c1" {
		t.Fatalf("expected host c1, got %s", r.Host())
	}
}

func TestHostSuccessionNextOldest(t *testing.T) {
	r := NewRoom("room-1", domain.KindStudy)
	r.AddMember("c1", &fakeConn{}, member("c1", "u1", "Ada"))
	r.AddMember("c2", &fakeConn{}, member("c2", "u2", "Ben"))
	r.AddMember("c3", &fakeConn{}, member("c3", "u3", "Cyd"))

	newHost, empty := r.RemoveMember("c1")
	if newHost != "c2" {
		t.Fatalf("expected host to pass to c2, got %q", newHost)
	}
	if empty {
		t.Error("room reported empty with two members left")
	}

	// A non-host leaving must not move the role.
	newHost, _ = r.RemoveMember("c3")
	if newHost != "" {
		t.Errorf("non-host departure moved the role to %q", newHost)
	}

	newHost, empty = r.RemoveMember("c2")
	if newHost != "" {
		t.Errorf("last departure reported new host %q", newHost)
	}
	if !empty {
		t.Error("room not reported empty after last member left")
	}
	if r.EmptySince().IsZero() {
		t.Error("emptySince not stamped on drain")
	}
}

func TestBroadcastIsolatesFailedRecipients(t *testing.T) {
	r := NewRoom("room-1", domain.KindChat)
	good1 := &fakeConn{}
	bad := &fakeConn{fail: true}
	good2 := &fakeConn{}
	r.AddMember("c1", good1, member("c1", "u1", "Ada"))
	r.AddMember("c2", bad, member("c2", "u2", "Ben"))
	r.AddMember("c3", good2, member("c3", "u3", "Cyd"))

	res := r.Broadcast("", Frame("hello"))
	if res.SentTo != 2 {
		t.Errorf("expected 2 deliveries, got %d", res.SentTo)
	}
	if len(res.Dropped) != 1 || res.Dropped[0] != "c2" {
		t.Errorf("expected c2 dropped, got %v", res.Dropped)
	}
	if len(good1.frames) != 1 || len(good2.frames) != 1 {
		t.Error("healthy recipients must receive despite a failed peer")
	}
}

func TestBroadcastExcludesSender(t *testing.T) {
	r := NewRoom("room-1", domain.KindChat)
	sender := &fakeConn{}
	peer := &fakeConn{}
	r.AddMember("c1", sender, member("c1", "u1", "Ada"))
	r.AddMember("c2", peer, member("c2", "u2", "Ben"))

	r.Broadcast("c1", Frame("x"))
	if len(sender.frames) != 0 {
		t.Error("excluded sender received its own broadcast")
	}
	if len(peer.frames) != 1 {
		t.Error("peer missed the broadcast")
	}
}

func TestMembersSnapshotJoinOrder(t *testing.T) {
	r := NewRoom("room-1", domain.KindChat)
	r.AddMember("c2", &fakeConn{}, member("c2", "u2", "Ben"))
	r.AddMember("c1", &fakeConn{}, member("c1", "u1", "Ada"))
	r.AddMember("c3", &fakeConn{}, member("c3", "u3", "Cyd"))

	snap := r.MembersSnapshot()
	want := []domain.ConnID{"c2", "c1", "c3"}
	if len(snap) != len(want) {
		t.Fatalf("expected %d members, got %d", len(want), len(snap))
	}
	for i, m := range snap {
		if m.ConnID != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], m.ConnID)
		}
	}
}
