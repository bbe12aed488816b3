package model

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestTransitionMember(t *testing.T) {
	tests := []struct {
		from    MemberStatus
		event   MemberEvent
		want    MemberStatus
		wantErr error
	}{
		{MemberStatusNone, MemberEventRequest, MemberStatusPending, nil},
		{MemberStatusNone, MemberEventJoin, MemberStatusJoined, nil},
		{MemberStatusNone, MemberEventReject, MemberStatusRejected, nil},
		{MemberStatusNone, MemberEventLeave, MemberStatusNone, ErrMemberNotFound},
		{MemberStatusPending, MemberEventJoin, MemberStatusJoined, nil},
		{MemberStatusPending, MemberEventReject, MemberStatusRejected, nil},
		{MemberStatusPending, MemberEventLeave, MemberStatusPending, ErrInvalidTransition},
		{MemberStatusJoined, MemberEventJoin, MemberStatusJoined, ErrAlreadyJoined},
		{MemberStatusJoined, MemberEventLeave, MemberStatusLeft, nil},
		{MemberStatusJoined, MemberEventReject, MemberStatusRejected, nil},
		{MemberStatusRejected, MemberEventJoin, MemberStatusJoined, nil},
		{MemberStatusRejected, MemberEventReject, MemberStatusRejected, nil},
		{MemberStatusRejected, MemberEventLeave, MemberStatusRejected, ErrInvalidTransition},
		{MemberStatusLeft, MemberEventJoin, MemberStatusJoined, nil},
		{MemberStatusLeft, MemberEventReject, MemberStatusRejected, nil},
		{MemberStatusLeft, MemberEventLeave, MemberStatusLeft, ErrInvalidTransition},
	}

	for _, tt := range tests {
		name := fmt.Sprintf("%s+%s", tt.from, tt.event)
		if tt.from == MemberStatusNone {
			name = "none+" + string(tt.event)
		}
		t.Run(name, func(t *testing.T) {
			got, err := TransitionMember(tt.from, tt.event)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("status = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTransitionChat(t *testing.T) {
	if got, err := TransitionChat(ChatStatusActive, ChatEventEnd); err != nil || got != ChatStatusEnded {
		t.Errorf("active+end = %q, %v", got, err)
	}
	if got, err := TransitionChat(ChatStatusActive, ChatEventCancel); err != nil || got != ChatStatusCancelled {
		t.Errorf("active+cancel = %q, %v", got, err)
	}
	for _, terminal := range []ChatStatus{ChatStatusEnded, ChatStatusCancelled} {
		if _, err := TransitionChat(terminal, ChatEventEnd); !errors.Is(err, ErrChatClosed) {
			t.Errorf("%s+end err = %v, want ErrChatClosed", terminal, err)
		}
	}
}

func TestActionFor(t *testing.T) {
	if _, ok := ActionFor(MemberEventRequest); ok {
		t.Error("request should not produce an audit action")
	}
	if a, ok := ActionFor(MemberEventLeave); !ok || a != ChatActionLeft {
		t.Errorf("leave = %q, %v", a, ok)
	}
}

func TestPublicChat_LazyEnd(t *testing.T) {
	now := time.Date(2026, 5, 2, 18, 0, 0, 0, time.UTC)
	chat := &PublicChat{
		IsPublic:         true,
		Status:           ChatStatusActive,
		ScheduledDate:    now.Add(-3 * time.Hour),
		ScheduledEndTime: now.Add(-time.Hour),
		MaxMembers:       5,
	}

	if got := chat.EffectiveStatus(now); got != ChatStatusEnded {
		t.Errorf("EffectiveStatus = %q, want ended", got)
	}
	if chat.Status != ChatStatusActive {
		t.Error("stored status must not change on read")
	}
	if chat.IsEligible(now) {
		t.Error("past-end chat must not be eligible")
	}

	chat.ScheduledEndTime = now.Add(time.Hour)
	chat.JoinedCount = 5
	if chat.IsEligible(now) {
		t.Error("full chat must not be eligible")
	}
	chat.JoinedCount = 4
	if !chat.IsEligible(now) {
		t.Error("open chat with a free seat should be eligible")
	}
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("join: %w", ErrChatFull)
	if k := KindOf(wrapped); k != KindCapacity {
		t.Errorf("KindOf(wrapped ErrChatFull) = %v, want capacity", k)
	}
	if k := KindOf(errors.New("boom")); k != KindInternal {
		t.Errorf("KindOf(plain) = %v, want internal", k)
	}
	if k := KindOf(Validationf("bad %s", "x")); k != KindValidation {
		t.Errorf("KindOf(Validationf) = %v, want validation", k)
	}
}
