package model

// MemberEvent drives a membership transition
type MemberEvent string

const (
	MemberEventRequest MemberEvent = "request"
	MemberEventJoin    MemberEvent = "join"
	MemberEventReject  MemberEvent = "reject"
	MemberEventLeave   MemberEvent = "leave"
)

// ChatEvent drives a public chat transition
type ChatEvent string

const (
	ChatEventEnd    ChatEvent = "end"
	ChatEventCancel ChatEvent = "cancel"
)

type memberKey struct {
	from  MemberStatus
	event MemberEvent
}

// memberTransitions is the complete membership state machine.
// MemberStatusNone stands for "no row yet".
var memberTransitions = map[memberKey]MemberStatus{
	{MemberStatusNone, MemberEventRequest}: MemberStatusPending,
	{MemberStatusNone, MemberEventJoin}:    MemberStatusJoined,
	{MemberStatusNone, MemberEventReject}:  MemberStatusRejected,

	{MemberStatusPending, MemberEventJoin}:   MemberStatusJoined,
	{MemberStatusPending, MemberEventReject}: MemberStatusRejected,

	{MemberStatusJoined, MemberEventLeave}:  MemberStatusLeft,
	{MemberStatusJoined, MemberEventReject}: MemberStatusRejected,

	{MemberStatusRejected, MemberEventJoin}:   MemberStatusJoined,
	{MemberStatusRejected, MemberEventReject}: MemberStatusRejected,

	{MemberStatusLeft, MemberEventJoin}:   MemberStatusJoined,
	{MemberStatusLeft, MemberEventReject}: MemberStatusRejected,
}

// TransitionMember returns the status reached from current on event
func TransitionMember(current MemberStatus, event MemberEvent) (MemberStatus, error) {
	if next, ok := memberTransitions[memberKey{current, event}]; ok {
		return next, nil
	}
	switch {
	case current == MemberStatusJoined && event == MemberEventJoin:
		return current, ErrAlreadyJoined
	case current == MemberStatusNone && event == MemberEventLeave:
		return current, ErrMemberNotFound
	}
	return current, ErrInvalidTransition
}

// TransitionChat returns the status reached from current on event.
// Ended and Cancelled are terminal.
func TransitionChat(current ChatStatus, event ChatEvent) (ChatStatus, error) {
	if current != ChatStatusActive {
		return current, ErrChatClosed
	}
	switch event {
	case ChatEventEnd:
		return ChatStatusEnded, nil
	case ChatEventCancel:
		return ChatStatusCancelled, nil
	}
	return current, ErrInvalidTransition
}

// ActionFor maps a membership event to the audit action it records
func ActionFor(event MemberEvent) (ChatAction, bool) {
	switch event {
	case MemberEventJoin:
		return ChatActionJoined, true
	case MemberEventReject:
		return ChatActionRejected, true
	case MemberEventLeave:
		return ChatActionLeft, true
	}
	return "", false
}
