package models

// Server-to-client channel events
const (
	EventRequestNew       = "request:new"
	EventRequestCancelled = "request:cancelled"
	EventRequestConsumed  = "request:consumed"
	EventRequestAccepted  = "request:accepted"
	EventRequestRejected  = "request:rejected"
	EventPartnerStatus    = "partner-status"
	EventSpaceDeleted     = "space-deleted"
	EventPartnerFed       = "partner-fed"
)

// Client-to-server channel events
const (
	EventJoinSpace  = "join-space"
	EventLeaveSpace = "leave-space"
	EventFeedCat    = "feed-cat"
)

// RequestNewPayload carries a full request object on request:new
type RequestNewPayload struct {
	Request JoinRequest `json:"request"`
}

// RequestIDPayload carries the bare correlation key of a request event
type RequestIDPayload struct {
	ID string `json:"id"`
}

// PartnerStatusPayload carries the partner's channel presence
type PartnerStatusPayload struct {
	Online bool `json:"online"`
}

// SpaceDeletedPayload announces a server-initiated space eviction
type SpaceDeletedPayload struct {
	Message string `json:"message"`
}

// PartnerFedPayload is broadcast after the partner performs the feeding ritual
type PartnerFedPayload struct {
	TodayFeeding *TodayFeeding `json:"todayFeeding"`
}

// SpaceRefPayload addresses a space on join/leave/feed emits
type SpaceRefPayload struct {
	SpaceID string `json:"spaceId"`
}
