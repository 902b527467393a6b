package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// RequestStatus is the lifecycle state of a join request
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusAccepted  RequestStatus = "accepted"
	StatusRejected  RequestStatus = "rejected"
	StatusCancelled RequestStatus = "cancelled"
)

// Terminal reports whether the status is a final state
func (s RequestStatus) Terminal() bool {
	return s == StatusAccepted || s == StatusRejected || s == StatusCancelled
}

// JoinRequest is an invitation from one user to another to form a space
type JoinRequest struct {
	ID             string        `json:"_id" validate:"required"`
	FromUserID     string        `json:"fromUserId" validate:"required"`
	ToUserID       string        `json:"toUserId"`
	FromInviteCode string        `json:"fromInviteCode"`
	ToInviteCode   string        `json:"toInviteCode"`
	FromUserName   string        `json:"fromUserName"`
	Message        string        `json:"message"`
	SpaceName      string        `json:"spaceName"`
	Status         RequestStatus `json:"status" validate:"required,oneof=pending accepted rejected cancelled"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// DecodeJoinRequest decodes and validates a join request payload
func DecodeJoinRequest(data []byte) (*JoinRequest, error) {
	var req JoinRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to decode join request: %w", err)
	}
	if err := validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("invalid join request payload: %w", err)
	}
	return &req, nil
}

// SpaceMember is one of the two members of a space. Location fields are
// reported by the owning client only.
type SpaceMember struct {
	UID               string     `json:"uid" validate:"required"`
	Name              string     `json:"name"`
	Latitude          *float64   `json:"latitude,omitempty"`
	Longitude         *float64   `json:"longitude,omitempty"`
	City              string     `json:"city,omitempty"`
	Country           string     `json:"country,omitempty"`
	District          string     `json:"district,omitempty"`
	LocationUpdatedAt *time.Time `json:"locationUpdatedAt,omitempty"`
}

// TodayFeeding records which member ids fed the cat on a calendar day
type TodayFeeding struct {
	Date     string   `json:"date"`
	FedUsers []string `json:"fedUsers"`
}

// Space is the shared two-member context
type Space struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Members           []SpaceMember `json:"members"`
	CreatedAt         time.Time     `json:"createdAt"`
	TodayFeeding      *TodayFeeding `json:"todayFeeding,omitempty"`
	CoFeedingDays     int           `json:"coFeedingDays"`
	LastCoFeedingDate string        `json:"lastCoFeedingDate"`
}

// Valid reports whether the space has exactly two members
func (s *Space) Valid() bool {
	return s != nil && len(s.Members) == 2
}

// Member returns the member with the given uid, or nil
func (s *Space) Member(uid string) *SpaceMember {
	for i := range s.Members {
		if s.Members[i].UID == uid {
			return &s.Members[i]
		}
	}
	return nil
}

// Partner returns the member that is not the given uid, or nil
func (s *Space) Partner(uid string) *SpaceMember {
	for i := range s.Members {
		if s.Members[i].UID != uid {
			return &s.Members[i]
		}
	}
	return nil
}

// spaceWire is the raw server shape of a space
type spaceWire struct {
	ID                string        `json:"_id" validate:"required"`
	SpaceName         string        `json:"spaceName"`
	Members           []SpaceMember `json:"members" validate:"dive"`
	CreatedAt         time.Time     `json:"createdAt"`
	TodayFeeding      *TodayFeeding `json:"todayFeeding"`
	CoFeedingDays     int           `json:"coFeedingDays"`
	LastCoFeedingDate string        `json:"lastCoFeedingDate"`
}

// DecodeSpace decodes and validates a raw space payload into the model.
// Member count is not enforced here; an incomplete space is a business
// state the space store reacts to.
func DecodeSpace(data []byte) (*Space, error) {
	var raw spaceWire
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode space: %w", err)
	}
	if err := validate.Struct(&raw); err != nil {
		return nil, fmt.Errorf("invalid space payload: %w", err)
	}
	return &Space{
		ID:                raw.ID,
		Name:              raw.SpaceName,
		Members:           raw.Members,
		CreatedAt:         raw.CreatedAt,
		TodayFeeding:      raw.TodayFeeding,
		CoFeedingDays:     raw.CoFeedingDays,
		LastCoFeedingDate: raw.LastCoFeedingDate,
	}, nil
}
