// Package trello is a thin client for the Trello REST API.
//
// Only the endpoints used by the capture agent are covered: boards, lists,
// cards and the card updates (move, archive, due date, description).
package trello

import (
	"time"

	"github.com/harun/ctx/pkg/svcerr"
)

// Board is a Trello board
type Board struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// List is a list on a board
type List struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IDBoard string `json:"idBoard"`
}

// Label is a card label
type Label struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Card is a Trello card
type Card struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Desc   string  `json:"desc"`
	IDList string  `json:"idList"`
	Due    *string `json:"due"`
	Closed bool    `json:"closed"`
	Labels []Label `json:"labels"`
}

// Member is the authenticated Trello member
type Member struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Username string `json:"username"`
}

// NewCard describes a card to create
type NewCard struct {
	ListID string
	Name   string
	Desc   string
	Due    *time.Time
}

type createCardBody struct {
	Name   string `json:"name"`
	IDList string `json:"idList"`
	Desc   string `json:"desc,omitempty"`
	Due    string `json:"due,omitempty"`
}

func invalidResponse() error {
	return svcerr.New(svcerr.CodeValidation, "Invalid response from Trello API")
}

func (b Board) validate() error {
	if b.ID == "" || b.Name == "" {
		return invalidResponse()
	}
	return nil
}

func (l List) validate() error {
	if l.ID == "" || l.Name == "" {
		return invalidResponse()
	}
	return nil
}

func (c Card) validate() error {
	if c.ID == "" || c.Name == "" {
		return invalidResponse()
	}
	return nil
}

// DueString returns the due date or "none"
func (c Card) DueString() string {
	if c.Due == nil || *c.Due == "" {
		return "none"
	}
	return *c.Due
}
