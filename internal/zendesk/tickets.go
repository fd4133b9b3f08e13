package zendesk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/spec-kit/autoresolve/internal/domain"
)

// TicketUpdate is the subset of ticket fields the resolver writes.
type TicketUpdate struct {
	Status         string         `json:"status,omitempty"`
	Comment        *TicketComment `json:"comment,omitempty"`
	AdditionalTags []string       `json:"additional_tags,omitempty"`
}

// TicketComment is a comment added with an update.
type TicketComment struct {
	Body   string `json:"body"`
	Public bool   `json:"public"`
}

type ticketEnvelope struct {
	Ticket ticket `json:"ticket"`
}

type ticket struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
	Via    via    `json:"via"`
}

type via struct {
	Channel string `json:"channel"`
}

type updateEnvelope struct {
	Ticket TicketUpdate `json:"ticket"`
}

type commentsPage struct {
	Comments []comment `json:"comments"`
	Users    []user    `json:"users"`
}

type comment struct {
	ID       int64  `json:"id"`
	AuthorID int64  `json:"author_id"`
	Body     string `json:"body"`
	Public   bool   `json:"public"`
	Via      via    `json:"via"`
}

type user struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// UpdateTicket applies update to a ticket.
func (c *Client) UpdateTicket(ctx context.Context, id domain.TicketID, update TicketUpdate) error {
	path := fmt.Sprintf("/api/v2/tickets/%s.json", url.PathEscape(id.String()))
	return c.do(ctx, http.MethodPut, path, nil, updateEnvelope{Ticket: update}, nil)
}

// TicketChannel returns the channel the ticket was created through
// (email, web, voice, chat, native_messaging, ...).
func (c *Client) TicketChannel(ctx context.Context, id domain.TicketID) (string, error) {
	var env ticketEnvelope
	path := fmt.Sprintf("/api/v2/tickets/%s.json", url.PathEscape(id.String()))
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &env); err != nil {
		return "", err
	}
	return env.Ticket.Via.Channel, nil
}

// ListComments returns the newest page of comments, oldest first, with
// author names and roles taken from the sideloaded users.
func (c *Client) ListComments(ctx context.Context, id domain.TicketID) ([]domain.Comment, error) {
	query := url.Values{}
	query.Set("include", "users")
	query.Set("sort_order", "desc")

	var page commentsPage
	path := fmt.Sprintf("/api/v2/tickets/%s/comments.json", url.PathEscape(id.String()))
	if err := c.do(ctx, http.MethodGet, path, query, nil, &page); err != nil {
		return nil, err
	}

	users := make(map[int64]user, len(page.Users))
	for _, u := range page.Users {
		users[u.ID] = u
	}

	out := make([]domain.Comment, 0, len(page.Comments))
	for i := len(page.Comments) - 1; i >= 0; i-- {
		cm := page.Comments[i]
		author := users[cm.AuthorID]
		visibility := domain.VisibilityInternal
		if cm.Public {
			visibility = domain.VisibilityPublic
		}
		out = append(out, domain.Comment{
			Body:       cm.Body,
			AuthorName: author.Name,
			AuthorRole: domain.ParseAuthorRole(author.Role),
			Visibility: visibility,
		})
	}
	return out, nil
}
