// Package line adapts the LINE Messaging API to the narrow interfaces the
// core consumes: push, reply, and display-name lookup.
package line

import (
	"errors"
	"net/http"

	"github.com/line/line-bot-sdk-go/v7/linebot"
	"go.uber.org/zap"

	"github.com/hcchou0425/line-jielong/internal/bot"
)

// Client wraps the LINE SDK. It satisfies scheduler.Pusher.
type Client struct {
	api *linebot.Client
	log *zap.Logger
}

func New(channelSecret, channelToken string, log *zap.Logger) (*Client, error) {
	api, err := linebot.New(channelSecret, channelToken)
	if err != nil {
		return nil, err
	}
	return &Client{api: api, log: log}, nil
}

// Push sends an unsolicited message to a group, room or user.
func (c *Client) Push(groupID, text string) error {
	_, err := c.api.PushMessage(groupID, linebot.NewTextMessage(text)).Do()
	return err
}

// Reply answers a webhook event via its reply token.
func (c *Client) Reply(replyToken, text string) error {
	_, err := c.api.ReplyMessage(replyToken, linebot.NewTextMessage(text)).Do()
	return err
}

// displayName returns a lazy profile lookup for the event's sender.
// Lookup failures degrade to an empty name; the command layer substitutes
// a placeholder.
func (c *Client) displayName(source *linebot.EventSource) func() string {
	return func() string {
		var (
			profile *linebot.UserProfileResponse
			err     error
		)
		switch {
		case source.GroupID != "":
			profile, err = c.api.GetGroupMemberProfile(source.GroupID, source.UserID).Do()
		case source.RoomID != "":
			profile, err = c.api.GetRoomMemberProfile(source.RoomID, source.UserID).Do()
		default:
			profile, err = c.api.GetProfile(source.UserID).Do()
		}
		if err != nil {
			c.log.Warn("profile lookup failed", zap.Error(err), zap.String("user", source.UserID))
			return ""
		}
		return profile.DisplayName
	}
}

// sourceID picks the conversation identifier: group, room, or 1:1 user.
func sourceID(s *linebot.EventSource) string {
	switch {
	case s.GroupID != "":
		return s.GroupID
	case s.RoomID != "":
		return s.RoomID
	default:
		return s.UserID
	}
}

// WebhookHandler verifies the signature, parses webhook events, and feeds
// text messages through the command router. Handler errors never escape:
// LINE retries the whole batch on non-200, which would duplicate commands.
func (c *Client) WebhookHandler(router *bot.Router) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, err := c.api.ParseRequest(r)
		if err != nil {
			if errors.Is(err, linebot.ErrInvalidSignature) {
				c.log.Error("invalid webhook signature")
				w.WriteHeader(http.StatusBadRequest)
			} else {
				c.log.Error("parse webhook failed", zap.Error(err))
				w.WriteHeader(http.StatusInternalServerError)
			}
			return
		}

		ctx := r.Context()
		for _, ev := range events {
			switch ev.Type {
			case linebot.EventTypeMessage:
				msg, ok := ev.Message.(*linebot.TextMessage)
				if !ok {
					continue
				}
				reply := router.Handle(ctx, msg.Text, sourceID(ev.Source), ev.Source.UserID, c.displayName(ev.Source))
				if reply == "" {
					continue
				}
				if err := c.Reply(ev.ReplyToken, reply); err != nil {
					c.log.Error("reply failed", zap.Error(err))
				}
			case linebot.EventTypeJoin:
				if err := c.Reply(ev.ReplyToken, router.Welcome()); err != nil {
					c.log.Error("welcome reply failed", zap.Error(err))
				}
			}
		}
		w.WriteHeader(http.StatusOK)
	}
}
