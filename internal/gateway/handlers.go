package gateway

import (
	"Wanna/internal/entity"
	"Wanna/internal/errors"
	"bytes"
	"context"
	"encoding/json"
	"strings"
)

// decode unmarshals the data of an inbound message into v, missing data is read as an empty object.
func decode(data json.RawMessage, v interface{}) error {
	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.ValidationFailed("Malformed message data")
	}
	return nil
}

// auth registers a new user when names are present, otherwise authenticates an existing one.
// The connection is rebound to the resulting identity either way.
func (g *Gateway) handleAuth(ctx context.Context, req request) (outcome, error) {
	var creds entity.Credentials
	if err := decode(req.data, &creds); err != nil {
		return outcome{}, err
	}
	if creds.IsRegistration() {
		user, err := g.users.CreateUser(ctx, creds)
		if err != nil {
			return outcome{}, err
		}
		g.bind(ctx, req.connID, user.Auth)
		return outcome{reply: map[string]interface{}{"newUser": user}}, nil
	}
	user, err := g.users.FindUserByAuth(ctx, creds.Auth)
	if err != nil {
		if errors.KindOf(err) == errors.NotFoundKind {
			return outcome{}, errors.InvalidCredential("")
		}
		return outcome{}, err
	}
	g.bind(ctx, req.connID, user.Auth)
	return outcome{reply: map[string]interface{}{"userData": user}}, nil
}

func (g *Gateway) handleListCreate(ctx context.Context, req request) (outcome, error) {
	var create entity.CreateList
	if err := decode(req.data, &create); err != nil {
		return outcome{}, err
	}
	list, err := g.lists.CreateList(ctx, req.identity, create)
	if err != nil {
		return outcome{}, err
	}
	return outcome{
		reply:     map[string]interface{}{"list": list},
		broadcast: g.emitSnapshot(list.ListID, entity.ActionCreated),
	}, nil
}

type listUpdatePayload struct {
	ListID string `json:"listId"`
	entity.UpdateList
}

func (g *Gateway) handleListUpdate(ctx context.Context, req request) (outcome, error) {
	var payload listUpdatePayload
	if err := decode(req.data, &payload); err != nil {
		return outcome{}, err
	}
	list, err := g.lists.UpdateList(ctx, req.identity, payload.ListID, payload.UpdateList)
	if err != nil {
		return outcome{}, err
	}
	return outcome{
		reply:     map[string]interface{}{"list": list},
		broadcast: g.scheduleSnapshot(list.ListID, entity.ActionUpdated),
	}, nil
}

type listViewPayload struct {
	ShareID string `json:"shareId"`
	ListID  string `json:"listId"`
}

// list:view resolves a list by its share id. Older clients send the share id as listId.
func (g *Gateway) handleListView(ctx context.Context, req request) (outcome, error) {
	var payload listViewPayload
	if err := decode(req.data, &payload); err != nil {
		return outcome{}, err
	}
	shareID := payload.ShareID
	if shareID == "" {
		shareID = payload.ListID
	}
	view, err := g.lists.FindListByShareID(ctx, shareID)
	if err != nil {
		return outcome{}, err
	}
	return outcome{reply: map[string]interface{}{"listData": view}}, nil
}

type shareIDPayload struct {
	ShareID string `json:"shareId"`
}

func (g *Gateway) handleListJoin(ctx context.Context, req request) (outcome, error) {
	var payload shareIDPayload
	if err := decode(req.data, &payload); err != nil {
		return outcome{}, err
	}
	membership, err := g.lists.JoinList(ctx, req.identity, payload.ShareID)
	if err != nil {
		return outcome{}, err
	}
	return outcome{
		reply:     map[string]interface{}{"joinedList": membership},
		broadcast: g.emitSnapshot(membership.ListID, entity.ActionJoined),
	}, nil
}

type listIDPayload struct {
	ListID string `json:"listId"`
}

// The member who left is no longer a subscriber, the remaining members get the membership change.
func (g *Gateway) handleListLeave(ctx context.Context, req request) (outcome, error) {
	var payload listIDPayload
	if err := decode(req.data, &payload); err != nil {
		return outcome{}, err
	}
	membership, err := g.lists.LeaveList(ctx, req.identity, payload.ListID)
	if err != nil {
		return outcome{}, err
	}
	return outcome{
		reply: map[string]interface{}{"leftList": membership},
		broadcast: func(ctx context.Context) {
			g.notifier.EmitImmediately(ctx, entity.ListResourceKey(membership.ListID), entity.ActionLeft, membership)
		},
	}, nil
}

func (g *Gateway) handleItemCreate(ctx context.Context, req request) (outcome, error) {
	var create entity.CreateItem
	if err := decode(req.data, &create); err != nil {
		return outcome{}, err
	}
	result, err := g.items.CreateItem(ctx, req.identity, create)
	if err != nil {
		return outcome{}, err
	}
	return outcome{
		reply:     map[string]interface{}{"result": result},
		broadcast: g.emitSnapshot(result.ListItem.ListID, entity.ActionItemCreated),
	}, nil
}

type itemUpdatePayload struct {
	ListID    string                  `json:"listId"`
	ListItems []entity.UpdateListItem `json:"listItems"`
	entity.UpdateListItem
}

// item:update carries either a batch under listItems or a single list item update.
func (g *Gateway) handleItemUpdate(ctx context.Context, req request) (outcome, error) {
	var payload itemUpdatePayload
	if err := decode(req.data, &payload); err != nil {
		return outcome{}, err
	}
	var err error
	if payload.ListItems != nil {
		err = g.items.UpdateListItems(ctx, req.identity, payload.ListID, payload.ListItems)
	} else {
		err = g.items.UpdateListItem(ctx, req.identity, payload.ListID, payload.UpdateListItem)
	}
	if err != nil {
		return outcome{}, err
	}
	return outcome{
		reply:     map[string]interface{}{"success": true},
		broadcast: g.scheduleSnapshot(payload.ListID, entity.ActionItemUpdated),
	}, nil
}

type listItemUpdatePayload struct {
	ListID string `json:"listId"`
	entity.UpdateListItem
}

func (g *Gateway) handleListItemUpdate(ctx context.Context, req request) (outcome, error) {
	var payload listItemUpdatePayload
	if err := decode(req.data, &payload); err != nil {
		return outcome{}, err
	}
	if strings.TrimSpace(payload.ListID) == "" || strings.TrimSpace(payload.ListItemID) == "" {
		return outcome{}, errors.ValidationFailed("listId and listItemId are required")
	}
	if err := g.items.UpdateListItem(ctx, req.identity, payload.ListID, payload.UpdateListItem); err != nil {
		return outcome{}, err
	}
	return outcome{
		reply:     map[string]interface{}{"success": true},
		broadcast: g.scheduleSnapshot(payload.ListID, entity.ActionItemUpdated),
	}, nil
}
