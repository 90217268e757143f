// Structure of List Model in Wanna.

package entity

import "strings"

// Saved in DB as list:<listId>. Times are unix milliseconds.
type List struct {
	ListID                  string `json:"listId" redis:"list_id"`
	ShareID                 string `json:"shareId" redis:"share_id"`
	Name                    string `json:"name" redis:"name"`
	Type                    string `json:"type,omitempty" redis:"type"`
	Deadline                int64  `json:"deadline,omitempty" redis:"deadline"`
	Completed               bool   `json:"completed" redis:"completed"`
	CompletedAt             int64  `json:"completedAt,omitempty" redis:"completed_at"`
	SortOrder               int    `json:"sortOrder" redis:"sort_order"`
	NotifyOnListShared      bool   `json:"notifyOnListShared" redis:"notify_on_list_shared"`
	NotifyOnListItemsUpdate bool   `json:"notifyOnListItemsUpdate" redis:"notify_on_list_items_update"`
	NotifyOnItemStateUpdate bool   `json:"notifyOnItemStateUpdate" redis:"notify_on_item_state_update"`
	Deleted                 bool   `json:"deleted" redis:"deleted"`
	Created                 int64  `json:"createdAt" redis:"created"`
	Updated                 int64  `json:"updatedAt" redis:"updated"`
}

// Fields returns the hash fields of l as stored in redis.
func (l List) Fields() map[string]interface{} {
	return map[string]interface{}{
		"list_id":                     l.ListID,
		"share_id":                    l.ShareID,
		"name":                        l.Name,
		"type":                        l.Type,
		"deadline":                    l.Deadline,
		"completed":                   l.Completed,
		"completed_at":                l.CompletedAt,
		"sort_order":                  l.SortOrder,
		"notify_on_list_shared":       l.NotifyOnListShared,
		"notify_on_list_items_update": l.NotifyOnListItemsUpdate,
		"notify_on_item_state_update": l.NotifyOnItemStateUpdate,
		"deleted":                     l.Deleted,
		"created":                     l.Created,
		"updated":                     l.Updated,
	}
}

// View returns the fields of l visible to anyone holding the share id.
func (l List) View() ListView {
	return ListView{ListID: l.ListID, ShareID: l.ShareID, Name: l.Name, Type: l.Type, Deadline: l.Deadline}
}

// Reduced list returned by list:view and the share REST endpoint.
type ListView struct {
	ListID   string `json:"listId"`
	ShareID  string `json:"shareId"`
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Deadline int64  `json:"deadline,omitempty"`
}

// Full state of a list as broadcast to its members.
type ListSnapshot struct {
	List
	Users     []Member   `json:"users"`
	ListItems []ListItem `json:"listItems"`
}

// Membership of one user in one list, result of join and leave.
type Membership struct {
	UID    string `json:"uid"`
	ListID string `json:"listId"`
}

// Payload of list:create.
type CreateList struct {
	ListID                  string `json:"listId" valid:"identifier~listId:Invalid list id,optional"`
	ShareID                 string `json:"shareId" valid:"identifier~shareId:Invalid share id,optional"`
	Name                    string `json:"name" valid:"required~name:List name is required,notblank~name:List name is required"`
	Type                    string `json:"type" valid:"-"`
	Deadline                int64  `json:"deadline" valid:"-"`
	NotifyOnListShared      bool   `json:"notifyOnListShared" valid:"-"`
	NotifyOnListItemsUpdate bool   `json:"notifyOnListItemsUpdate" valid:"-"`
	NotifyOnItemStateUpdate bool   `json:"notifyOnItemStateUpdate" valid:"-"`
}

// Payload of list:update, nil fields are left untouched.
type UpdateList struct {
	Name                    *string `json:"name,omitempty"`
	Type                    *string `json:"type,omitempty"`
	Deadline                *int64  `json:"deadline,omitempty"`
	Completed               *bool   `json:"completed,omitempty"`
	CompletedAt             *int64  `json:"completedAt,omitempty"`
	SortOrder               *int    `json:"sortOrder,omitempty"`
	NotifyOnListShared      *bool   `json:"notifyOnListShared,omitempty"`
	NotifyOnListItemsUpdate *bool   `json:"notifyOnListItemsUpdate,omitempty"`
	NotifyOnItemStateUpdate *bool   `json:"notifyOnItemStateUpdate,omitempty"`
	Deleted                 *bool   `json:"deleted,omitempty"`
}

// Validate returns the param:message pairs of every invalid field.
func (u UpdateList) Validate() []error {
	var errs []error
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		errs = append(errs, fieldError("name", "List name cannot be empty"))
	}
	if u.Deadline != nil && *u.Deadline < 0 {
		errs = append(errs, fieldError("deadline", "Deadline must be a unix timestamp in milliseconds"))
	}
	return errs
}

// Fields returns the hash fields set in u.
func (u UpdateList) Fields() map[string]interface{} {
	fields := map[string]interface{}{}
	setIf(fields, "name", u.Name)
	setIf(fields, "type", u.Type)
	setIf(fields, "deadline", u.Deadline)
	setIf(fields, "completed", u.Completed)
	setIf(fields, "completed_at", u.CompletedAt)
	setIf(fields, "sort_order", u.SortOrder)
	setIf(fields, "notify_on_list_shared", u.NotifyOnListShared)
	setIf(fields, "notify_on_list_items_update", u.NotifyOnListItemsUpdate)
	setIf(fields, "notify_on_item_state_update", u.NotifyOnItemStateUpdate)
	setIf(fields, "deleted", u.Deleted)
	return fields
}

type fieldErr struct{ param, message string }

func (e fieldErr) Error() string { return e.param + ":" + e.message }

func fieldError(param, message string) error {
	return fieldErr{param: param, message: message}
}

func setIf[T any](fields map[string]interface{}, key string, v *T) {
	if v != nil {
		fields[key] = *v
	}
}
