// Structure of Item and ListItem Models in Wanna.

package entity

import "strings"

// Catalogue item, saved in DB as item:<itemId>. Public ones are indexed in items:public.
type Item struct {
	ItemID  string `json:"itemId" redis:"item_id"`
	Name    string `json:"name" redis:"name"`
	Type    string `json:"type,omitempty" redis:"type"`
	Units   string `json:"units,omitempty" redis:"units"`
	Public  bool   `json:"public" redis:"public"`
	Active  bool   `json:"active" redis:"active"`
	Deleted bool   `json:"deleted" redis:"deleted"`
}

// Fields returns the hash fields of i as stored in redis.
func (i Item) Fields() map[string]interface{} {
	return map[string]interface{}{
		"item_id": i.ItemID,
		"name":    i.Name,
		"type":    i.Type,
		"units":   i.Units,
		"public":  i.Public,
		"active":  i.Active,
		"deleted": i.Deleted,
	}
}

// Item placed on a list, saved in DB as list-item:<listItemId>.
type ListItem struct {
	ListItemID string `json:"listItemId" redis:"list_item_id"`
	ListID     string `json:"listId" redis:"list_id"`
	ItemID     string `json:"itemId" redis:"item_id"`
	Name       string `json:"name" redis:"name"`
	Type       string `json:"type,omitempty" redis:"type"`
	Units      string `json:"units,omitempty" redis:"units"`
	Quantity   int    `json:"quantity" redis:"quantity"`
	AssigneeID string `json:"assigneeId,omitempty" redis:"assignee_id"`
	Active     bool   `json:"active" redis:"active"`
	Ongoing    bool   `json:"ongoing" redis:"ongoing"`
	Completed  bool   `json:"completed" redis:"completed"`
	Deadline   int64  `json:"deadline,omitempty" redis:"deadline"`
	SortOrder  int    `json:"sortOrder" redis:"sort_order"`
	Deleted    bool   `json:"deleted" redis:"deleted"`
	Created    int64  `json:"createdAt" redis:"created"`
}

// Fields returns the hash fields of li as stored in redis.
func (li ListItem) Fields() map[string]interface{} {
	return map[string]interface{}{
		"list_item_id": li.ListItemID,
		"list_id":      li.ListID,
		"item_id":      li.ItemID,
		"name":         li.Name,
		"type":         li.Type,
		"units":        li.Units,
		"quantity":     li.Quantity,
		"assignee_id":  li.AssigneeID,
		"active":       li.Active,
		"ongoing":      li.Ongoing,
		"completed":    li.Completed,
		"deadline":     li.Deadline,
		"sort_order":   li.SortOrder,
		"deleted":      li.Deleted,
		"created":      li.Created,
	}
}

// Payload of item:create. An ItemID without Name adds an existing public item to the list.
type CreateItem struct {
	ItemID     string `json:"itemId" valid:"identifier~itemId:Invalid item id,optional"`
	ListItemID string `json:"listItemId" valid:"identifier~listItemId:Invalid list item id,optional"`
	ListID     string `json:"listId" valid:"required~listId:List ID is required,identifier~listId:Invalid list id"`
	Name       string `json:"name" valid:"-"`
	Type       string `json:"type" valid:"-"`
	Units      string `json:"units" valid:"-"`
	Quantity   int    `json:"quantity" valid:"-"`
	Deadline   int64  `json:"deadline" valid:"-"`
	Public     bool   `json:"public" valid:"-"`
}

// IsAddExisting reports whether c references an existing catalogue item instead of describing a new one.
func (c CreateItem) IsAddExisting() bool {
	return c.ItemID != "" && strings.TrimSpace(c.Name) == ""
}

// Item keeps the properties of c that belong to a catalogue item.
func (c CreateItem) Item() Item {
	return Item{
		ItemID: c.ItemID,
		Name:   c.Name,
		Type:   c.Type,
		Units:  c.Units,
		Public: c.Public,
		Active: true,
	}
}

// ListItem keeps the properties of c that belong to a list item of item.
func (c CreateItem) ListItem(item Item) ListItem {
	return ListItem{
		ListItemID: c.ListItemID,
		ListID:     c.ListID,
		ItemID:     item.ItemID,
		Name:       item.Name,
		Type:       item.Type,
		Units:      item.Units,
		Quantity:   c.Quantity,
		Deadline:   c.Deadline,
		Active:     true,
	}
}

// Result of item:create.
type ItemResult struct {
	Item     Item     `json:"item"`
	ListItem ListItem `json:"listItem"`
}

// Payload of item:update and listItem:update, nil fields are left untouched.
type UpdateListItem struct {
	ListItemID string  `json:"listItemId"`
	Name       *string `json:"name,omitempty"`
	Type       *string `json:"type,omitempty"`
	Units      *string `json:"units,omitempty"`
	Quantity   *int    `json:"quantity,omitempty"`
	AssigneeID *string `json:"assigneeId,omitempty"`
	Active     *bool   `json:"active,omitempty"`
	Ongoing    *bool   `json:"ongoing,omitempty"`
	Completed  *bool   `json:"completed,omitempty"`
	Deadline   *int64  `json:"deadline,omitempty"`
	SortOrder  *int    `json:"sortOrder,omitempty"`
	Deleted    *bool   `json:"deleted,omitempty"`
}

// Validate returns the param:message pairs of every invalid field.
func (u UpdateListItem) Validate() []error {
	var errs []error
	if strings.TrimSpace(u.ListItemID) == "" || strings.Contains(u.ListItemID, ":") {
		errs = append(errs, fieldError("listItemId", "List item ID is required"))
	}
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		errs = append(errs, fieldError("name", "Item name cannot be empty"))
	}
	if u.Quantity != nil && *u.Quantity < 0 {
		errs = append(errs, fieldError("quantity", "Quantity cannot be negative"))
	}
	return errs
}

// Fields returns the hash fields set in u.
func (u UpdateListItem) Fields() map[string]interface{} {
	fields := map[string]interface{}{}
	setIf(fields, "name", u.Name)
	setIf(fields, "type", u.Type)
	setIf(fields, "units", u.Units)
	setIf(fields, "quantity", u.Quantity)
	setIf(fields, "assignee_id", u.AssigneeID)
	setIf(fields, "active", u.Active)
	setIf(fields, "ongoing", u.Ongoing)
	setIf(fields, "completed", u.Completed)
	setIf(fields, "deadline", u.Deadline)
	setIf(fields, "sort_order", u.SortOrder)
	setIf(fields, "deleted", u.Deleted)
	return fields
}
