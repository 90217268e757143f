package gateway

import (
	"Wanna/internal/entity"
	"Wanna/internal/errors"
	"Wanna/pkg/log"
	"context"
	"sort"
	"strconv"
	"sync"
)

// world is an in-memory data layer implementing the user, list and item services.
type world struct {
	mu        sync.Mutex
	users     map[string]entity.User
	lists     map[string]entity.List
	shares    map[string]string
	members   map[string]map[string]bool
	listItems map[string][]entity.ListItem
	seq       int
}

func newWorld() *world {
	return &world{
		users:     make(map[string]entity.User),
		lists:     make(map[string]entity.List),
		shares:    make(map[string]string),
		members:   make(map[string]map[string]bool),
		listItems: make(map[string][]entity.ListItem),
	}
}

// seedList stores a list owned by the given auth tokens.
func (w *world) seedList(listID string, auths ...string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lists[listID] = entity.List{ListID: listID, ShareID: "S-" + listID, Name: "groceries"}
	w.shares["S-"+listID] = listID
	w.members[listID] = make(map[string]bool)
	for _, auth := range auths {
		w.members[listID][auth] = true
	}
}

func (w *world) seedUser(uid, names, auth string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.users[auth] = entity.User{UID: uid, Names: names, Auth: auth}
}

func (w *world) CreateUser(ctx context.Context, creds entity.Credentials) (entity.User, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if creds.UID == "" || creds.Auth == "" {
		return entity.User{}, errors.ValidationFailed("uid and auth are required")
	}
	if _, ok := w.users[creds.Auth]; ok {
		return entity.User{}, errors.ValidationFailed("Auth token already exists")
	}
	user := entity.User{UID: creds.UID, Names: creds.Names, Auth: creds.Auth}
	w.users[creds.Auth] = user
	return user, nil
}

func (w *world) FindUserByAuth(ctx context.Context, auth string) (entity.User, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	user, ok := w.users[auth]
	if !ok {
		return entity.User{}, errors.NotFound("User not found")
	}
	return user, nil
}

func (w *world) UpdateUser(ctx context.Context, auth string, update entity.UpdateUser) (entity.User, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	user, ok := w.users[auth]
	if !ok {
		return entity.User{}, errors.InvalidCredential("")
	}
	if update.Names != nil {
		user.Names = *update.Names
	}
	w.users[auth] = user
	return user, nil
}

func (w *world) authorize(auth, listID string) (entity.User, error) {
	if listID == "" {
		return entity.User{}, errors.ValidationFailed("List ID is required")
	}
	if _, ok := w.lists[listID]; !ok {
		return entity.User{}, errors.NotFound("List not found")
	}
	if !w.members[listID][auth] {
		return entity.User{}, errors.AccessDenied("")
	}
	return w.users[auth], nil
}

func (w *world) AuthorizeMember(ctx context.Context, auth, listID string) (entity.User, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.authorize(auth, listID)
}

func (w *world) CreateList(ctx context.Context, auth string, create entity.CreateList) (entity.List, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if create.Name == "" {
		return entity.List{}, errors.ValidationFailed("List name is required")
	}
	listID := create.ListID
	if listID == "" {
		w.seq++
		listID = "generated-" + strconv.Itoa(w.seq)
	}
	list := entity.List{ListID: listID, ShareID: "S-" + listID, Name: create.Name}
	w.lists[listID] = list
	w.shares[list.ShareID] = listID
	w.members[listID] = map[string]bool{auth: true}
	return list, nil
}

func (w *world) UpdateList(ctx context.Context, auth, listID string, update entity.UpdateList) (entity.List, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.authorize(auth, listID); err != nil {
		return entity.List{}, err
	}
	list := w.lists[listID]
	if update.Name != nil {
		if *update.Name == "boom" {
			panic("boom")
		}
		list.Name = *update.Name
	}
	w.lists[listID] = list
	return list, nil
}

func (w *world) GetListSnapshot(ctx context.Context, listID string) (entity.ListSnapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	list, ok := w.lists[listID]
	if !ok {
		return entity.ListSnapshot{}, errors.NotFound("List not found")
	}
	if list.Name == "explode" {
		panic("snapshot failed")
	}
	snapshot := entity.ListSnapshot{List: list, ListItems: append([]entity.ListItem(nil), w.listItems[listID]...)}
	for auth := range w.members[listID] {
		user := w.users[auth]
		snapshot.Users = append(snapshot.Users, entity.Member{UID: user.UID, Names: user.Names})
	}
	sort.Slice(snapshot.Users, func(i, j int) bool { return snapshot.Users[i].UID < snapshot.Users[j].UID })
	return snapshot, nil
}

func (w *world) FindListByShareID(ctx context.Context, shareID string) (entity.ListView, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	listID, ok := w.shares[shareID]
	if !ok {
		return entity.ListView{}, errors.NotFound("List not found")
	}
	return w.lists[listID].View(), nil
}

func (w *world) JoinList(ctx context.Context, auth, shareID string) (entity.Membership, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	listID, ok := w.shares[shareID]
	if !ok {
		return entity.Membership{}, errors.NotFound("List not found")
	}
	w.members[listID][auth] = true
	return entity.Membership{UID: w.users[auth].UID, ListID: listID}, nil
}

func (w *world) LeaveList(ctx context.Context, auth, listID string) (entity.Membership, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	user, err := w.authorize(auth, listID)
	if err != nil {
		return entity.Membership{}, err
	}
	delete(w.members[listID], auth)
	return entity.Membership{UID: user.UID, ListID: listID}, nil
}

func (w *world) SubscribersOf(ctx context.Context, key entity.ResourceKey) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	listID, ok := key.ListID()
	if !ok {
		return nil, nil
	}
	var auths []string
	for auth := range w.members[listID] {
		auths = append(auths, auth)
	}
	sort.Strings(auths)
	return auths, nil
}

func (w *world) CreateItem(ctx context.Context, auth string, create entity.CreateItem) (entity.ItemResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.authorize(auth, create.ListID); err != nil {
		return entity.ItemResult{}, err
	}
	item := entity.Item{ItemID: "item-" + create.Name, Name: create.Name}
	listItem := entity.ListItem{ListItemID: "li-" + create.Name, ListID: create.ListID, ItemID: item.ItemID, Name: create.Name}
	w.listItems[create.ListID] = append(w.listItems[create.ListID], listItem)
	return entity.ItemResult{Item: item, ListItem: listItem}, nil
}

func (w *world) AddItemToList(ctx context.Context, auth, listID, itemID string) (entity.ItemResult, error) {
	return entity.ItemResult{}, errors.NotFound("Item not found")
}

func (w *world) updateListItem(listID string, update entity.UpdateListItem) error {
	for i, li := range w.listItems[listID] {
		if li.ListItemID == update.ListItemID {
			if update.Name != nil {
				w.listItems[listID][i].Name = *update.Name
			}
			if update.Quantity != nil {
				w.listItems[listID][i].Quantity = *update.Quantity
			}
			return nil
		}
	}
	return errors.NotFound("List item not found")
}

func (w *world) UpdateListItem(ctx context.Context, auth, listID string, update entity.UpdateListItem) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.authorize(auth, listID); err != nil {
		return err
	}
	return w.updateListItem(listID, update)
}

func (w *world) UpdateListItems(ctx context.Context, auth, listID string, updates []entity.UpdateListItem) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(updates) == 0 {
		return errors.ValidationFailed("No list items to update")
	}
	if _, err := w.authorize(auth, listID); err != nil {
		return err
	}
	for _, u := range updates {
		if err := w.updateListItem(listID, u); err != nil {
			return err
		}
	}
	return nil
}

func (w *world) FindPublicItems(ctx context.Context) ([]entity.Item, error) {
	return nil, nil
}

// presenceLog records presence changes instead of writing them to redis.
type presenceLog struct {
	mu      sync.Mutex
	added   []string
	removed []string
}

func (p *presenceLog) AddClient(ctx context.Context, logger log.Logger, identity string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.added = append(p.added, identity)
	return nil
}

func (p *presenceLog) RemoveClient(ctx context.Context, logger log.Logger, identity string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removed = append(p.removed, identity)
	return nil
}

func (p *presenceLog) ResetClients(ctx context.Context, logger log.Logger) error {
	return nil
}

func (p *presenceLog) snapshot() (added, removed []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.added...), append([]string(nil), p.removed...)
}

// gatedPresence keeps the presence set and can hold one RemoveClient until released,
// standing in for a slow redis round trip.
type gatedPresence struct {
	mu      sync.Mutex
	online  map[string]bool
	gated   bool
	entered chan struct{}
	release chan struct{}
}

func newGatedPresence() *gatedPresence {
	return &gatedPresence{
		online:  make(map[string]bool),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

// holdNextRemove makes the next RemoveClient wait for release.
func (p *gatedPresence) holdNextRemove() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gated = true
}

func (p *gatedPresence) AddClient(ctx context.Context, logger log.Logger, identity string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online[identity] = true
	return nil
}

func (p *gatedPresence) RemoveClient(ctx context.Context, logger log.Logger, identity string) error {
	p.mu.Lock()
	gated := p.gated
	p.gated = false
	p.mu.Unlock()
	if gated {
		close(p.entered)
		<-p.release
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.online, identity)
	return nil
}

func (p *gatedPresence) ResetClients(ctx context.Context, logger log.Logger) error {
	return nil
}

func (p *gatedPresence) isOnline(identity string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online[identity]
}
