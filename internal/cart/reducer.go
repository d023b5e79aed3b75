package cart

// State is the whole cart record. Total and ItemCount are always derived
// from Items.
type State struct {
	Items         []Item  `json:"items"`
	Total         float64 `json:"total"`
	ItemCount     int     `json:"itemCount"`
	IsOpen        bool    `json:"isOpen"`
	IsAnimating   bool    `json:"isAnimating"`
	LastAddedItem *Item   `json:"lastAddedItem,omitempty"`
	IsLoading     bool    `json:"isLoading"`
}

// NewState is the state before hydration has been attempted.
func NewState() State {
	return State{Items: []Item{}, IsLoading: true}
}

// Snapshot is the persisted shape of a cart.
type Snapshot struct {
	Items     []Item  `json:"items"`
	Total     float64 `json:"total"`
	ItemCount int     `json:"itemCount"`
}

func (s State) Snapshot() Snapshot {
	items := s.Items
	if items == nil {
		items = []Item{}
	}
	return Snapshot{Items: items, Total: s.Total, ItemCount: s.ItemCount}
}

// Action is a cart transition.
type Action interface {
	Type() string
}

type AddItem struct{ Item Item }

type UpdateItemMetadata struct {
	ID       string
	Metadata Metadata
}

type RemoveItem struct{ ID string }

type UpdateQuantity struct {
	ID       string
	Quantity int
}

type ClearCart struct{}

type ToggleCart struct{}

type SetAnimating struct{ Value bool }

type SetLastAdded struct{ Item *Item }

type SetLoading struct{ Value bool }

func (AddItem) Type() string            { return "ADD_ITEM" }
func (UpdateItemMetadata) Type() string { return "UPDATE_ITEM_METADATA" }
func (RemoveItem) Type() string         { return "REMOVE_ITEM" }
func (UpdateQuantity) Type() string     { return "UPDATE_QUANTITY" }
func (ClearCart) Type() string          { return "CLEAR_CART" }
func (ToggleCart) Type() string         { return "TOGGLE_CART" }
func (SetAnimating) Type() string       { return "SET_ANIMATING" }
func (SetLastAdded) Type() string       { return "SET_LAST_ADDED" }
func (SetLoading) Type() string         { return "SET_LOADING" }

// changesItems reports whether a changes the persisted content.
func changesItems(a Action) bool {
	switch a.(type) {
	case AddItem, UpdateItemMetadata, RemoveItem, UpdateQuantity, ClearCart:
		return true
	default:
		return false
	}
}

// Reduce applies a to s. It never mutates s.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case AddItem:
		if a.Item.ID == "" || a.Item.Quantity <= 0 {
			return s
		}
		items := cloneItems(s.Items)
		if i := indexOf(items, a.Item.ID); i >= 0 {
			items[i].Quantity += a.Item.Quantity
		} else {
			added := a.Item
			added.Metadata = a.Item.Metadata.clone()
			items = append(items, added)
		}
		s = withItems(s, items)
		last := a.Item
		s.LastAddedItem = &last
		s.IsAnimating = true
		return s

	case UpdateItemMetadata:
		i := indexOf(s.Items, a.ID)
		if i < 0 {
			return s
		}
		items := cloneItems(s.Items)
		merged := items[i].Metadata.clone()
		if merged == nil {
			merged = Metadata{}
		}
		for k, v := range a.Metadata {
			merged[k] = v
		}
		items[i].Metadata = merged
		if items[i].Type == ItemTicket {
			if lines := merged.Tickets(); len(lines) > 0 {
				items[i].Price = bundlePrice(lines)
			}
		}
		return withItems(s, items)

	case RemoveItem:
		items := make([]Item, 0, len(s.Items))
		for _, it := range s.Items {
			if it.ID != a.ID {
				items = append(items, it)
			}
		}
		return withItems(s, items)

	case UpdateQuantity:
		qty := a.Quantity
		if qty < 0 {
			qty = 0
		}
		items := make([]Item, 0, len(s.Items))
		for _, it := range s.Items {
			if it.ID == a.ID {
				it.Quantity = qty
			}
			if it.Quantity > 0 {
				items = append(items, it)
			}
		}
		return withItems(s, items)

	case ClearCart:
		s = withItems(s, []Item{})
		s.LastAddedItem = nil
		return s

	case ToggleCart:
		s.IsOpen = !s.IsOpen
		return s

	case SetAnimating:
		s.IsAnimating = a.Value
		return s

	case SetLastAdded:
		if a.Item == nil {
			s.LastAddedItem = nil
			return s
		}
		last := *a.Item
		s.LastAddedItem = &last
		return s

	case SetLoading:
		s.IsLoading = a.Value
		return s

	default:
		return s
	}
}

// withItems installs items and recomputes the derived totals from scratch.
func withItems(s State, items []Item) State {
	s.Items = items
	var total float64
	count := 0
	for _, it := range items {
		total += it.Price * float64(it.Quantity)
		count += it.Quantity
	}
	s.Total = roundCents(total)
	s.ItemCount = count
	return s
}

func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

func indexOf(items []Item, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

// indexOfTicketBundle finds the ticket item for an event. Items added with
// their own id are matched by type and event id before the synthetic
// BundleID is tried.
func indexOfTicketBundle(items []Item, eventID string) int {
	for i := range items {
		if items[i].Type == ItemTicket && items[i].EventID == eventID {
			return i
		}
	}
	return indexOf(items, BundleID(eventID))
}

// TicketBundle returns the ticket item for an event, if the cart has one.
func (s State) TicketBundle(eventID string) (Item, bool) {
	i := indexOfTicketBundle(s.Items, eventID)
	if i < 0 {
		return Item{}, false
	}
	return s.Items[i], true
}

// cloneState copies the slices and pointers a caller could mutate.
func cloneState(s State) State {
	s.Items = cloneItems(s.Items)
	for i := range s.Items {
		s.Items[i].Metadata = s.Items[i].Metadata.clone()
	}
	if s.LastAddedItem != nil {
		last := *s.LastAddedItem
		s.LastAddedItem = &last
	}
	return s
}
