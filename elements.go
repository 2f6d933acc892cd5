package client

// Element is one live simulation entity. Its lifecycle is fully driven
// by events: created by EleCrt, mutated by EleUpd, destroyed by EleDst.
type Element struct {
	ID    int64
	Type  string
	X     float64
	Y     float64
	Rad   float64
	Size  float64
	Color string
	// Player is the owning player's name when the element fills a
	// tracked player role, empty otherwise.
	Player string
}

// Player is one roster entry, derived from live elements.
type Player struct {
	Name      string
	ElementID int64
}

// ElementOption sets an optional field at creation time.
type ElementOption func(*Element)

func WithRadians(rad float64) ElementOption {
	return func(el *Element) { el.Rad = rad }
}

func WithSize(size float64) ElementOption {
	return func(el *Element) { el.Size = size }
}

func WithColor(color string) ElementOption {
	return func(el *Element) { el.Color = color }
}

func WithPlayer(name string) ElementOption {
	return func(el *Element) { el.Player = name }
}
