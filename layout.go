package ost

// Canvas layout constants shared by every placement.
const (
	NodeWidth     = 256
	HorizontalGap = 50
	VerticalGap   = 150
)

// DefaultPosition is where parentless nodes are placed.
var DefaultPosition = Position{X: 0, Y: 0}

// ChildPosition places the (siblings+1)-th child of a node at parent: one
// vertical gap below it, shifted right by one column per existing sibling.
func ChildPosition(parent Position, siblings int) Position {
	return Position{
		X: parent.X + float64(siblings*(NodeWidth+HorizontalGap)),
		Y: parent.Y + VerticalGap,
	}
}

// BelowPosition is the slot directly under parent.
func BelowPosition(parent Position) Position {
	return ChildPosition(parent, 0)
}
