package queue

// RemoveOptions are the intents a removal request carries.
type RemoveOptions struct {
	RemoveFromClient bool
	Blocklist        bool
	SkipRedownload   bool
	ChangeCategory   bool
}

type clientAction int

const (
	clientNone clientAction = iota
	clientRemove
	clientChangeCategory
)

// decision is what a removal of a tracked download does.
type decision struct {
	client    clientAction
	blocklist bool
	ignore    bool
	label     string
}

// removalTable is indexed by removeFromClient<<2 | changeCategory<<1 | blocklist.
// Removing from the client takes priority over changing its category.
// SkipRedownload only affects whether a blocklisted download is searched for again.
var removalTable = [8]decision{
	0b000: {ignore: true, label: "ignore"},
	0b001: {blocklist: true, label: "blocklist"},
	0b010: {client: clientChangeCategory, label: "change_category"},
	0b011: {client: clientChangeCategory, blocklist: true, label: "change_category_blocklist"},
	0b100: {client: clientRemove, label: "remove"},
	0b101: {client: clientRemove, blocklist: true, label: "remove_blocklist"},
	0b110: {client: clientRemove, label: "remove"},
	0b111: {client: clientRemove, blocklist: true, label: "remove_blocklist"},
}

func (o RemoveOptions) decision() decision {
	idx := 0
	if o.RemoveFromClient {
		idx |= 1 << 2
	}
	if o.ChangeCategory {
		idx |= 1 << 1
	}
	if o.Blocklist {
		idx |= 1
	}
	return removalTable[idx]
}
