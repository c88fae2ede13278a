package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/tubeport/internal/models"
)

var _ list.Item = entryItem{}

// entryItem wraps [models.ProcessedItem] to implement [list.Item] for the unmatched list.
type entryItem struct {
	item models.ProcessedItem
}

func (i entryItem) FilterValue() string { return i.item.Entry.Label }
func (i entryItem) Title() string       { return i.item.Entry.Label }
func (i entryItem) Description() string {
	desc := i.item.FailureReason
	if i.item.Entry.Publisher != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.item.Entry.Publisher)
	}
	return desc
}

// unmatchedItems returns every item that was not accepted, in source order.
func unmatchedItems(items []models.ProcessedItem) []list.Item {
	out := make([]list.Item, 0, len(items))
	for _, item := range items {
		if !item.Accepted() {
			out = append(out, entryItem{item: item})
		}
	}
	return out
}
